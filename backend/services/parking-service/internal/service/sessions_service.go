package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gopkg.in/guregu/null.v4"

	"parkspot/backend/libs/logging"
	"parkspot/backend/services/parking-service/internal/clock"
	"parkspot/backend/services/parking-service/internal/metrics"
	"parkspot/backend/services/parking-service/internal/models"
	"parkspot/backend/services/parking-service/internal/repository"
)

const defaultHistoryLimit = 50

// Notifier delivers user notifications without blocking the caller.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

// ActiveSessionCache keeps the caller's open session close at hand.
// Get returns nil, nil on a miss.
type ActiveSessionCache interface {
	Save(ctx context.Context, session models.Session) error
	Get(ctx context.Context, userID int64) (*models.Session, error)
	Delete(ctx context.Context, userID int64) error
}

// SessionsDeps collects SessionsService collaborators. Cache, Notifier and Metrics are optional.
type SessionsDeps struct {
	Store    repository.Store
	Cache    ActiveSessionCache
	Notifier Notifier
	Clock    clock.Clock
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
	Currency string
}

// SessionsService drives the parking session state machine and the lot occupancy it holds.
type SessionsService struct {
	store    repository.Store
	cache    ActiveSessionCache
	notifier Notifier
	clock    clock.Clock
	metrics  *metrics.Metrics
	logger   *zap.Logger
	currency string
}

// StartSessionInput is a self-service immediate start.
type StartSessionInput struct {
	UserID      int64
	LotID       int64
	VehicleType models.VehicleType
}

// BookInput is a time-boxed reservation request.
type BookInput struct {
	UserID      int64
	LotID       int64
	VehicleType models.VehicleType
	Slots       int
	StartTime   time.Time
	EndTime     time.Time
}

// GateInput identifies the driver and lot at a guarded gate. VehicleType is only used for walk-ins.
type GateInput struct {
	UserID      int64
	LotID       int64
	VehicleType models.VehicleType
}

// NewSessionsService builds service.
func NewSessionsService(deps SessionsDeps) *SessionsService {
	s := &SessionsService{
		store:    deps.Store,
		cache:    deps.Cache,
		notifier: deps.Notifier,
		clock:    deps.Clock,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		currency: deps.Currency,
	}
	if s.clock == nil {
		s.clock = clock.System{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.currency == "" {
		s.currency = "NPR"
	}
	return s
}

// StartSession opens an active session at the lot immediately.
func (s *SessionsService) StartSession(ctx context.Context, in StartSessionInput) (*models.Session, error) {
	if err := validateParty(in.UserID, in.LotID); err != nil {
		return nil, s.reject(models.EventStart, err)
	}
	if !in.VehicleType.Valid() {
		return nil, s.reject(models.EventStart, validation("vehicleType must be car or bike"))
	}

	now := s.clock.Now()
	var (
		session *models.Session
		lot     *models.Lot
	)
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		session, lot, err = openActive(ctx, repos, models.EventStart, in.UserID, in.LotID, in.VehicleType, now)
		return err
	})
	if err != nil {
		return nil, s.reject(models.EventStart, err)
	}

	s.applied(ctx, models.EventStart, session, lot)
	s.notify(ctx, checkInNotification(session, lot))
	return session, nil
}

// Book reserves slots for a future window. Occupancy is taken at booking time.
func (s *SessionsService) Book(ctx context.Context, in BookInput) (*models.Session, error) {
	if in.Slots == 0 {
		in.Slots = 1
	}
	if err := validateBooking(in, s.clock.Now()); err != nil {
		return nil, s.reject(models.EventBook, err)
	}

	var (
		session *models.Session
		lot     *models.Lot
	)
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		t, err := edge("", models.EventBook)
		if err != nil {
			return err
		}
		current, err := repos.Lots().GetByID(ctx, in.LotID)
		if err != nil {
			return translate(err, "parking lot not found")
		}
		if !current.Type.Accepts(in.VehicleType) {
			return validation(fmt.Sprintf("parking lot accepts %s only", current.Type))
		}
		if err := ensureNoOpenSession(ctx, repos, in.UserID); err != nil {
			return err
		}
		if current.AvailableSlots() < in.Slots {
			return newError(ErrCapacity, fmt.Sprintf("only %d slots available", current.AvailableSlots()), nil)
		}

		lot, err = repos.Lots().AdjustOccupancy(ctx, in.LotID, t.Delta(in.Slots))
		if err != nil {
			return translate(err, "parking lot not found")
		}
		session, err = repos.Sessions().Create(ctx, &models.Session{
			UserID:       in.UserID,
			LotID:        in.LotID,
			VehicleType:  in.VehicleType,
			Slots:        in.Slots,
			PricePerHour: lot.PricePerHour,
			StartTime:    in.StartTime.UTC(),
			EndTime:      null.TimeFrom(in.EndTime.UTC()),
			Status:       t.To,
		})
		return translate(err, "parking lot not found")
	})
	if err != nil {
		return nil, s.reject(models.EventBook, err)
	}

	s.applied(ctx, models.EventBook, session, lot)
	s.notify(ctx, models.Notification{
		UserID:   session.UserID,
		Type:     models.NotificationInfo,
		Title:    "Booking confirmed",
		Message:  fmt.Sprintf("%d slot(s) reserved at %s from %s to %s", session.Slots, lot.Name, formatTime(session.StartTime), formatTime(session.EndTime.Time)),
		Metadata: metadata(session, lot, null.Float{}),
	})
	return session, nil
}

// GuardEntry checks a driver in. A pending booking at the lot is activated without
// touching occupancy; otherwise a walk-in session is opened.
func (s *SessionsService) GuardEntry(ctx context.Context, in GateInput) (*models.Session, error) {
	if err := validateParty(in.UserID, in.LotID); err != nil {
		return nil, s.reject(models.EventEnter, err)
	}
	if in.VehicleType != "" && !in.VehicleType.Valid() {
		return nil, s.reject(models.EventEnter, validation("vehicleType must be car or bike"))
	}

	now := s.clock.Now()
	event := models.EventEnter
	var (
		session *models.Session
		lot     *models.Lot
	)
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		booked, err := repos.Sessions().FindLatestBooked(ctx, in.UserID, in.LotID)
		switch {
		case err == nil:
			t, err := edge(booked.Status, models.EventEnter)
			if err != nil {
				return err
			}
			if session, err = repos.Sessions().Activate(ctx, booked.ID, now); err != nil {
				return translate(err, "booking not found")
			}
			lot, err = repos.Lots().AdjustOccupancy(ctx, booked.LotID, t.Delta(booked.Slots))
			return translate(err, "parking lot not found")
		case !errors.Is(err, repository.ErrNotFound):
			return translate(err, "booking not found")
		}

		event = models.EventWalkIn
		current, err := repos.Lots().GetByID(ctx, in.LotID)
		if err != nil {
			return translate(err, "parking lot not found")
		}
		vehicle := in.VehicleType
		if vehicle == "" {
			vehicle = defaultVehicle(current.Type)
		}
		session, lot, err = openActive(ctx, repos, models.EventWalkIn, in.UserID, in.LotID, vehicle, now)
		return err
	})
	if err != nil {
		return nil, s.reject(event, err)
	}

	s.applied(ctx, event, session, lot)
	s.notify(ctx, checkInNotification(session, lot))
	return session, nil
}

// GuardExit checks a driver out of the given lot and bills the stay.
func (s *SessionsService) GuardExit(ctx context.Context, in GateInput) (*models.Session, error) {
	if err := validateParty(in.UserID, in.LotID); err != nil {
		return nil, s.reject(models.EventComplete, err)
	}
	return s.complete(ctx, in.UserID, in.LotID)
}

// CompleteSession ends the caller's own active session wherever it is.
func (s *SessionsService) CompleteSession(ctx context.Context, userID int64) (*models.Session, error) {
	if userID <= 0 {
		return nil, s.reject(models.EventComplete, validation("user id is required"))
	}
	return s.complete(ctx, userID, 0)
}

func (s *SessionsService) complete(ctx context.Context, userID, lotID int64) (*models.Session, error) {
	now := s.clock.Now()
	var (
		session *models.Session
		lot     *models.Lot
	)
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		active, err := repos.Sessions().FindActive(ctx, userID, lotID)
		if err != nil {
			return translate(err, "no active session found")
		}
		t, err := edge(active.Status, models.EventComplete)
		if err != nil {
			return err
		}
		amount := Charge(active.StartTime, now, active.PricePerHour)
		if session, err = repos.Sessions().Complete(ctx, active.ID, now, amount); err != nil {
			return translate(err, "no active session found")
		}
		lot, err = repos.Lots().AdjustOccupancy(ctx, active.LotID, t.Delta(active.Slots))
		return translate(err, "parking lot not found")
	})
	if err != nil {
		return nil, s.reject(models.EventComplete, err)
	}

	s.applied(ctx, models.EventComplete, session, lot)
	s.notify(ctx, models.Notification{
		UserID: session.UserID,
		Type:   models.NotificationCheckOut,
		Title:  "Checked out",
		Message: fmt.Sprintf("You left %s after %d hour(s). Total amount: %s %.2f",
			lot.Name, BilledHours(session.StartTime, session.EndTime.Time), s.currency, session.TotalAmount),
		Metadata: metadata(session, lot, null.FloatFrom(session.TotalAmount)),
	})
	return session, nil
}

// CancelBooking releases the caller's pending booking.
func (s *SessionsService) CancelBooking(ctx context.Context, userID int64) (*models.Session, error) {
	if userID <= 0 {
		return nil, s.reject(models.EventCancel, validation("user id is required"))
	}

	now := s.clock.Now()
	var (
		session *models.Session
		lot     *models.Lot
	)
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		open, err := repos.Sessions().FindOpenByUser(ctx, userID)
		if err != nil {
			return translate(err, "no booking found")
		}
		if _, ok := models.TransitionFor(open.Status, models.EventCancel); !ok {
			return newError(ErrConflict, "only booked sessions can be cancelled", nil)
		}
		session, lot, err = cancelBooked(ctx, repos, models.EventCancel, open, now)
		return err
	})
	if err != nil {
		return nil, s.reject(models.EventCancel, err)
	}

	s.applied(ctx, models.EventCancel, session, lot)
	s.notify(ctx, models.Notification{
		UserID:   session.UserID,
		Type:     models.NotificationInfo,
		Title:    "Booking cancelled",
		Message:  fmt.Sprintf("Your booking at %s was cancelled", lot.Name),
		Metadata: metadata(session, lot, null.Float{}),
	})
	return session, nil
}

// ExpireBookings cancels bookings whose requested window ended before cutoff.
// It returns how many bookings were released.
func (s *SessionsService) ExpireBookings(ctx context.Context, cutoff time.Time, batch int) (int, error) {
	expired, err := s.store.Sessions().ListExpiredBookings(ctx, cutoff, batch)
	if err != nil {
		return 0, translate(err, "")
	}

	released := 0
	for i := range expired {
		candidate := expired[i]
		var (
			session *models.Session
			lot     *models.Lot
		)
		err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
			var err error
			session, lot, err = cancelBooked(ctx, repos, models.EventExpire, &candidate, s.clock.Now())
			return err
		})
		if errors.Is(err, ErrConflict) {
			// entered or cancelled since listing
			continue
		}
		if err != nil {
			s.logger.Error("failed to expire booking", zap.Int64("session_id", candidate.ID), zap.Error(err))
			continue
		}

		released++
		s.applied(ctx, models.EventExpire, session, lot)
		s.notify(ctx, models.Notification{
			UserID:   session.UserID,
			Type:     models.NotificationInfo,
			Title:    "Booking expired",
			Message:  fmt.Sprintf("Your booking at %s expired without entry and the slots were released", lot.Name),
			Metadata: metadata(session, lot, null.Float{}),
		})
	}
	return released, nil
}

// ActiveSession returns the caller's booked or active session, or nil when there is none.
// A cache miss reads through to the store without filling the cache: only committed
// transitions write entries, so a read can never resurrect a session closed meanwhile.
func (s *SessionsService) ActiveSession(ctx context.Context, userID int64) (*models.Session, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, userID)
		if err != nil {
			s.logger.Warn("failed to read active session cache", zap.Int64("user_id", userID), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	session, err := s.store.Sessions().FindOpenByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, "")
	}
	return session, nil
}

// History returns the user's sessions, newest first.
func (s *SessionsService) History(ctx context.Context, userID int64, limit int) ([]models.Session, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultHistoryLimit
	}
	sessions, err := s.store.Sessions().ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, translate(err, "")
	}
	return sessions, nil
}

// ActiveSessions returns sessions currently parked, for gate staff.
func (s *SessionsService) ActiveSessions(ctx context.Context, limit int) ([]models.Session, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultHistoryLimit
	}
	sessions, err := s.store.Sessions().ListActive(ctx, limit)
	if err != nil {
		return nil, translate(err, "")
	}
	return sessions, nil
}

// openActive reserves one slot and inserts an active session, inside the caller's transaction.
func openActive(ctx context.Context, repos repository.Repositories, ev models.SessionEvent, userID, lotID int64, vehicle models.VehicleType, now time.Time) (*models.Session, *models.Lot, error) {
	t, err := edge("", ev)
	if err != nil {
		return nil, nil, err
	}
	current, err := repos.Lots().GetByID(ctx, lotID)
	if err != nil {
		return nil, nil, translate(err, "parking lot not found")
	}
	if !current.Type.Accepts(vehicle) {
		return nil, nil, validation(fmt.Sprintf("parking lot accepts %s only", current.Type))
	}
	if err := ensureNoOpenSession(ctx, repos, userID); err != nil {
		return nil, nil, err
	}

	lot, err := repos.Lots().AdjustOccupancy(ctx, lotID, t.Delta(1))
	if err != nil {
		return nil, nil, translate(err, "parking lot not found")
	}
	session, err := repos.Sessions().Create(ctx, &models.Session{
		UserID:       userID,
		LotID:        lotID,
		VehicleType:  vehicle,
		Slots:        1,
		PricePerHour: lot.PricePerHour,
		StartTime:    now,
		Status:       t.To,
	})
	if err != nil {
		return nil, nil, translate(err, "parking lot not found")
	}
	return session, lot, nil
}

func cancelBooked(ctx context.Context, repos repository.Repositories, ev models.SessionEvent, booked *models.Session, now time.Time) (*models.Session, *models.Lot, error) {
	t, err := edge(booked.Status, ev)
	if err != nil {
		return nil, nil, err
	}
	session, err := repos.Sessions().Cancel(ctx, booked.ID, now)
	if err != nil {
		return nil, nil, translate(err, "booking not found")
	}
	lot, err := repos.Lots().AdjustOccupancy(ctx, booked.LotID, t.Delta(booked.Slots))
	if err != nil {
		return nil, nil, translate(err, "parking lot not found")
	}
	return session, lot, nil
}

func ensureNoOpenSession(ctx context.Context, repos repository.Repositories, userID int64) error {
	_, err := repos.Sessions().FindOpenByUser(ctx, userID)
	switch {
	case err == nil:
		return newError(ErrConflict, "user already has an active or booked session", nil)
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return translate(err, "")
	}
}

func validateParty(userID, lotID int64) error {
	if userID <= 0 {
		return validation("userId is required")
	}
	if lotID <= 0 {
		return validation("parkingLotId is required")
	}
	return nil
}

func validateBooking(in BookInput, now time.Time) error {
	if err := validateParty(in.UserID, in.LotID); err != nil {
		return err
	}
	if !in.VehicleType.Valid() {
		return validation("vehicleType must be car or bike")
	}
	if in.Slots < 1 {
		return validation("slots must be at least 1")
	}
	if in.StartTime.IsZero() || in.EndTime.IsZero() {
		return validation("startTime and endTime are required")
	}
	if !in.StartTime.Before(in.EndTime) {
		return validation("startTime must be before endTime")
	}
	if !in.EndTime.After(now) {
		return validation("endTime must be in the future")
	}
	return nil
}

// edge returns the transition ev applies to a session in state from.
func edge(from models.SessionStatus, ev models.SessionEvent) (models.Transition, error) {
	t, ok := models.TransitionFor(from, ev)
	if !ok {
		return t, newError(ErrConflict, fmt.Sprintf("%s is not allowed for a %s session", ev, from), nil)
	}
	return t, nil
}

func defaultVehicle(t models.LotType) models.VehicleType {
	if t == models.LotTypeBike {
		return models.VehicleBike
	}
	return models.VehicleCar
}

// applied runs the post-commit bookkeeping shared by every transition.
func (s *SessionsService) applied(ctx context.Context, ev models.SessionEvent, session *models.Session, lot *models.Lot) {
	s.metrics.Transition(ev)
	s.metrics.Occupancy(lot)
	if session.Status.Open() {
		s.cacheSave(ctx, session)
	} else {
		s.cacheDelete(ctx, session.UserID)
	}
	logging.FromContext(ctx, s.logger).Info("session transition",
		zap.String("event", string(ev)),
		zap.Int64("session_id", session.ID),
		zap.Int64("user_id", session.UserID),
		zap.Int64("lot_id", session.LotID),
		zap.String("status", string(session.Status)),
		zap.Int("occupied_spots", lot.OccupiedSpots),
		zap.Int("total_spots", lot.TotalSpots),
	)
}

func (s *SessionsService) reject(ev models.SessionEvent, err error) error {
	s.metrics.Rejection(ev, reason(err))
	return err
}

func (s *SessionsService) notify(ctx context.Context, n models.Notification) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, n)
}

func (s *SessionsService) cacheSave(ctx context.Context, session *models.Session) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Save(ctx, *session); err != nil {
		s.logger.Warn("failed to cache active session", zap.Int64("user_id", session.UserID), zap.Error(err))
	}
}

func (s *SessionsService) cacheDelete(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn("failed to delete active session cache", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func checkInNotification(session *models.Session, lot *models.Lot) models.Notification {
	return models.Notification{
		UserID:   session.UserID,
		Type:     models.NotificationCheckIn,
		Title:    "Checked in",
		Message:  fmt.Sprintf("Your %s is parked at %s since %s", session.VehicleType, lot.Name, formatTime(session.StartTime)),
		Metadata: metadata(session, lot, null.Float{}),
	}
}

func metadata(session *models.Session, lot *models.Lot, amount null.Float) models.NotificationMetadata {
	return models.NotificationMetadata{
		LotID:     null.IntFrom(lot.ID),
		SessionID: null.IntFrom(session.ID),
		Amount:    amount,
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04 MST")
}
