package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"parkspot/backend/services/parking-service/internal/models"
	"parkspot/backend/services/parking-service/internal/repository"
)

// memStore mirrors the SQL semantics of the postgres store: conditional occupancy
// updates, one open session per user, compare-and-set transitions and rollback.
// Transactions run one at a time; row-level contention is covered in package postgres.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	lots          map[int64]models.Lot
	deleted       map[int64]bool
	sessions      map[int64]models.Session
	notifications map[int64]models.Notification
	nextID        int64
	seq           time.Time

	// failWith is returned by every repository call while set.
	failWith error
}

func newMemStore() *memStore {
	return &memStore{
		lots:          make(map[int64]models.Lot),
		deleted:       make(map[int64]bool),
		sessions:      make(map[int64]models.Session),
		notifications: make(map[int64]models.Notification),
		seq:           time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) Lots() repository.LotRepository                   { return memLots{m} }
func (m *memStore) Sessions() repository.SessionRepository           { return memSessions{m} }
func (m *memStore) Notifications() repository.NotificationRepository { return memNotifications{m} }

func (m *memStore) WithinTx(ctx context.Context, fn func(repository.Repositories) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	lots := copyMap(m.lots)
	deleted := copyMap(m.deleted)
	sessions := copyMap(m.sessions)
	notifications := copyMap(m.notifications)
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.lots, m.deleted, m.sessions, m.notifications = lots, deleted, sessions, notifications
		m.mu.Unlock()
		return err
	}
	return nil
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// tick returns a strictly increasing creation timestamp.
func (m *memStore) tick() time.Time {
	m.seq = m.seq.Add(time.Second)
	return m.seq
}

func (m *memStore) addLot(name string, total, occupied int, price float64, lotType models.LotType) models.Lot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	now := m.tick()
	lot := models.Lot{
		ID:            m.nextID,
		Name:          name,
		PricePerHour:  price,
		TotalSpots:    total,
		OccupiedSpots: occupied,
		Type:          lotType,
		Status:        models.StatusFor(occupied, total),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.lots[lot.ID] = lot
	return lot
}

func (m *memStore) lot(id int64) models.Lot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lots[id]
}

func (m *memStore) session(id int64) models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

func (m *memStore) openSessions(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sessions {
		if s.UserID == userID && s.Status.Open() {
			n++
		}
	}
	return n
}

type memLots struct{ m *memStore }

func (r memLots) GetByID(_ context.Context, id int64) (*models.Lot, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failWith != nil {
		return nil, r.m.failWith
	}
	lot, ok := r.m.lots[id]
	if !ok || r.m.deleted[id] {
		return nil, repository.ErrNotFound
	}
	return &lot, nil
}

func (r memLots) List(_ context.Context) ([]models.Lot, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failWith != nil {
		return nil, r.m.failWith
	}
	out := make([]models.Lot, 0, len(r.m.lots))
	for id, lot := range r.m.lots {
		if !r.m.deleted[id] {
			out = append(out, lot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memLots) AdjustOccupancy(_ context.Context, id int64, delta int) (*models.Lot, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failWith != nil {
		return nil, r.m.failWith
	}
	lot, ok := r.m.lots[id]
	if !ok || (delta > 0 && r.m.deleted[id]) {
		return nil, repository.ErrNotFound
	}
	if delta > 0 && lot.OccupiedSpots+delta > lot.TotalSpots {
		return nil, repository.ErrInsufficientCapacity
	}
	lot.OccupiedSpots += delta
	if lot.OccupiedSpots < 0 {
		lot.OccupiedSpots = 0
	}
	lot.Status = models.StatusFor(lot.OccupiedSpots, lot.TotalSpots)
	r.m.lots[id] = lot
	return &lot, nil
}

func (r memLots) AvailableSlots(ctx context.Context, id int64) (int, error) {
	lot, err := r.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return lot.AvailableSlots(), nil
}

func (r memLots) Create(_ context.Context, lot *models.Lot) (*models.Lot, error) {
	created := r.m.addLot(lot.Name, lot.TotalSpots, 0, lot.PricePerHour, lot.Type)
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	created.Lat, created.Lon = lot.Lat, lot.Lon
	r.m.lots[created.ID] = created
	return &created, nil
}

func (r memLots) Update(_ context.Context, lot *models.Lot) (*models.Lot, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	current, ok := r.m.lots[lot.ID]
	if !ok || r.m.deleted[lot.ID] {
		return nil, repository.ErrNotFound
	}
	if current.OccupiedSpots > lot.TotalSpots {
		return nil, repository.ErrLotInUse
	}
	current.Name, current.Lat, current.Lon = lot.Name, lot.Lat, lot.Lon
	current.PricePerHour, current.TotalSpots, current.Type = lot.PricePerHour, lot.TotalSpots, lot.Type
	current.Status = models.StatusFor(current.OccupiedSpots, current.TotalSpots)
	r.m.lots[lot.ID] = current
	return &current, nil
}

func (r memLots) Delete(_ context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	lot, ok := r.m.lots[id]
	if !ok || r.m.deleted[id] {
		return repository.ErrNotFound
	}
	if lot.OccupiedSpots > 0 {
		return repository.ErrLotInUse
	}
	for _, s := range r.m.sessions {
		if s.LotID == id && s.Status.Open() {
			return repository.ErrLotInUse
		}
	}
	r.m.deleted[id] = true
	return nil
}

type memSessions struct{ m *memStore }

func (r memSessions) Create(_ context.Context, session *models.Session) (*models.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failWith != nil {
		return nil, r.m.failWith
	}
	for _, s := range r.m.sessions {
		if s.UserID == session.UserID && s.Status.Open() && session.Status.Open() {
			return nil, repository.ErrOpenSessionExists
		}
	}
	r.m.nextID++
	created := *session
	created.ID = r.m.nextID
	created.CreatedAt = r.m.tick()
	created.UpdatedAt = created.CreatedAt
	r.m.sessions[created.ID] = created
	return &created, nil
}

func (r memSessions) GetByID(_ context.Context, id int64) (*models.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r memSessions) find(match func(models.Session) bool) (*models.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failWith != nil {
		return nil, r.m.failWith
	}
	var best *models.Session
	for _, s := range r.m.sessions {
		if !match(s) {
			continue
		}
		if best == nil || s.CreatedAt.After(best.CreatedAt) {
			candidate := s
			best = &candidate
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	return best, nil
}

func (r memSessions) FindOpenByUser(_ context.Context, userID int64) (*models.Session, error) {
	return r.find(func(s models.Session) bool { return s.UserID == userID && s.Status.Open() })
}

func (r memSessions) FindLatestBooked(_ context.Context, userID, lotID int64) (*models.Session, error) {
	return r.find(func(s models.Session) bool {
		return s.UserID == userID && s.LotID == lotID && s.Status == models.SessionBooked
	})
}

func (r memSessions) FindActive(_ context.Context, userID, lotID int64) (*models.Session, error) {
	return r.find(func(s models.Session) bool {
		return s.UserID == userID && s.Status == models.SessionActive && (lotID == 0 || s.LotID == lotID)
	})
}

func (r memSessions) cas(id int64, from models.SessionStatus, apply func(*models.Session)) (*models.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failWith != nil {
		return nil, r.m.failWith
	}
	s, ok := r.m.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if s.Status != from {
		return nil, repository.ErrStaleState
	}
	apply(&s)
	r.m.sessions[id] = s
	return &s, nil
}

func (r memSessions) Activate(_ context.Context, id int64, at time.Time) (*models.Session, error) {
	return r.cas(id, models.SessionBooked, func(s *models.Session) {
		s.Status = models.SessionActive
		s.StartTime = at
	})
}

func (r memSessions) Complete(_ context.Context, id int64, at time.Time, amount float64) (*models.Session, error) {
	return r.cas(id, models.SessionActive, func(s *models.Session) {
		s.Status = models.SessionCompleted
		s.EndTime.SetValid(at)
		s.TotalAmount = amount
	})
}

func (r memSessions) Cancel(_ context.Context, id int64, at time.Time) (*models.Session, error) {
	return r.cas(id, models.SessionBooked, func(s *models.Session) {
		s.Status = models.SessionCancelled
		s.UpdatedAt = at
	})
}

func (r memSessions) list(match func(models.Session) bool, limit int) []models.Session {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]models.Session, 0)
	for _, s := range r.m.sessions {
		if match(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r memSessions) ListByUser(_ context.Context, userID int64, limit int) ([]models.Session, error) {
	return r.list(func(s models.Session) bool { return s.UserID == userID }, limit), nil
}

func (r memSessions) ListActive(_ context.Context, limit int) ([]models.Session, error) {
	return r.list(func(s models.Session) bool { return s.Status == models.SessionActive }, limit), nil
}

func (r memSessions) ListExpiredBookings(_ context.Context, before time.Time, limit int) ([]models.Session, error) {
	return r.list(func(s models.Session) bool {
		return s.Status == models.SessionBooked && s.EndTime.Valid && s.EndTime.Time.Before(before)
	}, limit), nil
}

type memNotifications struct{ m *memStore }

func (r memNotifications) Create(_ context.Context, n *models.Notification) (*models.Notification, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.nextID++
	created := *n
	created.ID = r.m.nextID
	created.CreatedAt = r.m.tick()
	r.m.notifications[created.ID] = created
	return &created, nil
}

func (r memNotifications) ListByUser(_ context.Context, userID int64, unreadOnly bool, limit int) ([]models.Notification, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]models.Notification, 0)
	for _, n := range r.m.notifications {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memNotifications) MarkRead(_ context.Context, userID, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n, ok := r.m.notifications[id]
	if !ok || n.UserID != userID {
		return repository.ErrNotFound
	}
	n.IsRead = true
	r.m.notifications[id] = n
	return nil
}

func (r memNotifications) MarkAllRead(_ context.Context, userID int64) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var changed int64
	for id, n := range r.m.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			r.m.notifications[id] = n
			changed++
		}
	}
	return changed, nil
}

// hookedStore runs afterFindOpen once, right after the next non-transactional open-session read.
type hookedStore struct {
	*memStore
	afterFindOpen func()
}

func (h *hookedStore) Sessions() repository.SessionRepository {
	return hookedSessions{memSessions: memSessions{h.memStore}, store: h}
}

type hookedSessions struct {
	memSessions
	store *hookedStore
}

func (r hookedSessions) FindOpenByUser(ctx context.Context, userID int64) (*models.Session, error) {
	session, err := r.memSessions.FindOpenByUser(ctx, userID)
	if hook := r.store.afterFindOpen; hook != nil {
		r.store.afterFindOpen = nil
		hook()
	}
	return session, err
}

// recordingNotifier captures notifications synchronously.
type recordingNotifier struct {
	mu    sync.Mutex
	items []models.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, item models.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, item)
}

func (n *recordingNotifier) all() []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.Notification(nil), n.items...)
}

// mapCache is an in-memory ActiveSessionCache.
type mapCache struct {
	mu       sync.Mutex
	sessions map[int64]models.Session
	failGet  error
}

func newMapCache() *mapCache {
	return &mapCache{sessions: make(map[int64]models.Session)}
}

func (c *mapCache) Save(_ context.Context, session models.Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[session.UserID] = session
	return nil
}

func (c *mapCache) Get(_ context.Context, userID int64) (*models.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet != nil {
		return nil, c.failGet
	}
	s, ok := c.sessions[userID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (c *mapCache) Delete(_ context.Context, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, userID)
	return nil
}
