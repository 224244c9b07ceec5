package models

// SessionEvent drives a session state change.
type SessionEvent string

const (
	EventStart    SessionEvent = "start"
	EventBook     SessionEvent = "book"
	EventWalkIn   SessionEvent = "walk_in"
	EventEnter    SessionEvent = "enter"
	EventComplete SessionEvent = "complete"
	EventCancel   SessionEvent = "cancel"
	EventExpire   SessionEvent = "expire"
)

// Transition describes one edge of the session state machine.
// From is empty for events that create a session.
type Transition struct {
	From SessionStatus
	To   SessionStatus
	// OccupancyDelta is the lot counter change per slot the session holds.
	OccupancyDelta int
}

// Delta is the lot counter change for a session holding slots.
func (t Transition) Delta(slots int) int {
	if slots < 1 {
		slots = 1
	}
	return t.OccupancyDelta * slots
}

var transitions = map[SessionEvent]Transition{
	EventStart:    {From: "", To: SessionActive, OccupancyDelta: 1},
	EventWalkIn:   {From: "", To: SessionActive, OccupancyDelta: 1},
	EventBook:     {From: "", To: SessionBooked, OccupancyDelta: 1},
	EventEnter:    {From: SessionBooked, To: SessionActive, OccupancyDelta: 0},
	EventComplete: {From: SessionActive, To: SessionCompleted, OccupancyDelta: -1},
	EventCancel:   {From: SessionBooked, To: SessionCancelled, OccupancyDelta: -1},
	EventExpire:   {From: SessionBooked, To: SessionCancelled, OccupancyDelta: -1},
}

// TransitionFor returns the edge for ev, and false when ev does not apply to from.
func TransitionFor(from SessionStatus, ev SessionEvent) (Transition, bool) {
	t, ok := transitions[ev]
	if !ok || t.From != from {
		return Transition{}, false
	}
	return t, true
}
