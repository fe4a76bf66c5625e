package session

import (
	"time"

	"github.com/liliang-cn/policychat/internal/domain"
)

// EventType names a change to the session state
type EventType string

const (
	EventRoundStarted  EventType = "round_started"
	EventRoundAnswered EventType = "round_answered"
	EventRoundFailed   EventType = "round_failed"
	EventDraftChanged  EventType = "draft_changed"
	EventReset         EventType = "reset"
)

// Event describes one state change. Turn is set when the change appended a turn.
type Event struct {
	Type          EventType
	SessionID     string
	RoundID       string
	Turn          *domain.Turn
	Error         string
	Duration      time.Duration
	TranscriptLen int
	Awaiting      bool
}

// Listener receives events in the order the changes were made.
// Listeners run synchronously and must not call mutating Controller methods.
type Listener func(Event)

type subscribers struct {
	next int
	fns  map[int]Listener
	// order keeps dispatch deterministic
	order []int
}

func (s *subscribers) add(fn Listener) int {
	if s.fns == nil {
		s.fns = make(map[int]Listener)
	}
	id := s.next
	s.next++
	s.fns[id] = fn
	s.order = append(s.order, id)
	return id
}

func (s *subscribers) remove(id int) {
	if _, ok := s.fns[id]; !ok {
		return
	}
	delete(s.fns, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *subscribers) list() []Listener {
	out := make([]Listener, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.fns[id])
	}
	return out
}
