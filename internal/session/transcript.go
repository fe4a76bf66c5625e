package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/liliang-cn/policychat/internal/domain"
)

// Transcript is the append-only log of turns shown to the user.
// It is not safe for concurrent use; the Controller serializes access.
type Transcript struct {
	turns []domain.Turn
	now   func() time.Time
}

// NewTranscript creates a transcript seeded with the greeting turn
func NewTranscript(greeting string) *Transcript {
	return newTranscript(greeting, time.Now)
}

func newTranscript(greeting string, now func() time.Time) *Transcript {
	t := &Transcript{now: now}
	t.Append(domain.AssistantTurn(greeting, domain.NoCitations))
	return t
}

// Append adds turn to the end of the log and returns the stored copy
func (t *Transcript) Append(turn domain.Turn) domain.Turn {
	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = t.now()
	}
	t.turns = append(t.turns, turn)
	return turn
}

// Current returns the full ordered sequence
func (t *Transcript) Current() []domain.Turn {
	return domain.CloneTurns(t.turns)
}

// Len returns the number of turns
func (t *Transcript) Len() int {
	return len(t.turns)
}
