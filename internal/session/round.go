package session

import (
	"encoding/json"
	"time"

	"github.com/liliang-cn/policychat/internal/domain"
)

// Round is one question on its way to the backend
type Round struct {
	ID        string
	Epoch     uint64
	Question  string
	History   []domain.ContextPair // pairs as they stood before Question was appended
	StartedAt time.Time
}

// Request builds the backend payload for the round
func (r *Round) Request() domain.ChatRequest {
	return domain.ChatRequest{
		Question: r.Question,
		History:  domain.ClonePairs(r.History),
	}
}

// OutcomeStatus is how a round ended
type OutcomeStatus string

const (
	OutcomeAnswered  OutcomeStatus = "answered"
	OutcomeFailed    OutcomeStatus = "failed"
	OutcomeDiscarded OutcomeStatus = "discarded"
)

// Outcome reports a settled round
type Outcome struct {
	Status   OutcomeStatus
	RoundID  string
	Answer   *domain.Turn
	Error    string
	Duration time.Duration
}

type outcomeJSON struct {
	Status     OutcomeStatus `json:"status"`
	RoundID    string        `json:"round_id"`
	Answer     *domain.Turn  `json:"answer,omitempty"`
	Error      string        `json:"error,omitempty"`
	DurationMs int64         `json:"duration_ms"`
}

// MarshalJSON reports the duration in whole milliseconds
func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(outcomeJSON{
		Status:     o.Status,
		RoundID:    o.RoundID,
		Answer:     o.Answer,
		Error:      o.Error,
		DurationMs: o.Duration.Milliseconds(),
	})
}

// UnmarshalJSON is the inverse of MarshalJSON
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var raw outcomeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*o = Outcome{
		Status:   raw.Status,
		RoundID:  raw.RoundID,
		Answer:   raw.Answer,
		Error:    raw.Error,
		Duration: time.Duration(raw.DurationMs) * time.Millisecond,
	}
	return nil
}
