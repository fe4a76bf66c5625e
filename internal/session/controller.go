package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/liliang-cn/policychat/internal/backend"
	"github.com/liliang-cn/policychat/internal/domain"
	"go.uber.org/zap"
)

var errNoAnswerer = errors.New("no backend configured")

// Options configures a Controller
type Options struct {
	Greeting      string
	MaxInputRunes int // zero disables the length check
	Logger        *zap.Logger
	Now           func() time.Time
}

// Controller owns the state of the single active conversation and runs at
// most one backend round at a time.
type Controller struct {
	answerer backend.Answerer
	greeting string
	maxRunes int
	logger   *zap.Logger
	now      func() time.Time

	mu         sync.Mutex
	sessionID  string
	epoch      uint64
	transcript *Transcript
	history    *History
	pending    string
	awaiting   bool
	lastErr    string
	inflight   *Round
	subs       subscribers
	queue      []Event

	dispatchMu sync.Mutex
}

// NewController creates a controller with a fresh seeded session
func NewController(answerer backend.Answerer, opts Options) *Controller {
	if opts.Greeting == "" {
		opts.Greeting = domain.DefaultWelcomeMessage
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := &Controller{
		answerer: answerer,
		greeting: opts.Greeting,
		maxRunes: opts.MaxInputRunes,
		logger:   opts.Logger,
		now:      opts.Now,
	}
	c.startEpochLocked()
	return c
}

func (c *Controller) startEpochLocked() {
	c.epoch++
	c.sessionID = uuid.New().String()
	c.transcript = newTranscript(c.greeting, c.now)
	c.history = NewHistory()
	c.pending = ""
	c.awaiting = false
	c.lastErr = ""
	c.inflight = nil
}

// Submit runs one full round: validate, append the question, ask the backend
// and reconcile the answer. Backend failures are recorded in the session and
// reported through Outcome; the returned error is only set when the input was
// rejected or the round went stale.
func (c *Controller) Submit(ctx context.Context, rawInput string) (Outcome, error) {
	round, err := c.Begin(rawInput)
	if err != nil {
		return Outcome{}, err
	}
	resp, askErr := c.Ask(ctx, round)
	return c.Settle(round, resp, askErr)
}

// Begin validates input, appends the user turn and marks the session as
// awaiting. The returned round must be passed to Settle exactly once.
func (c *Controller) Begin(rawInput string) (*Round, error) {
	question := strings.TrimSpace(rawInput)
	if question == "" {
		return nil, domain.ErrEmptyInput
	}
	if c.maxRunes > 0 && utf8.RuneCountInString(question) > c.maxRunes {
		return nil, fmt.Errorf("%w: %d characters allowed", domain.ErrInputTooLong, c.maxRunes)
	}

	c.mu.Lock()
	if c.awaiting {
		c.mu.Unlock()
		return nil, domain.ErrBusy
	}

	c.lastErr = ""
	history := c.history.Snapshot()
	turn := c.transcript.Append(domain.UserTurn(question))
	c.awaiting = true
	c.pending = ""

	round := &Round{
		ID:        uuid.New().String(),
		Epoch:     c.epoch,
		Question:  question,
		History:   history,
		StartedAt: c.now(),
	}
	c.inflight = round

	ev := c.eventLocked(EventRoundStarted, round.ID)
	ev.Turn = &turn
	c.unlockAndDispatch(ev)

	c.logger.Debug("round started",
		zap.String("session_id", ev.SessionID),
		zap.String("round_id", round.ID),
		zap.Int("history_pairs", len(history)),
	)
	return round, nil
}

// Ask calls the backend for round. A panicking backend is reported as a
// transport failure so the round can still be settled.
func (c *Controller) Ask(ctx context.Context, round *Round) (resp *domain.ChatResponse, err error) {
	if round == nil {
		return nil, domain.ErrInvalidRequest
	}
	if c.answerer == nil {
		return nil, &backend.TransportError{Err: errNoAnswerer}
	}
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = &backend.TransportError{Err: fmt.Errorf("backend panicked: %v", r)}
		}
	}()
	return c.answerer.Ask(ctx, round.Request())
}

// Settle reconciles the backend result of round into the session. A round
// from a previous epoch, or one already settled, is discarded untouched.
func (c *Controller) Settle(round *Round, resp *domain.ChatResponse, askErr error) (Outcome, error) {
	if round == nil {
		return Outcome{}, domain.ErrInvalidRequest
	}

	c.mu.Lock()
	if round.Epoch != c.epoch || c.inflight == nil || c.inflight.ID != round.ID {
		c.mu.Unlock()
		c.logger.Debug("discarding stale round", zap.String("round_id", round.ID))
		return Outcome{Status: OutcomeDiscarded, RoundID: round.ID}, domain.ErrStaleRound
	}

	c.inflight = nil
	c.awaiting = false
	elapsed := c.now().Sub(round.StartedAt)

	if askErr == nil {
		switch {
		case resp == nil:
			askErr = &backend.TransportError{Err: errors.New("empty response")}
		case resp.Error != "":
			askErr = &backend.LogicalError{Message: resp.Error}
		}
	}

	out := Outcome{RoundID: round.ID, Duration: elapsed}
	var ev Event
	if askErr != nil {
		c.lastErr = backend.UserMessage(askErr)
		out.Status = OutcomeFailed
		out.Error = c.lastErr
		ev = c.eventLocked(EventRoundFailed, round.ID)
		ev.Error = c.lastErr
	} else {
		turn := c.transcript.Append(domain.AssistantTurn(resp.Text, resp.Citations()))
		c.history.Append(round.Question, resp.Text)
		out.Status = OutcomeAnswered
		out.Answer = &turn
		ev = c.eventLocked(EventRoundAnswered, round.ID)
		ev.Turn = &turn
	}
	pairs := c.history.Len()
	ev.Duration = elapsed
	c.unlockAndDispatch(ev)

	if askErr != nil {
		c.logger.Warn("round failed",
			zap.String("session_id", ev.SessionID),
			zap.String("round_id", round.ID),
			zap.Duration("elapsed", elapsed),
			zap.Error(askErr),
		)
	} else {
		c.logger.Info("round answered",
			zap.String("session_id", ev.SessionID),
			zap.String("round_id", round.ID),
			zap.Int("citations", out.Answer.Citations.Len()),
			zap.Int("history_pairs", pairs),
			zap.Duration("elapsed", elapsed),
		)
	}
	return out, nil
}

// SetDraft stores the unsent input text
func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	if c.pending == text {
		c.mu.Unlock()
		return
	}
	c.pending = text
	c.unlockAndDispatch(c.eventLocked(EventDraftChanged, ""))
}

// Reset discards the conversation and starts a new session epoch.
// Rounds still in flight will be discarded when they settle.
func (c *Controller) Reset() {
	c.mu.Lock()
	old := c.sessionID
	c.startEpochLocked()
	ev := c.eventLocked(EventReset, "")
	c.unlockAndDispatch(ev)

	c.logger.Info("session reset", zap.String("previous_session_id", old), zap.String("session_id", ev.SessionID))
}

// Snapshot returns the renderer view of the session
func (c *Controller) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.Snapshot{
		SessionID:        c.sessionID,
		Turns:            c.transcript.Current(),
		ContextPairs:     c.history.Snapshot(),
		PendingInput:     c.pending,
		AwaitingResponse: c.awaiting,
		LastError:        c.lastErr,
	}
}

// Subscribe registers fn for every subsequent event. The returned func removes it.
func (c *Controller) Subscribe(fn Listener) func() {
	c.mu.Lock()
	id := c.subs.add(fn)
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.subs.remove(id)
			c.mu.Unlock()
		})
	}
}

func (c *Controller) eventLocked(t EventType, roundID string) Event {
	return Event{
		Type:          t,
		SessionID:     c.sessionID,
		RoundID:       roundID,
		TranscriptLen: c.transcript.Len(),
		Awaiting:      c.awaiting,
		Error:         c.lastErr,
	}
}

// unlockAndDispatch queues ev, releases mu and drains the queue. Whoever holds
// dispatchMu delivers every queued event, so listeners see mutation order.
func (c *Controller) unlockAndDispatch(ev Event) {
	c.queue = append(c.queue, ev)
	c.mu.Unlock()

	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()
	for {
		c.mu.Lock()
		if len(c.queue) == 0 {
			c.mu.Unlock()
			return
		}
		next := c.queue[0]
		c.queue = c.queue[1:]
		listeners := c.subs.list()
		c.mu.Unlock()

		for _, fn := range listeners {
			fn(next)
		}
	}
}
