package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/liliang-cn/policychat/internal/domain"
	"github.com/liliang-cn/policychat/internal/session"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAnswerer struct {
	fail bool
}

func (s stubAnswerer) Ask(_ context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	if s.fail {
		return &domain.ChatResponse{Error: "down"}, nil
	}
	return &domain.ChatResponse{Text: "answer"}, nil
}

func TestObserveCountsRounds(t *testing.T) {
	r := NewRecorder()

	r.Observe(session.Event{Type: session.EventRoundStarted, TranscriptLen: 2, Awaiting: true})
	assert.Equal(t, 1.0, testutil.ToFloat64(r.awaiting))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.turns))

	r.Observe(session.Event{Type: session.EventRoundAnswered, TranscriptLen: 3, Duration: 2 * time.Second})
	r.Observe(session.Event{Type: session.EventRoundFailed, TranscriptLen: 4, Duration: time.Second})
	r.Observe(session.Event{Type: session.EventDraftChanged, TranscriptLen: 4})

	assert.Equal(t, 0.0, testutil.ToFloat64(r.awaiting))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.turns))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.rounds.WithLabelValues("answered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.rounds.WithLabelValues("failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.duration))
}

func TestRejectedAndDiscarded(t *testing.T) {
	r := NewRecorder()

	r.Rejected(domain.ErrEmptyInput)
	r.Rejected(fmt.Errorf("%w: 5 characters allowed", domain.ErrInputTooLong))
	r.Rejected(domain.ErrBusy)
	r.Rejected(domain.ErrBusy)
	r.Rejected(domain.ErrInvalidRequest)
	r.Discarded()

	assert.Equal(t, 1.0, testutil.ToFloat64(r.rejections.WithLabelValues("empty_input")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.rejections.WithLabelValues("too_long")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.rejections.WithLabelValues("busy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.rejections.WithLabelValues("other")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.rounds.WithLabelValues("discarded")))
}

func TestRecorderFollowsController(t *testing.T) {
	r := NewRecorder()
	ctrl := session.NewController(stubAnswerer{}, session.Options{})
	ctrl.Subscribe(r.Observe)

	_, err := ctrl.Submit(context.Background(), "one")
	require.NoError(t, err)
	_, err = ctrl.Submit(context.Background(), "two")
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.rounds.WithLabelValues("answered")))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.turns))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.awaiting))

	failing := session.NewController(stubAnswerer{fail: true}, session.Options{})
	failing.Subscribe(r.Observe)
	_, err = failing.Submit(context.Background(), "three")
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.rounds.WithLabelValues("failed")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := NewRecorder()
	r.Discarded()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `policychat_rounds_total{outcome="discarded"} 1`)
	assert.Contains(t, string(body), "policychat_transcript_turns")
}
