package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/liliang-cn/policychat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T, status int, body string, inspect func(r *http.Request)) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inspect != nil {
			inspect(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return NewHTTPClient(Config{URL: srv.URL})
}

func TestAskSendsQuestionAndHistory(t *testing.T) {
	var got map[string]any
	var method, contentType string
	client := newBackend(t, http.StatusOK, `{"text":"ok"}`, func(r *http.Request) {
		method = r.Method
		contentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&got)
	})

	_, err := client.Ask(context.Background(), domain.ChatRequest{
		Question: "and X?",
		History:  []domain.ContextPair{{Question: "q1", Answer: "a1"}},
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "and X?", got["question"])
	assert.Equal(t, []any{[]any{"q1", "a1"}}, got["history"])
}

func TestAskSendsEmptyHistoryAsArray(t *testing.T) {
	var raw []byte
	client := newBackend(t, http.StatusOK, `{"text":"ok"}`, func(r *http.Request) {
		raw, _ = io.ReadAll(r.Body)
	})

	_, err := client.Ask(context.Background(), domain.ChatRequest{Question: "first"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"question":"first","history":[]}`, string(raw))
}

func TestAskSendsConfiguredHeaders(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("X-Api-Key")
		_, _ = io.WriteString(w, `{"text":"ok"}`)
	}))
	defer srv.Close()

	client := NewHTTPClient(Config{URL: srv.URL, Headers: map[string]string{"X-Api-Key": "secret"}})
	_, err := client.Ask(context.Background(), domain.ChatRequest{Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, "secret", auth)
}

func TestAskDecodesAnswerWithSources(t *testing.T) {
	client := newBackend(t, http.StatusOK, `{
		"text": "Policy X says...",
		"sourceDocuments": [
			{"pageContent": "...", "metadata": {"source": "doc1", "page": 4}},
			{"pageContent": "more"}
		]
	}`, nil)

	resp, err := client.Ask(context.Background(), domain.ChatRequest{Question: "What is the policy on X?"})
	require.NoError(t, err)
	assert.Equal(t, "Policy X says...", resp.Text)
	require.Len(t, resp.SourceDocuments, 2)
	assert.Equal(t, "doc1", resp.SourceDocuments[0].Metadata["source"])
	assert.Nil(t, resp.SourceDocuments[1].Metadata)

	c := resp.Citations()
	require.Equal(t, 2, c.Len())
	assert.Equal(t, "doc1", c.At(0).Origin)
}

func TestAskErrorFieldIsLogical(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusInternalServerError} {
		client := newBackend(t, status, `{"error":"rate limited"}`, nil)

		_, err := client.Ask(context.Background(), domain.ChatRequest{Question: "q"})
		var logical *LogicalError
		require.ErrorAs(t, err, &logical)
		assert.Equal(t, "rate limited", logical.Message)
		assert.Equal(t, status, logical.Status)
		assert.Equal(t, "rate limited", UserMessage(err))
	}
}

func TestAskTransportFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error without body", status: http.StatusInternalServerError, body: ""},
		{name: "server error with html", status: http.StatusBadGateway, body: "<html>bad gateway</html>"},
		{name: "server error without error field", status: http.StatusInternalServerError, body: `{"text":"partial"}`},
		{name: "malformed json", status: http.StatusOK, body: `{"text":`},
		{name: "not an object", status: http.StatusOK, body: `["text"]`},
		{name: "missing text", status: http.StatusOK, body: `{"sourceDocuments":[]}`},
		{name: "text not a string", status: http.StatusOK, body: `{"text":42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newBackend(t, tt.status, tt.body, nil)

			resp, err := client.Ask(context.Background(), domain.ChatRequest{Question: "q"})
			assert.Nil(t, resp)
			var transport *TransportError
			require.ErrorAs(t, err, &transport)
			assert.Equal(t, tt.status, transport.Status)
			assert.Equal(t, domain.GenericFailureMessage, UserMessage(err))
		})
	}
}

func TestAskUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewHTTPClient(Config{URL: url})
	_, err := client.Ask(context.Background(), domain.ChatRequest{Question: "q"})

	var transport *TransportError
	require.ErrorAs(t, err, &transport)
	assert.Zero(t, transport.Status)
}

func TestAskHonorsContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := NewHTTPClient(Config{URL: srv.URL})
	_, err := client.Ask(ctx, domain.ChatRequest{Question: "q"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestDecodeResponseErrorShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "string", body: `{"error":"quota exceeded"}`, want: "quota exceeded"},
		{name: "object with message", body: `{"error":{"message":"index missing","code":7}}`, want: "index missing"},
		{name: "object without message", body: `{"error":{"code":7}}`, want: `{"code":7}`},
		{name: "true", body: `{"error":true}`, want: domain.GenericFailureMessage},
		{name: "number", body: `{"error":503}`, want: "503"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeResponse(http.StatusOK, []byte(tt.body))
			var logical *LogicalError
			require.ErrorAs(t, err, &logical)
			assert.Equal(t, tt.want, logical.Message)
		})
	}
}

func TestDecodeResponseFalsyErrorIsIgnored(t *testing.T) {
	for _, body := range []string{
		`{"text":"fine","error":null}`,
		`{"text":"fine","error":""}`,
		`{"text":"fine","error":false}`,
		`{"text":"fine","error":0}`,
	} {
		resp, err := DecodeResponse(http.StatusOK, []byte(body))
		require.NoError(t, err, body)
		assert.Equal(t, "fine", resp.Text)
	}
}

func TestDecodeResponseVariableSources(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantLen int
	}{
		{name: "absent", body: `{"text":"a"}`, wantLen: 0},
		{name: "null", body: `{"text":"a","sourceDocuments":null}`, wantLen: 0},
		{name: "empty", body: `{"text":"a","sourceDocuments":[]}`, wantLen: 0},
		{name: "not an array", body: `{"text":"a","sourceDocuments":"doc1"}`, wantLen: 0},
		{name: "mixed items", body: `{"text":"a","sourceDocuments":[{"pageContent":"p"},"junk",null,{"metadata":{"source":"s"}}]}`, wantLen: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := DecodeResponse(http.StatusOK, []byte(tt.body))
			require.NoError(t, err)
			assert.Len(t, resp.SourceDocuments, tt.wantLen)
			assert.Equal(t, tt.wantLen > 0, resp.Citations().Present())
		})
	}
}

func TestDecodeResponseNumericSource(t *testing.T) {
	resp, err := DecodeResponse(http.StatusOK, []byte(`{"text":"a","sourceDocuments":[
		{"pageContent":"p","metadata":{"source":12}},
		{"pageContent":"p","metadata":{"source":1000000}}
	]}`))
	require.NoError(t, err)
	assert.Equal(t, "12", resp.Citations().At(0).Origin)
	assert.Equal(t, "1000000", resp.Citations().At(1).Origin)
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "nope", UserMessage(&LogicalError{Message: "nope"}))
	assert.Equal(t, domain.GenericFailureMessage, UserMessage(&LogicalError{}))
	assert.Equal(t, domain.GenericFailureMessage, UserMessage(&TransportError{Err: errors.New("dial")}))
	assert.Equal(t, domain.GenericFailureMessage, UserMessage(errors.New("anything")))
}

func TestTransportErrorUnwraps(t *testing.T) {
	err := &TransportError{Status: 502, Err: errInvalidJSON}
	assert.ErrorIs(t, err, errInvalidJSON)
	assert.Contains(t, err.Error(), "502")
}
