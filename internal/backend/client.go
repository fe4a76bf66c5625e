package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/liliang-cn/policychat/internal/domain"
	"go.uber.org/zap"
)

// maxResponseBytes caps how much of a backend body is read
const maxResponseBytes = 8 << 20

// Answerer answers one question against prior conversational context
type Answerer interface {
	Ask(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error)
}

// Config holds backend client settings
type Config struct {
	URL     string
	Timeout time.Duration // zero means no client-side timeout
	Headers map[string]string
}

// HTTPClient posts questions to the answering backend over HTTP
type HTTPClient struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// Option customizes an HTTPClient
type Option func(*HTTPClient)

// WithHTTPClient overrides the underlying http.Client
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) {
		if c != nil {
			h.http = c
		}
	}
}

// WithLogger sets the logger used for request diagnostics
func WithLogger(l *zap.Logger) Option {
	return func(h *HTTPClient) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHTTPClient creates a new backend client
func NewHTTPClient(cfg Config, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Answerer = (*HTTPClient)(nil)

// Ask sends one question with its history and decodes the answer
func (c *HTTPClient) Ask(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	if req.History == nil {
		req.History = []domain.ContextPair{}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("failed to build request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range c.cfg.Headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Status: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	c.logger.Debug("backend responded",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return DecodeResponse(resp.StatusCode, data)
}
