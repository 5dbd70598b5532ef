// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jeranaias/ragdesk/internal/model"
)

// Configuration constants for the HTTP backend.
const (
	// DefaultURL is where a locally started backend listens.
	DefaultURL = "http://127.0.0.1:8000"

	// DefaultMaxRetries is the retry budget for transient failures.
	DefaultMaxRetries = 3

	// MaxResponseSize bounds a response body.
	MaxResponseSize = 10 * 1024 * 1024
)

// API routes.
const (
	routeQuery      = "/api/query"
	routeAudioQuery = "/api/query/audio"
	routeUploads    = "/api/uploads"
	routeDocuments  = "/api/documents"
	routeOpen       = "/api/open"
)

// ClientConfig configures the HTTP backend client.
type ClientConfig struct {
	BaseURL string
	// Timeout bounds a whole request including retries. Zero means the
	// caller's context is the only limit.
	Timeout      time.Duration
	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
	UserAgent string
}

// DefaultClientConfig returns sensible defaults for a local backend.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:      DefaultURL,
		MaxRetries:   DefaultMaxRetries,
		RetryWaitMin: 500 * time.Millisecond,
		RetryWaitMax: 10 * time.Second,
		RateLimit:    5,
		UserAgent:    "ragdesk",
	}
}

// =============================================================================
// HTTP CLIENT
// =============================================================================

// Client implements Backend over the RAG service's HTTP API.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// Compile-time check.
var _ Backend = (*Client)(nil)

// NewClient creates a backend client. Retries are handled by a
// retryablehttp transport underneath resty.
func NewClient(cfg ClientConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultURL
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.MaxRetries
	if cfg.RetryWaitMin > 0 {
		retryClient.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		retryClient.RetryWaitMax = cfg.RetryWaitMax
	}
	retryClient.Logger = retryLogger{log.Sugar().Named("retry")}
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	r := resty.NewWithClient(retryClient.StandardClient()).
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetResponseBodyLimit(MaxResponseSize)
	if cfg.UserAgent != "" {
		r.SetHeader("User-Agent", cfg.UserAgent)
	}
	if cfg.Timeout > 0 {
		r.SetTimeout(cfg.Timeout)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &Client{resty: r, limiter: limiter, log: log}
}

// SendTextQuery asks a question.
func (c *Client) SendTextQuery(ctx context.Context, message string) (Answer, error) {
	var ans Answer
	err := c.do(ctx, http.MethodPost, routeQuery, func(req *resty.Request) {
		req.SetBody(map[string]string{"message": message}).SetResult(&ans)
	})
	if err != nil {
		return Answer{}, fmt.Errorf("text query: %w", err)
	}
	return ans, nil
}

// SendAudioQuery uploads a recorded question.
func (c *Client) SendAudioQuery(ctx context.Context, payload []byte, fileName string) (Answer, error) {
	var ans Answer
	err := c.do(ctx, http.MethodPost, routeAudioQuery, func(req *resty.Request) {
		req.SetFileReader("file", fileName, bytes.NewReader(payload)).SetResult(&ans)
	})
	if err != nil {
		return Answer{}, fmt.Errorf("audio query: %w", err)
	}
	return ans, nil
}

// UploadAttachments asks the backend to ingest attachments of kind.
func (c *Client) UploadAttachments(ctx context.Context, kind model.AttachmentKind) (UploadResult, error) {
	var res UploadResult
	err := c.do(ctx, http.MethodPost, routeUploads, func(req *resty.Request) {
		req.SetBody(map[string]string{"kind": string(kind)}).SetResult(&res)
	})
	if err != nil {
		return UploadResult{}, fmt.Errorf("upload %s: %w", kind, err)
	}
	if res.Status == StatusError {
		return res, &APIError{Status: http.StatusOK, Message: res.Message}
	}
	return res, nil
}

// ListDocuments returns the indexed document set.
func (c *Client) ListDocuments(ctx context.Context) ([]model.Document, error) {
	var body struct {
		Documents []model.Document `json:"documents"`
	}
	err := c.do(ctx, http.MethodGet, routeDocuments, func(req *resty.Request) {
		req.SetResult(&body)
	})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return body.Documents, nil
}

// OpenExternally asks the backend host to open a file with its default
// application.
func (c *Client) OpenExternally(ctx context.Context, absPath string) (OpenResult, error) {
	var res OpenResult
	err := c.do(ctx, http.MethodPost, routeOpen, func(req *resty.Request) {
		req.SetBody(map[string]string{"path": absPath}).SetResult(&res)
	})
	if err != nil {
		return OpenResult{}, fmt.Errorf("open %s: %w", absPath, err)
	}
	return res, nil
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func (b errorBody) text() string {
	switch {
	case b.Error != "":
		return b.Error
	case b.Message != "":
		return b.Message
	default:
		return b.Detail
	}
}

func (c *Client) do(ctx context.Context, method, route string, build func(*resty.Request)) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var eb errorBody
	req := c.resty.R().SetContext(ctx).SetError(&eb)
	build(req)

	start := time.Now()
	resp, err := req.Execute(method, route)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.log.Warn("backend request failed",
			zap.String("method", method),
			zap.String("route", route),
			zap.Error(err))
		return err
	}

	c.log.Debug("backend request",
		zap.String("method", method),
		zap.String("route", route),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("elapsed", time.Since(start)))

	if resp.IsError() {
		msg := eb.text()
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		return &APIError{Status: resp.StatusCode(), Message: msg}
	}
	return nil
}

// IsConnectivity reports whether err means the backend could not be
// reached or answered with a server failure.
func IsConnectivity(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrCanceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return true
}

// retryLogger adapts zap to retryablehttp's LeveledLogger.
type retryLogger struct {
	s *zap.SugaredLogger
}

func (l retryLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l retryLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l retryLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l retryLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
