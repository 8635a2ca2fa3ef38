package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"kydx-console/chat"
	"kydx-console/config"
	apperrors "kydx-console/errors"
	"kydx-console/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "kydx-console/backend"

// StatusError is a non-success response. Detail carries the backend's
// human-readable explanation when it sent one.
type StatusError struct {
	Code   int
	Status string
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend status %s: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("backend status %s", e.Status)
}

func (e *StatusError) Unwrap() error {
	return apperrors.ErrTransport
}

// Detail extracts a user-presentable detail string from err, if the backend supplied one.
func Detail(err error) (string, bool) {
	var se *StatusError
	if apperrors.As(err, &se) && strings.TrimSpace(se.Detail) != "" {
		return se.Detail, true
	}
	return "", false
}

type Client struct {
	cfg        *config.Config
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	tracer     trace.Tracer
}

func New(cfg *config.Config, logger *zap.Logger) *Client {
	return &Client{
		cfg:        cfg,
		baseURL:    strings.TrimRight(cfg.BackendURL, "/"),
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     logger,
		tracer:     otel.Tracer(tracerName),
	}
}

// BaseURL is the backend root that media locators are relative to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ClearHistory asks the backend to forget the previous conversation.
func (c *Client) ClearHistory(ctx context.Context) error {
	return c.do(ctx, "clear_history", http.MethodPost, "/clear_history", nil, nil)
}

// Intro fetches the greeting. An empty string means no greeting.
func (c *Client) Intro(ctx context.Context) (string, error) {
	var resp introResponse
	if err := c.do(ctx, "intro", http.MethodGet, "/intro", nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Chat sends a free-form query. The reply may use the TABLE: convention.
func (c *Client) Chat(ctx context.Context, query string) (string, error) {
	var resp chatResponse
	if err := c.do(ctx, "chat", http.MethodPost, "/chat", chatRequest{Query: query}, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

// VisualizeQuestions fetches the visualization wizard's questions.
func (c *Client) VisualizeQuestions(ctx context.Context, log []chat.Message) ([]string, error) {
	var resp questionsResponse
	if err := c.do(ctx, "visualize_questions", http.MethodPost, "/visualize/questions", historyRequest{History: History(log)}, &resp); err != nil {
		return nil, err
	}
	return resp.Questions, nil
}

// VisualizeComplete renders the chart. An empty URL means none was produced.
func (c *Client) VisualizeComplete(ctx context.Context, log []chat.Message, answers []string) (string, error) {
	var resp vizCompleteResponse
	req := completeRequest{History: History(log), Answers: nonNil(answers)}
	if err := c.do(ctx, "visualize_complete", http.MethodPost, "/visualize/complete", req, &resp); err != nil {
		return "", err
	}
	return deref(resp.ChartURL), nil
}

// InfographQuestions fetches the infographic wizard's questions.
func (c *Client) InfographQuestions(ctx context.Context, log []chat.Message) ([]string, error) {
	var resp questionsResponse
	if err := c.do(ctx, "infograph_questions", http.MethodPost, "/infograph/questions", historyRequest{History: History(log)}, &resp); err != nil {
		return nil, err
	}
	return resp.Questions, nil
}

// InfographComplete renders the infographic. An empty URL means none was produced.
func (c *Client) InfographComplete(ctx context.Context, log []chat.Message, answers []string) (string, error) {
	var resp infographCompleteResponse
	req := completeRequest{History: History(log), Answers: nonNil(answers)}
	if err := c.do(ctx, "infograph_complete", http.MethodPost, "/infograph/complete", req, &resp); err != nil {
		return "", err
	}
	return deref(resp.ImageURL), nil
}

// Summarize asks for a summary of the conversation and the visuals produced so far.
func (c *Client) Summarize(ctx context.Context, log []chat.Message, visuals []string) (string, error) {
	var resp summarizeResponse
	req := summarizeRequest{History: History(log), Visuals: nonNil(visuals)}
	if err := c.do(ctx, "summarize", http.MethodPost, "/summarize", req, &resp); err != nil {
		return "", err
	}
	return resp.Summary, nil
}

// MyData fetches the stored-data summary and diagram.
func (c *Client) MyData(ctx context.Context) (MyData, error) {
	var resp MyData
	if err := c.do(ctx, "my_data", http.MethodGet, "/my_data", nil, &resp); err != nil {
		return MyData{}, err
	}
	return resp, nil
}

// DirectorsCut produces a short video from the latest table in the log.
func (c *Client) DirectorsCut(ctx context.Context, log []chat.Message) (string, error) {
	var resp directorsCutResponse
	if err := c.do(ctx, "directors_cut", http.MethodPost, "/directors_cut", historyRequest{History: History(log)}, &resp); err != nil {
		return "", err
	}
	return deref(resp.VideoURL), nil
}

// DatasetSize reports the stored dataset size in bytes.
func (c *Client) DatasetSize(ctx context.Context) (int64, error) {
	var resp dbInfoResponse
	if err := c.do(ctx, "db_info", http.MethodGet, "/db_info", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Size, nil
}

// do performs one JSON call, retrying while the backend answers 503.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	ctx, span := c.tracer.Start(ctx, "backend."+op, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
	))

	err := c.roundTrip(ctx, method, path, body, out)
	telemetry.End(span, err)
	if err != nil {
		c.logger.Error("Backend call failed",
			zap.String("operation", op),
			zap.String("path", path),
			zap.Error(err))
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body, out any) error {
	var jsonBody []byte
	if body != nil {
		var err error
		jsonBody, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", path, err)
		}
	}

	url := c.baseURL + path

	var resp *http.Response
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		var reader io.Reader
		if jsonBody != nil {
			reader = bytes.NewReader(jsonBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return fmt.Errorf("create %s request: %w", path, err)
		}
		if jsonBody != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")

		r, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			// Do not retry on context cancellation/deadline
			if ctx.Err() != nil {
				break
			}
			// A POST may have been processed before the connection broke.
			if !idempotent(method, path) || attempt == c.cfg.MaxRetries-1 {
				break
			}
			c.logger.Warn("Backend unreachable, retrying", zap.String("path", path), zap.Int("attempt", attempt+1), zap.Error(err))
			if err := c.backoffSleep(ctx, attempt); err != nil {
				break
			}
			continue
		}

		if r.StatusCode == http.StatusServiceUnavailable && attempt < c.cfg.MaxRetries-1 {
			io.Copy(io.Discard, r.Body)
			r.Body.Close()
			c.logger.Warn("Backend unavailable, retrying", zap.String("path", path), zap.Int("attempt", attempt+1))
			if err := c.backoffSleep(ctx, attempt); err != nil {
				lastErr = err
				break
			}
			continue
		}

		resp = r
		break
	}
	if resp == nil {
		return fmt.Errorf("%w: no response from %s: %v", apperrors.ErrTransport, path, lastErr)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s response: %v", apperrors.ErrTransport, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Code:   resp.StatusCode,
			Status: resp.Status,
			Detail: parseDetail(bodyBytes),
		}
	}

	if out == nil || len(bytes.TrimSpace(bodyBytes)) == 0 {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", apperrors.ErrTransport, path, err)
	}
	return nil
}

// idempotent reports whether a call can be resent after a network failure.
// A 503 is always retried since the backend refused the request outright.
func idempotent(method, path string) bool {
	return method == http.MethodGet || method == http.MethodHead || path == "/clear_history"
}

// parseDetail reads FastAPI-style {"detail": "..."} bodies. Validation
// errors carry a list instead of a string; those are not user-presentable.
func parseDetail(body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		return ""
	}
	if s, ok := er.Detail.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func (c *Client) backoffSleep(ctx context.Context, attempt int) error {
	// Exponential backoff with configurable jitter and cap
	base := c.cfg.RetryDelaySeconds
	if base <= 0 {
		base = time.Second
	}
	d := base * time.Duration(1<<attempt)
	if maxWait := c.cfg.BackoffMaxSeconds; maxWait > 0 && d > maxWait {
		d = maxWait
	}
	jitterRatio := c.cfg.BackoffJitterRatio
	if jitterRatio < 0 || jitterRatio > 1 {
		jitterRatio = 0.1
	}
	if jitter := time.Duration(float64(d) * jitterRatio); jitter > 0 {
		d = d - jitter + time.Duration(rand.Int64N(int64(2*jitter)+1))
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
