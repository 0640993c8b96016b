package checker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"hammer-relay/internal/config"
)

// Checker submits proof code to a proof-checking service.
type Checker interface {
	Check(ctx context.Context, code string) (*Result, error)
}

// Result is the decoded response of the remote checker.
type Result struct {
	Status    int    `json:"status"` // 0 means the proof was accepted
	Log       string `json:"log,omitempty"`
	Output    string `json:"output,omitempty"`
	HasOutput bool   `json:"-"`
}

// HTTPChecker talks to a livecode-style checker: the code goes out as the form
// field "v", a JSON object with "status", "log" and an output field comes back.
type HTTPChecker struct {
	url         string
	outputField string
	maxBody     int64
	userAgent   string
	client      *http.Client
}

// New creates an HTTPChecker from the checker section of the config.
func New(cfg config.CheckerConfig) *HTTPChecker {
	return &HTTPChecker{
		url:         cfg.URL,
		outputField: cfg.OutputField,
		maxBody:     cfg.MaxResponseBytes,
		userAgent:   cfg.UserAgent,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// URL returns the endpoint submissions are posted to.
func (c *HTTPChecker) URL() string {
	return c.url
}

// Check posts code to the checker and decodes its verdict.
func (c *HTTPChecker) Check(ctx context.Context, code string) (*Result, error) {
	form := url.Values{"v": {code}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &CheckError{Op: "request", Err: fmt.Errorf("%w: %v", ErrUnreachable, err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &CheckError{Op: "request", Err: fmt.Errorf("%w: %v", ErrTimeout, err)}
		}
		return nil, &CheckError{Op: "request", Err: fmt.Errorf("%w: %v", ErrUnreachable, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		if isTimeout(err) {
			return nil, &CheckError{Op: "read", Err: fmt.Errorf("%w: %v", ErrTimeout, err)}
		}
		return nil, &CheckError{Op: "read", Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
	}
	if int64(len(body)) > c.maxBody {
		return nil, &CheckError{Op: "read", Err: fmt.Errorf("%w: body exceeds %d bytes", ErrMalformedResponse, c.maxBody)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &CheckError{Op: "request", Err: fmt.Errorf("%w: %d %s", ErrBadStatus, resp.StatusCode, snippet(body))}
	}

	result, err := Decode(body, c.outputField)
	if err != nil {
		return nil, &CheckError{Op: "decode", Err: err}
	}
	return result, nil
}

// Decode parses a checker response body. outputField names the single field used
// both to detect and to read the informational output.
func Decode(body []byte, outputField string) (*Result, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	rawStatus, ok := fields["status"]
	if !ok {
		return nil, fmt.Errorf("%w: missing status", ErrMalformedResponse)
	}
	if isNull(rawStatus) {
		return nil, fmt.Errorf("%w: status is null", ErrMalformedResponse)
	}
	var res Result
	if err := json.Unmarshal(rawStatus, &res.Status); err != nil {
		return nil, fmt.Errorf("%w: status: %v", ErrMalformedResponse, err)
	}

	if raw, ok := fields["log"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &res.Log); err != nil {
			return nil, fmt.Errorf("%w: log: %v", ErrMalformedResponse, err)
		}
	}

	if raw, ok := fields[outputField]; ok {
		res.Output, res.HasOutput = outputText(raw)
	}

	return &res, nil
}

// outputText converts the output field into text. null, false and "" count as absent;
// any other non-string JSON value is passed through as its literal text.
func outputText(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if isNull(trimmed) || bytes.Equal(trimmed, []byte("false")) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s, s != ""
	}
	return string(trimmed), true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func snippet(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
