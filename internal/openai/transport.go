package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const defaultEndpoint = "https://api.openai.com/v1/responses"

const maxResponseBodyBytes = 8 * 1024 * 1024

const (
	baseBackoff = 500 * time.Millisecond
	maxBackoff  = 4 * time.Second

	// A server asking for a longer pause than this is out of capacity for
	// a live negotiation; the call fails at once and the rule engine answers.
	maxRetryAfter = 10 * time.Second
)

type responseRequest struct {
	Model           string     `json:"model"`
	Input           []inputMsg `json:"input"`
	MaxOutputTokens int        `json:"max_output_tokens,omitempty"`
	Temperature     *float64   `json:"temperature,omitempty"`
}

type inputMsg struct {
	Role    string         `json:"role"`
	Content []inputContent `json:"content"`
}

type inputContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responseBody struct {
	OutputText string       `json:"output_text"`
	Output     []outputItem `json:"output"`
	Usage      apiUsage     `json:"usage"`
	Error      *apiError    `json:"error"`
}

type outputItem struct {
	Type    string          `json:"type"`
	Role    string          `json:"role"`
	Text    string          `json:"text"`
	Content []contentOutput `json:"content"`
}

type contentOutput struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func normalizeEndpoint(base string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(base), "/")
	switch {
	case trimmed == "":
		return defaultEndpoint
	case strings.HasSuffix(trimmed, "/responses"), strings.Contains(trimmed, "/v1/"):
		return trimmed
	case strings.HasSuffix(trimmed, "/v1"):
		return trimmed + "/responses"
	default:
		return trimmed + "/v1/responses"
	}
}

func marshalRequest(req responseRequest) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return payload, nil
}

// callResponses posts one prompt, retrying rate limits, server errors and
// dropped connections. It stops early when the next wait would not fit in
// the caller's deadline, so a throttled call hands over to the fallback
// engine instead of eating the whole reply budget.
func (c *Client) callResponses(ctx context.Context, input []inputMsg) (responseBody, error) {
	temperature := defaultTemperature
	payload, err := marshalRequest(responseRequest{
		Model:       c.model,
		Input:       input,
		Temperature: &temperature,
	})
	if err != nil {
		return responseBody{}, err
	}

	for attempt := 0; ; attempt++ {
		apiCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.doRequest(apiCtx, payload)
		cancel()
		if err == nil {
			return resp, nil
		}

		delay, retry := c.nextDelay(ctx, err, attempt)
		if !retry {
			return responseBody{}, err
		}
		if err := c.sleep(ctx, delay); err != nil {
			return responseBody{}, err
		}
	}
}

// nextDelay reports how long to wait before retrying a failed attempt, or
// false when the call should give up now.
func (c *Client) nextDelay(ctx context.Context, err error, attempt int) (time.Duration, bool) {
	if attempt >= c.maxRetries || !isRetriableError(err) {
		return 0, false
	}

	delay := backoffDuration(attempt)
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) && statusErr.retryAfter > 0 {
		if statusErr.retryAfter > maxRetryAfter {
			return 0, false
		}
		delay = statusErr.retryAfter
	}
	if deadline, ok := ctx.Deadline(); ok && !c.now().Add(delay).Before(deadline) {
		return 0, false
	}
	return delay, true
}

func (c *Client) doRequest(ctx context.Context, payload []byte) (responseBody, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return responseBody{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "mandi/1")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return responseBody{}, &transientError{err: fmt.Errorf("openai request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes+1))
	if err != nil {
		return responseBody{}, &transientError{err: fmt.Errorf("read response body: %w", err)}
	}
	if len(body) > maxResponseBodyBytes {
		return responseBody{}, fmt.Errorf("read response body: exceeds limit (%d bytes)", maxResponseBodyBytes)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseBody{}, &httpStatusError{
			statusCode: resp.StatusCode,
			message:    decodeAPIError(body),
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), c.now()),
		}
	}

	var decoded responseBody
	if err := json.Unmarshal(body, &decoded); err != nil {
		return responseBody{}, fmt.Errorf("decode response: %w", err)
	}
	if decoded.Error != nil && strings.TrimSpace(decoded.Error.Message) != "" {
		return responseBody{}, fmt.Errorf("api error: %s", decoded.Error.Message)
	}
	return decoded, nil
}

func decodeAPIError(body []byte) string {
	var wrapped struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Error != nil && strings.TrimSpace(wrapped.Error.Message) != "" {
		return strings.TrimSpace(wrapped.Error.Message)
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return "empty error response"
}

// parseRetryAfter reads a Retry-After header given either in seconds or as
// an HTTP date. Missing or past values are zero.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

type httpStatusError struct {
	statusCode int
	message    string
	retryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	if e.statusCode == http.StatusTooManyRequests && e.retryAfter > 0 {
		return fmt.Sprintf("openai status %d (retry after %s): %s", e.statusCode, e.retryAfter, e.message)
	}
	return fmt.Sprintf("openai status %d: %s", e.statusCode, e.message)
}

// transientError marks failures on the wire that may succeed when repeated.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isRetriableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.statusCode == http.StatusTooManyRequests || statusErr.statusCode >= 500
	}
	var transient *transientError
	return errors.As(err, &transient)
}

func backoffDuration(attempt int) time.Duration {
	d := baseBackoff << attempt
	if d > maxBackoff || d <= 0 {
		return maxBackoff
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func makeMessage(role, text string) inputMsg {
	return inputMsg{
		Role: role,
		Content: []inputContent{
			{Type: "input_text", Text: text},
		},
	}
}
