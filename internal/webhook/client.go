package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/calleyai/coldcall-gateway/internal/config"
	"github.com/calleyai/coldcall-gateway/pkg/logger"
	"go.uber.org/zap"
)

// Route identifies which business operation a webhook call represents.
type Route string

const (
	// RouteResolveGreeting resolves a personalized opening line for a caller.
	RouteResolveGreeting Route = "1"
	// RouteFlushTranscript delivers the final call transcript.
	RouteFlushTranscript Route = "2"
	// RouteQuestion answers an FAQ question (data1=question, data2=thread).
	RouteQuestion Route = "3"
	// RouteBooking books a meeting (data1=caller number, data2=address).
	RouteBooking Route = "4"
)

// Payload is the outbound webhook body.
type Payload struct {
	Route string `json:"route"`
	Data1 string `json:"data1"`
	Data2 string `json:"data2"`
}

// Reply is the structured webhook reply shape. Absent fields fall back to the
// raw response text at the call site.
type Reply struct {
	Message      string `json:"message"`
	FirstMessage string `json:"firstMessage"`
	Thread       string `json:"thread"`
}

// DeliveryError indicates the webhook was unreachable or returned a
// non-success status. Never fatal to a call; callers choose a fallback.
type DeliveryError struct {
	Route  Route
	Status int
	Err    error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("webhook delivery failed (route %s): %v", e.Route, e.Err)
	}
	return fmt.Sprintf("webhook delivery failed (route %s): status %d", e.Route, e.Status)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// MalformedReplyError indicates a structured reply was expected but could not
// be parsed. Recoverable: Raw carries the body for a raw-text fallback.
type MalformedReplyError struct {
	Route Route
	Raw   string
	Err   error
}

func (e *MalformedReplyError) Error() string {
	return fmt.Sprintf("webhook reply not parsable (route %s): %v", e.Route, e.Err)
}

func (e *MalformedReplyError) Unwrap() error { return e.Err }

// Client performs outbound calls to the single configured automation
// endpoint. It does not retry; callers decide fallback behavior.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a webhook client for one fixed endpoint.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: config.DefaultWebhookTimeout,
		},
	}
}

// Send performs a single outbound call and returns the raw response body.
func (c *Client) Send(ctx context.Context, route Route, data1, data2 string) (string, error) {
	body, err := json.Marshal(Payload{Route: string(route), Data1: data1, Data2: data2})
	if err != nil {
		return "", fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &DeliveryError{Route: route, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	logger.Base().Debug("sending automation webhook", zap.String("route", string(route)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &DeliveryError{Route: route, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &DeliveryError{Route: route, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Base().Warn("automation webhook returned non-success status",
			zap.String("route", string(route)), zap.Int("status", resp.StatusCode))
		return "", &DeliveryError{Route: route, Status: resp.StatusCode}
	}

	return string(respBody), nil
}

// SendStructured performs a call and parses the structured reply. On a parse
// failure it returns a MalformedReplyError together with the raw trimmed body
// so the caller can fall back to raw text.
func (c *Client) SendStructured(ctx context.Context, route Route, data1, data2 string) (*Reply, string, error) {
	raw, err := c.Send(ctx, route, data1, data2)
	if err != nil {
		return nil, "", err
	}

	trimmed := strings.TrimSpace(raw)
	var reply Reply
	if err := json.Unmarshal([]byte(trimmed), &reply); err != nil {
		return nil, trimmed, &MalformedReplyError{Route: route, Raw: trimmed, Err: err}
	}
	return &reply, trimmed, nil
}
