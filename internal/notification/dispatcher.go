// Package notification relays complaints to the external notification endpoint.
// Each Deliver call makes exactly one HTTP attempt; retrying is up to the caller.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// DefaultTimeout bounds a single delivery attempt.
const DefaultTimeout = 10 * time.Second

const userAgent = "complaintbot/1.0"

// Payload is the JSON body posted to the notification endpoint.
// Coordinates are sent as null when the reporter skipped the location step.
type Payload struct {
	UserID      int64    `json:"user_id"`
	Description string   `json:"description"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`

	// ComplaintID is the stored record id; it is sent as the Idempotency-Key header, not in the body.
	ComplaintID uint `json:"-"`
}

// OutcomeKind classifies a delivery attempt.
type OutcomeKind string

const (
	// Delivered means the endpoint answered with a 2xx status.
	Delivered OutcomeKind = "delivered"
	// Rejected means the endpoint answered 405 Method Not Allowed.
	Rejected OutcomeKind = "rejected"
	// Unreachable covers transport failures, timeouts and every other non-2xx status.
	Unreachable OutcomeKind = "unreachable"
)

// Outcome is the result of one delivery attempt.
type Outcome struct {
	Kind OutcomeKind
	// StatusCode is zero when no response was received.
	StatusCode int
	Err        error
}

// OK reports whether the complaint reached the endpoint.
func (o Outcome) OK() bool {
	return o.Kind == Delivered
}

// Dispatcher posts complaints to a fixed URL. It is safe for concurrent use.
type Dispatcher struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.timeout = d
		}
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(disp *Dispatcher) {
		if c != nil {
			disp.client = c
		}
	}
}

// NewDispatcher creates a dispatcher for the given endpoint URL.
func NewDispatcher(url string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		url:     url,
		client:  &http.Client{},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Deliver posts the payload once and classifies the response.
func (d *Dispatcher) Deliver(ctx context.Context, p Payload) Outcome {
	body, err := json.Marshal(p)
	if err != nil {
		return d.unreachable(p, 0, fmt.Errorf("encode payload: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return d.unreachable(p, 0, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if p.ComplaintID != 0 {
		req.Header.Set("Idempotency-Key", "complaint-"+strconv.FormatUint(uint64(p.ComplaintID), 10))
	}

	slog.Info("Dispatcher.Deliver: sending complaint", "url", d.url, "complaint_id", p.ComplaintID, "with_location", p.Latitude != nil)
	resp, err := d.client.Do(req)
	if err != nil {
		return d.unreachable(p, 0, fmt.Errorf("post notification: %w", err))
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		slog.Info("Dispatcher.Deliver: complaint delivered", "complaint_id", p.ComplaintID, "status_code", resp.StatusCode)
		return Outcome{Kind: Delivered, StatusCode: resp.StatusCode}
	case resp.StatusCode == http.StatusMethodNotAllowed:
		err := fmt.Errorf("notification endpoint %s: method not allowed", d.url)
		slog.Error("Dispatcher.Deliver: HTTP 405 method not allowed", "url", d.url, "complaint_id", p.ComplaintID)
		return Outcome{Kind: Rejected, StatusCode: resp.StatusCode, Err: err}
	default:
		return d.unreachable(p, resp.StatusCode, fmt.Errorf("notification endpoint returned HTTP %d", resp.StatusCode))
	}
}

func (d *Dispatcher) unreachable(p Payload, status int, err error) Outcome {
	slog.Error("Dispatcher.Deliver: delivery failed", "url", d.url, "complaint_id", p.ComplaintID, "status_code", status, "error", err)
	return Outcome{Kind: Unreachable, StatusCode: status, Err: err}
}
