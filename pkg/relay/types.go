package relay

import (
	"context"
	"time"
)

const (
	FieldBusinessID = "businessId"
	FieldMessage    = "message"
	FieldSessionID  = "sessionId"
)

// ChatRequest is the typed view of an inbound payload.
// Payload keeps the full decoded object, which is what gets forwarded.
type ChatRequest struct {
	BusinessID string
	Message    string
	SessionID  string
	Payload    map[string]any
}

// ErrorBody is the JSON shape of every JSON error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// BusinessChecker reports whether a business identifier may use the relay.
type BusinessChecker interface {
	IsValidBusiness(ctx context.Context, businessID string) (bool, error)
}

type BusinessCheckerFunc func(ctx context.Context, businessID string) (bool, error)

func (f BusinessCheckerFunc) IsValidBusiness(ctx context.Context, businessID string) (bool, error) {
	return f(ctx, businessID)
}

// Backend forwards a validated payload and returns the decoded JSON response.
type Backend interface {
	Forward(ctx context.Context, payload map[string]any) (any, error)
}

type BackendFunc func(ctx context.Context, payload map[string]any) (any, error)

func (f BackendFunc) Forward(ctx context.Context, payload map[string]any) (any, error) {
	return f(ctx, payload)
}

// Outcome describes how a single relay invocation ended.
// It never carries the message text.
type Outcome struct {
	BusinessID string
	SessionID  string
	Method     string
	Status     int
	Kind       Kind
	Duration   time.Duration
	Err        error
}

// OutcomeSink receives one Outcome per handled request, after the response has been
// written and flushed to the client.
type OutcomeSink interface {
	Observe(ctx context.Context, outcome Outcome)
}
