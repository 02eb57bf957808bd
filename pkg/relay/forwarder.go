package relay

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	DefaultBackendTimeout = 30 * time.Second
	// DefaultMaxResponseBytes bounds how much of a backend response is read.
	DefaultMaxResponseBytes int64 = 8 << 20
)

// Config is the relay's process-wide configuration, built once at startup.
type Config struct {
	// WebhookURL is the backend workflow address every valid payload is posted to.
	WebhookURL string
	// Timeout bounds a single backend call. Zero means DefaultBackendTimeout,
	// a negative value disables the client-side timeout.
	Timeout          time.Duration
	MaxResponseBytes int64
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

func (c Config) Validate() error {
	u := strings.TrimSpace(c.WebhookURL)
	if u == "" {
		return errors.New("relay config: webhook url is empty")
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return errors.Wrap(err, "relay config: invalid webhook url")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.Errorf("relay config: webhook url must be http(s), got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("relay config: webhook url has no host")
	}
	return nil
}

// WebhookForwarder posts payloads to a webhook and decodes its JSON reply.
type WebhookForwarder struct {
	url              string
	client           *http.Client
	maxResponseBytes int64
	logger           zerolog.Logger
}

var _ Backend = &WebhookForwarder{}

func NewWebhookForwarder(cfg Config, logger zerolog.Logger) (*WebhookForwarder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = DefaultBackendTimeout
		}
		if timeout < 0 {
			timeout = 0
		}
		client = &http.Client{Timeout: timeout}
	}
	maxBytes := cfg.MaxResponseBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxResponseBytes
	}
	return &WebhookForwarder{
		url:              strings.TrimSpace(cfg.WebhookURL),
		client:           client,
		maxResponseBytes: maxBytes,
		logger:           logger,
	}, nil
}

// Forward sends payload as JSON and returns the decoded response body.
// The backend's status code is not interpreted; any JSON body is relayed.
func (f *WebhookForwarder) Forward(ctx context.Context, payload map[string]any) (any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "encode payload")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build backend request")
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn().Err(err).Msg("backend request failed")
		return nil, errors.Wrap(withoutURL(err), "backend request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxResponseBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "read backend response")
	}
	if int64(len(raw)) > f.maxResponseBytes {
		return nil, errors.Errorf("backend response exceeds %d bytes", f.maxResponseBytes)
	}
	f.logger.Debug().
		Int("backend_status", resp.StatusCode).
		Int("bytes", len(raw)).
		Dur("duration", time.Since(start)).
		Msg("backend responded")

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, errors.Wrapf(err, "backend returned invalid JSON (status %d)", resp.StatusCode)
	}
	if dec.More() {
		return nil, errors.Errorf("backend returned trailing data after JSON (status %d)", resp.StatusCode)
	}
	return out, nil
}

// transportError is a *url.Error minus the URL. The webhook URL is the backend's only
// credential, so it must not reach clients through error details.
type transportError struct {
	op  string
	err error
}

func (e *transportError) Error() string { return e.op + ": " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func withoutURL(err error) error {
	var ue *url.Error
	if stderrors.As(err, &ue) {
		return &transportError{op: ue.Op, err: ue.Err}
	}
	return err
}
