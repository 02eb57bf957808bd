package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DefaultMaxBodyBytes bounds the inbound payload size.
const DefaultMaxBodyBytes int64 = 1 << 20

// Handler is the relay endpoint. It holds no per-request state and is safe for
// concurrent use.
type Handler struct {
	checker      BusinessChecker
	backend      Backend
	sinks        []OutcomeSink
	logger       zerolog.Logger
	maxBodyBytes int64
}

// HandlerOption configures optional dependencies for a Handler.
type HandlerOption func(*Handler) error

func WithLogger(logger zerolog.Logger) HandlerOption {
	return func(h *Handler) error {
		h.logger = logger
		return nil
	}
}

func WithOutcomeSink(sink OutcomeSink) HandlerOption {
	return func(h *Handler) error {
		if sink == nil {
			return errors.New("outcome sink is nil")
		}
		h.sinks = append(h.sinks, sink)
		return nil
	}
}

func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handler) error {
		if n <= 0 {
			return errors.Errorf("max body bytes must be positive, got %d", n)
		}
		h.maxBodyBytes = n
		return nil
	}
}

// NewHandler builds a relay handler around a business checker and a backend.
func NewHandler(checker BusinessChecker, backend Backend, opts ...HandlerOption) (*Handler, error) {
	if checker == nil {
		return nil, errors.New("business checker is nil")
	}
	if backend == nil {
		return nil, errors.New("backend is nil")
	}
	h := &Handler{
		checker:      checker,
		backend:      backend,
		logger:       zerolog.Nop(),
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// NewWebhookHandler is the common composition: a WebhookForwarder built from cfg.
func NewWebhookHandler(cfg Config, checker BusinessChecker, logger zerolog.Logger, opts ...HandlerOption) (*Handler, error) {
	fwd, err := NewWebhookForwarder(cfg, logger)
	if err != nil {
		return nil, err
	}
	return NewHandler(checker, fwd, append([]HandlerOption{WithLogger(logger)}, opts...)...)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	SetCORSHeaders(w.Header())

	if req.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		flush(w)
		h.observe(req, Outcome{Method: req.Method, Status: http.StatusNoContent, Duration: time.Since(start)})
		return
	}

	chatReq, data, err := h.relay(req)
	outcome := Outcome{
		BusinessID: chatReq.BusinessID,
		SessionID:  chatReq.SessionID,
		Method:     req.Method,
		Duration:   time.Since(start),
	}
	if err != nil {
		re := AsError(err)
		outcome.Status = re.Status
		outcome.Kind = re.Kind
		outcome.Err = re.Err
		h.logRejection(chatReq, re, outcome.Duration)
		writeError(w, re, h.logger)
		h.observe(req, outcome)
		return
	}

	outcome.Status = http.StatusOK
	h.logger.Info().
		Str("business_id", chatReq.BusinessID).
		Str("session_id", chatReq.SessionID).
		Dur("duration", outcome.Duration).
		Msg("relayed chat message")
	writeJSON(w, http.StatusOK, data, h.logger)
	h.observe(req, outcome)
}

// relay validates the request and forwards it. The returned ChatRequest is populated as
// far as parsing got, so rejections can still be attributed.
func (h *Handler) relay(req *http.Request) (ChatRequest, any, error) {
	if req.Method != http.MethodPost {
		return ChatRequest{}, nil, errMethodNotAllowed()
	}

	payload, err := h.decodeBody(req)
	if err != nil {
		return ChatRequest{}, nil, err
	}
	chatReq, err := ParseChatRequest(payload)
	if err != nil {
		return chatReq, nil, err
	}

	ctx := req.Context()
	ok, err := h.checker.IsValidBusiness(ctx, chatReq.BusinessID)
	if err != nil {
		return chatReq, nil, errUpstream(errors.Wrap(err, "check business id"))
	}
	if !ok {
		return chatReq, nil, errUnauthorized()
	}

	data, err := h.backend.Forward(ctx, chatReq.Payload)
	if err != nil {
		return chatReq, nil, errUpstream(err)
	}
	return chatReq, data, nil
}

func (h *Handler) decodeBody(req *http.Request) (any, error) {
	if req.Body == nil {
		return nil, errMalformedInput(errors.New("empty body"))
	}
	defer func() { _ = req.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(req.Body, h.maxBodyBytes+1))
	if err != nil {
		return nil, errMalformedInput(errors.Wrap(err, "read body"))
	}
	if int64(len(body)) > h.maxBodyBytes {
		return nil, errMalformedInput(errors.Errorf("body exceeds %d bytes", h.maxBodyBytes))
	}
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errMalformedInput(err)
	}
	return payload, nil
}

// ParseChatRequest extracts the three required fields from a decoded JSON value.
// Anything other than an object with three non-empty strings is KindMissingFields.
func ParseChatRequest(payload any) (ChatRequest, error) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return ChatRequest{}, errMissingFields()
	}
	out := ChatRequest{
		BusinessID: stringField(obj, FieldBusinessID),
		Message:    stringField(obj, FieldMessage),
		SessionID:  stringField(obj, FieldSessionID),
		Payload:    obj,
	}
	if out.BusinessID == "" || out.Message == "" || out.SessionID == "" {
		return out, errMissingFields()
	}
	return out, nil
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

func (h *Handler) logRejection(chatReq ChatRequest, re *Error, d time.Duration) {
	ev := h.logger.Info()
	if re.Kind == KindUpstream {
		ev = h.logger.Error().Err(re.Err)
	}
	ev.Str("kind", re.Kind.String()).
		Int("status", re.Status).
		Str("business_id", chatReq.BusinessID).
		Str("session_id", chatReq.SessionID).
		Dur("duration", d).
		Msg("relay request rejected")
}

func (h *Handler) observe(req *http.Request, o Outcome) {
	if len(h.sinks) == 0 {
		return
	}
	ctx := context.WithoutCancel(req.Context())
	for _, s := range h.sinks {
		s.Observe(ctx, o)
	}
}
