package relay_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chatbot-relay/pkg/relay"
)

func TestConfig_Validate(t *testing.T) {
	require.Error(t, relay.Config{}.Validate())
	require.Error(t, relay.Config{WebhookURL: "   "}.Validate())
	require.Error(t, relay.Config{WebhookURL: "ftp://example.com/hook"}.Validate())
	require.Error(t, relay.Config{WebhookURL: "http://"}.Validate())
	require.NoError(t, relay.Config{WebhookURL: "https://n8n.example.com/webhook/abc"}.Validate())
}

func TestWebhookForwarder_PostsPayloadAsJSON(t *testing.T) {
	var gotMethod, gotContentType string
	var gotBody map[string]any
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"reply":"hello","count":3}`))
	}))
	t.Cleanup(backend.Close)

	fwd, err := relay.NewWebhookForwarder(relay.Config{WebhookURL: backend.URL}, zerolog.Nop())
	require.NoError(t, err)

	out, err := fwd.Forward(context.Background(), map[string]any{"businessId": "tester", "message": "hi", "sessionId": "s1"})
	require.NoError(t, err)
	require.Equal(t, http.MethodPost, gotMethod)
	require.Equal(t, "application/json", gotContentType)
	require.Equal(t, "hi", gotBody["message"])

	b, err := json.Marshal(out)
	require.NoError(t, err)
	require.JSONEq(t, `{"reply":"hello","count":3}`, string(b))
}

func TestWebhookForwarder_RelaysNonOKJSON(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"message":"Workflow could not be started"}`))
	}))
	t.Cleanup(backend.Close)

	fwd, err := relay.NewWebhookForwarder(relay.Config{WebhookURL: backend.URL}, zerolog.Nop())
	require.NoError(t, err)
	out, err := fwd.Forward(context.Background(), map[string]any{})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"message": "Workflow could not be started"}, out)
}

func TestWebhookForwarder_Failures(t *testing.T) {
	t.Run("invalid json", func(t *testing.T) {
		backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>oops</html>`))
		}))
		t.Cleanup(backend.Close)
		fwd, err := relay.NewWebhookForwarder(relay.Config{WebhookURL: backend.URL}, zerolog.Nop())
		require.NoError(t, err)
		_, err = fwd.Forward(context.Background(), map[string]any{})
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid JSON")
	})

	t.Run("empty body", func(t *testing.T) {
		backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		t.Cleanup(backend.Close)
		fwd, err := relay.NewWebhookForwarder(relay.Config{WebhookURL: backend.URL}, zerolog.Nop())
		require.NoError(t, err)
		_, err = fwd.Forward(context.Background(), map[string]any{})
		require.Error(t, err)
	})

	t.Run("oversized response", func(t *testing.T) {
		backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"reply":"` + strings.Repeat("x", 64) + `"}`))
		}))
		t.Cleanup(backend.Close)
		fwd, err := relay.NewWebhookForwarder(relay.Config{WebhookURL: backend.URL, MaxResponseBytes: 16}, zerolog.Nop())
		require.NoError(t, err)
		_, err = fwd.Forward(context.Background(), map[string]any{})
		require.Error(t, err)
	})

	t.Run("unreachable", func(t *testing.T) {
		backend := httptest.NewServer(http.NotFoundHandler())
		url := backend.URL
		backend.Close()
		fwd, err := relay.NewWebhookForwarder(relay.Config{WebhookURL: url}, zerolog.Nop())
		require.NoError(t, err)
		_, err = fwd.Forward(context.Background(), map[string]any{})
		require.Error(t, err)
		require.Contains(t, err.Error(), "backend request failed")
	})
}

func TestWebhookHandler_EndToEnd(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"reply":"hello"}`))
	}))
	t.Cleanup(backend.Close)

	h, err := relay.NewWebhookHandler(relay.Config{WebhookURL: backend.URL}, staticChecker("tester"), zerolog.Nop())
	require.NoError(t, err)

	rec := serve(h, http.MethodPost, `{"businessId":"tester","message":"hi","sessionId":"s1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"reply":"hello"}`, rec.Body.String())
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWebhookHandler_BackendTimeout(t *testing.T) {
	release := make(chan struct{})
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		backend.Close()
	})

	h, err := relay.NewWebhookHandler(relay.Config{WebhookURL: backend.URL, Timeout: 50 * time.Millisecond}, staticChecker("tester"), zerolog.Nop())
	require.NoError(t, err)

	rec := serve(h, http.MethodPost, `{"businessId":"tester","message":"hi","sessionId":"s1"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	var out relay.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, "Internal Server Error", out.Error)
	require.NotEmpty(t, out.Details)
	require.NotContains(t, out.Details, backend.URL)
}

func TestWebhookHandler_TransportErrorHidesWebhookURL(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	webhookURL := backend.URL + "/webhook/7f3c-secret-token?key=abc123"
	backend.Close()

	h, err := relay.NewWebhookHandler(relay.Config{WebhookURL: webhookURL}, staticChecker("tester"), zerolog.Nop())
	require.NoError(t, err)

	rec := serve(h, http.MethodPost, `{"businessId":"tester","message":"hi","sessionId":"s1"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var out relay.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Contains(t, out.Details, "backend request failed: Post")
	require.NotContains(t, out.Details, "7f3c-secret-token")
	require.NotContains(t, out.Details, "abc123")
	require.NotContains(t, rec.Body.String(), webhookURL)
}
