package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestBuildAdapter_RelaysThroughLambdaEvent(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"reply": "echo " + payload["message"].(string)})
	}))
	defer backend.Close()

	adapter, err := buildAdapter(envMap(map[string]string{
		envWebhookURL:  backend.URL,
		envBusinessIDs: "tester, acme",
	}))
	require.NoError(t, err)

	ev := events.APIGatewayV2HTTPRequest{
		RawPath: "/",
		Headers: map[string]string{"content-type": "application/json"},
		Body:    `{"businessId":"acme","message":"hi","sessionId":"s1"}`,
	}
	ev.RequestContext.HTTP.Method = http.MethodPost

	resp, err := adapter.Handle(context.Background(), ev)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])
	require.JSONEq(t, `{"reply":"echo hi"}`, resp.Body)

	ev.Body = `{"businessId":"other","message":"hi","sessionId":"s1"}`
	resp, err = adapter.Handle(context.Background(), ev)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	ev.RequestContext.HTTP.Method = http.MethodOptions
	resp, err = adapter.Handle(context.Background(), ev)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestBuildAdapter_Config(t *testing.T) {
	_, err := buildAdapter(envMap(nil))
	require.Error(t, err)

	_, err = buildAdapter(envMap(map[string]string{
		envWebhookURL:     "https://n8n.example.com/webhook/chat",
		envBackendTimeout: "later",
	}))
	require.Error(t, err)

	_, err = buildAdapter(envMap(map[string]string{envWebhookURL: "https://n8n.example.com/webhook/chat"}))
	require.NoError(t, err)

	_, err = buildAdapter(envMap(map[string]string{
		envWebhookURL:     "https://n8n.example.com/webhook/chat",
		envBackendTimeout: "0",
	}))
	require.NoError(t, err)
}

func TestConfigFromEnv(t *testing.T) {
	const hook = "https://n8n.example.com/webhook/chat"

	cfg, ids, err := configFromEnv(envMap(map[string]string{envWebhookURL: hook}))
	require.NoError(t, err)
	require.Equal(t, hook, cfg.WebhookURL)
	require.Zero(t, cfg.Timeout)
	require.Equal(t, []string{"tester"}, ids)

	cfg, _, err = configFromEnv(envMap(map[string]string{envWebhookURL: hook, envBackendTimeout: "0"}))
	require.NoError(t, err)
	require.Less(t, cfg.Timeout, time.Duration(0))

	cfg, ids, err = configFromEnv(envMap(map[string]string{
		envWebhookURL:     hook,
		envBackendTimeout: "5s",
		envBusinessIDs:    "tester,acme",
	}))
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, cfg.Timeout)
	require.Equal(t, []string{"tester", "acme"}, ids)
}
