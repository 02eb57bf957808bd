package cmds

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chatbot-relay/pkg/relay"
)

func TestServeSettings_RelayConfig(t *testing.T) {
	t.Setenv(EnvWebhookURL, "https://n8n.example.com/webhook/env")

	cfg, err := (&ServeSettings{BackendTimeout: "5s"}).relayConfig()
	require.NoError(t, err)
	require.Equal(t, "https://n8n.example.com/webhook/env", cfg.WebhookURL)
	require.Equal(t, 5*time.Second, cfg.Timeout)

	cfg, err = (&ServeSettings{WebhookURL: "http://flag.local/hook", BackendTimeout: "0"}).relayConfig()
	require.NoError(t, err)
	require.Equal(t, "http://flag.local/hook", cfg.WebhookURL)
	require.Less(t, cfg.Timeout, time.Duration(0))

	cfg, err = (&ServeSettings{}).relayConfig()
	require.NoError(t, err)
	require.Zero(t, cfg.Timeout)

	_, err = (&ServeSettings{BackendTimeout: "soon"}).relayConfig()
	require.Error(t, err)
}

func TestServeSettings_RelayConfigRequiresWebhook(t *testing.T) {
	t.Setenv(EnvWebhookURL, "")
	_, err := (&ServeSettings{}).relayConfig()
	require.Error(t, err)

	_, err = (&ServeSettings{WebhookURL: "ftp://example.com"}).relayConfig()
	require.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	const key = "CHATBOT_RELAY_TEST_ENV_FILE"
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), "relay.env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=from-file\n"), 0o600))

	require.NoError(t, loadEnvFile(path))
	require.Equal(t, "from-file", os.Getenv(key))

	require.Error(t, loadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}

func TestNewCommands(t *testing.T) {
	_, err := NewServeCommand()
	require.NoError(t, err)
	_, err = NewSendCommand()
	require.NoError(t, err)
	_, err = NewChatCommand()
	require.NoError(t, err)

	root, err := NewAllowlistCommand()
	require.NoError(t, err)
	require.Len(t, root.Commands(), 3)
}

func TestServeDefaultsMatchRelay(t *testing.T) {
	cfg, err := (&ServeSettings{
		WebhookURL:     "http://localhost:5678/webhook/chat",
		BackendTimeout: relay.DefaultBackendTimeout.String(),
	}).relayConfig()
	require.NoError(t, err)
	require.Equal(t, relay.DefaultBackendTimeout, cfg.Timeout)
}
