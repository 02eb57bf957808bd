package main

import (
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatbot-relay/pkg/allowlist"
	"github.com/go-go-golems/chatbot-relay/pkg/lambdahttp"
	"github.com/go-go-golems/chatbot-relay/pkg/relay"
)

const (
	envWebhookURL     = "N8N_WEBHOOK_URL"
	envBusinessIDs    = "CHATBOT_RELAY_BUSINESS_IDS"
	envBackendTimeout = "CHATBOT_RELAY_BACKEND_TIMEOUT"
	envLogLevel       = "CHATBOT_RELAY_LOG_LEVEL"
)

func main() {
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	if lvl, err := zerolog.ParseLevel(os.Getenv(envLogLevel)); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}

	adapter, err := buildAdapter(os.Getenv)
	if err != nil {
		log.Fatal().Err(err).Msg("chatbot relay lambda init failed")
	}
	lambda.Start(adapter.Handle)
}

func buildAdapter(getenv func(string) string) (*lambdahttp.Adapter, error) {
	cfg, ids, err := configFromEnv(getenv)
	if err != nil {
		return nil, err
	}
	opened, err := allowlist.Open(allowlist.Settings{IDs: ids})
	if err != nil {
		return nil, err
	}

	handler, err := relay.NewWebhookHandler(cfg, opened.Checker, log.Logger.With().Str("component", "relay").Logger())
	if err != nil {
		return nil, err
	}
	return lambdahttp.New(handler)
}

// configFromEnv reads the same settings as the serve command's flags. A backend timeout
// of 0 disables the client-side timeout, as --backend-timeout 0 does.
func configFromEnv(getenv func(string) string) (relay.Config, []string, error) {
	cfg := relay.Config{WebhookURL: strings.TrimSpace(getenv(envWebhookURL))}
	if v := strings.TrimSpace(getenv(envBackendTimeout)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return relay.Config{}, nil, errors.Wrapf(err, "invalid %s", envBackendTimeout)
		}
		if d == 0 {
			d = -1
		}
		cfg.Timeout = d
	}

	ids := []string{"tester"}
	if v := getenv(envBusinessIDs); strings.TrimSpace(v) != "" {
		ids = strings.Split(v, ",")
	}
	return cfg, ids, nil
}
