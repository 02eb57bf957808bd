package cmds

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatbot-relay/pkg/allowlist"
	"github.com/go-go-golems/chatbot-relay/pkg/redisstream"
	"github.com/go-go-golems/chatbot-relay/pkg/relay"
	"github.com/go-go-golems/chatbot-relay/pkg/relayevents"
	"github.com/go-go-golems/chatbot-relay/pkg/server"
)

// EnvWebhookURL is read when --webhook-url is not set.
const EnvWebhookURL = "N8N_WEBHOOK_URL"

const eventsConsumerGroup = "chatbot-relay-log"

type ServeSettings struct {
	Addr              string   `glazed:"addr"`
	WebhookURL        string   `glazed:"webhook-url"`
	BackendTimeout    string   `glazed:"backend-timeout"`
	MaxBodyBytes      int      `glazed:"max-body-bytes"`
	BusinessIDs       []string `glazed:"business-ids"`
	AllowlistFile     string   `glazed:"allowlist-file"`
	AllowlistDB       string   `glazed:"allowlist-db"`
	AllowlistRedisKey string   `glazed:"allowlist-redis-key"`
	ServeWidget       bool     `glazed:"serve-widget"`
	EnvFile           string   `glazed:"env-file"`

	Redis redisstream.Settings
}

type ServeCommand struct {
	*cmds.CommandDescription
}

var _ cmds.BareCommand = &ServeCommand{}

func NewServeCommand() (*ServeCommand, error) {
	redisSection, err := redisstream.NewSection()
	if err != nil {
		return nil, errors.Wrap(err, "build redis section")
	}

	return &ServeCommand{
		CommandDescription: cmds.NewCommandDescription(
			"serve",
			cmds.WithShort("Run the chat relay HTTP endpoint"),
			cmds.WithLong(`Run the chat relay. Every POST carrying {businessId, message, sessionId}
for an allowed business is forwarded to the webhook and the webhook's JSON is returned.

The allow-list comes from the first configured source: --allowlist-db, --allowlist-redis-key,
--allowlist-file, then --business-ids.`),
			cmds.WithFlags(
				fields.New("addr", fields.TypeString,
					fields.WithDefault(":8080"),
					fields.WithHelp("Address to listen on")),
				fields.New("webhook-url", fields.TypeString,
					fields.WithDefault(""),
					fields.WithHelp("Webhook URL messages are forwarded to (defaults to $"+EnvWebhookURL+")")),
				fields.New("backend-timeout", fields.TypeString,
					fields.WithDefault(relay.DefaultBackendTimeout.String()),
					fields.WithHelp("Timeout for the webhook call (Go duration, 0 for none)")),
				fields.New("max-body-bytes", fields.TypeInteger,
					fields.WithDefault(int(relay.DefaultMaxBodyBytes)),
					fields.WithHelp("Largest accepted request body")),
				fields.New("business-ids", fields.TypeStringList,
					fields.WithDefault([]string{"tester"}),
					fields.WithHelp("Allowed business ids when no other allow-list source is set")),
				fields.New("allowlist-file", fields.TypeString,
					fields.WithDefault(""),
					fields.WithHelp("YAML file listing allowed businesses")),
				fields.New("allowlist-db", fields.TypeString,
					fields.WithDefault(""),
					fields.WithHelp("SQLite database holding allowed businesses (see 'allowlist add')")),
				fields.New("allowlist-redis-key", fields.TypeString,
					fields.WithDefault(""),
					fields.WithHelp("Redis set holding allowed business ids (uses --redis-addr)")),
				fields.New("serve-widget", fields.TypeBool,
					fields.WithDefault(false),
					fields.WithHelp("Serve the embeddable widget script")),
				fields.New("env-file", fields.TypeString,
					fields.WithDefault(""),
					fields.WithHelp("Load environment variables from this file (.env is tried when empty)")),
			),
			cmds.WithSections(redisSection),
		),
	}, nil
}

func (c *ServeCommand) Run(ctx context.Context, parsed *values.Values) error {
	s := &ServeSettings{}
	if err := parsed.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "init serve settings")
	}
	if err := parsed.DecodeSectionInto(redisstream.SectionSlug, &s.Redis); err != nil {
		return errors.Wrap(err, "init redis settings")
	}
	if err := loadEnvFile(s.EnvFile); err != nil {
		return err
	}

	cfg, err := s.relayConfig()
	if err != nil {
		return err
	}
	logger := log.Logger.With().Str("component", "relay").Logger()

	opened, err := allowlist.Open(allowlist.Settings{
		DBPath:    s.AllowlistDB,
		RedisKey:  s.AllowlistRedisKey,
		RedisAddr: s.Redis.Addr,
		File:      s.AllowlistFile,
		IDs:       s.BusinessIDs,
	})
	if err != nil {
		return errors.Wrap(err, "open allow-list")
	}
	log.Info().Str("source", string(opened.Source)).Msg("allow-list loaded")

	stream := s.Redis.Stream
	if strings.TrimSpace(stream) == "" {
		stream = redisstream.DefaultStream
	}
	if s.Redis.Enabled {
		if err := redisstream.EnsureGroupAtTail(ctx, s.Redis.Addr, stream, eventsConsumerGroup); err != nil {
			_ = opened.Close()
			return errors.Wrap(err, "create relay events consumer group")
		}
	}
	hostname, _ := os.Hostname()
	pubsub, err := redisstream.Build(s.Redis, eventsConsumerGroup, "relay-"+hostname, logger)
	if err != nil {
		_ = opened.Close()
		return errors.Wrap(err, "build relay events transport")
	}
	closeAll := func() {
		_ = pubsub.Close()
		_ = opened.Close()
	}

	publisher, err := relayevents.NewPublisher(pubsub.Publisher, stream, logger)
	if err != nil {
		closeAll()
		return err
	}
	handler, err := relay.NewWebhookHandler(cfg, opened.Checker, logger,
		relay.WithOutcomeSink(publisher),
		relay.WithMaxBodyBytes(int64(s.MaxBodyBytes)),
	)
	if err != nil {
		closeAll()
		return errors.Wrap(err, "build relay handler")
	}

	srv, err := server.New(s.Addr, server.NewMux(handler, s.ServeWidget),
		server.WithLogger(logger),
		server.WithWorker(func(ctx context.Context) error {
			return relayevents.Consume(ctx, pubsub.Subscriber, stream, logger)
		}),
		server.WithCloser("relay events", pubsub.Close),
		server.WithCloser("allow-list", opened.Close),
	)
	if err != nil {
		closeAll()
		return err
	}
	return srv.Run(ctx)
}

func (s *ServeSettings) relayConfig() (relay.Config, error) {
	webhookURL := strings.TrimSpace(s.WebhookURL)
	if webhookURL == "" {
		webhookURL = strings.TrimSpace(os.Getenv(EnvWebhookURL))
	}
	cfg := relay.Config{WebhookURL: webhookURL}
	if strings.TrimSpace(s.BackendTimeout) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(s.BackendTimeout))
		if err != nil {
			return relay.Config{}, errors.Wrapf(err, "invalid backend-timeout %q", s.BackendTimeout)
		}
		if d == 0 {
			d = -1
		}
		cfg.Timeout = d
	}
	if err := cfg.Validate(); err != nil {
		return relay.Config{}, errors.Wrap(err, "webhook configuration (set --webhook-url or "+EnvWebhookURL+")")
	}
	return cfg, nil
}

// loadEnvFile loads path, or .env when path is empty and the file exists.
// Variables already set in the environment are left untouched.
func loadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "load env file %s", path)
	}
	log.Debug().Str("path", path).Msg("loaded env file")
	return nil
}
