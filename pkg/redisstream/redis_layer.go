package redisstream

import (
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/schema"
)

const SectionSlug = "redis"

// Settings holds Redis configuration shared by the event transport and the Redis allow-list.
type Settings struct {
	Enabled bool   `glazed:"redis-enabled"`
	Addr    string `glazed:"redis-addr"`
	Stream  string `glazed:"redis-stream"`
}

// NewSection returns a section definition for Redis settings.
func NewSection() (schema.Section, error) {
	return schema.NewSection(
		SectionSlug,
		"Redis configuration for relay events and the shared allow-list",
		schema.WithFields(
			fields.New("redis-enabled", fields.TypeBool, fields.WithDefault(false),
				fields.WithHelp("Publish relay events to Redis Streams instead of in-process")),
			fields.New("redis-addr", fields.TypeString, fields.WithDefault("localhost:6379"),
				fields.WithHelp("Redis address host:port")),
			fields.New("redis-stream", fields.TypeString, fields.WithDefault(DefaultStream),
				fields.WithHelp("Redis stream (watermill topic) relay events are published to")),
		),
	)
}
