// Package relayevents publishes one event per relay invocation onto a watermill topic
// and provides a consumer that logs them. Events carry routing metadata only, never
// message text.
package relayevents

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/go-go-golems/chatbot-relay/pkg/relay"
)

type EventType string

const (
	EventRelayed   EventType = "relay.relayed"
	EventRejected  EventType = "relay.rejected"
	EventFailed    EventType = "relay.failed"
	EventPreflight EventType = "relay.preflight"
)

type Event struct {
	Type       EventType `json:"type"`
	BusinessID string    `json:"business_id,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	Method     string    `json:"method"`
	Status     int       `json:"status"`
	Kind       string    `json:"kind"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func FromOutcome(o relay.Outcome, now time.Time) Event {
	ev := Event{
		BusinessID: o.BusinessID,
		SessionID:  o.SessionID,
		Method:     o.Method,
		Status:     o.Status,
		Kind:       o.Kind.String(),
		DurationMs: o.Duration.Milliseconds(),
		Timestamp:  now.UTC(),
	}
	if o.Err != nil {
		ev.Error = o.Err.Error()
	}
	switch {
	case o.Kind == relay.KindUpstream:
		ev.Type = EventFailed
	case o.Kind != relay.KindNone:
		ev.Type = EventRejected
	case o.Method == "OPTIONS":
		ev.Type = EventPreflight
	default:
		ev.Type = EventRelayed
	}
	return ev
}

// Publisher is a relay.OutcomeSink writing events to a watermill topic.
// Publish failures are logged and never affect the HTTP response.
type Publisher struct {
	pub    message.Publisher
	topic  string
	logger zerolog.Logger
	now    func() time.Time
}

var _ relay.OutcomeSink = &Publisher{}

func NewPublisher(pub message.Publisher, topic string, logger zerolog.Logger) (*Publisher, error) {
	if pub == nil {
		return nil, errors.New("relayevents: publisher is nil")
	}
	if topic == "" {
		return nil, errors.New("relayevents: topic is empty")
	}
	return &Publisher{pub: pub, topic: topic, logger: logger, now: time.Now}, nil
}

func (p *Publisher) Observe(_ context.Context, o relay.Outcome) {
	ev := FromOutcome(o, p.now())
	b, err := json.Marshal(ev)
	if err != nil {
		p.logger.Warn().Err(err).Msg("relay event marshal failed")
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), b)
	if err := p.pub.Publish(p.topic, msg); err != nil {
		p.logger.Warn().Err(err).Str("topic", p.topic).Msg("relay event publish failed")
	}
}

// Consume logs events from topic until ctx is done or the subscription closes.
func Consume(ctx context.Context, sub message.Subscriber, topic string, logger zerolog.Logger) error {
	ch, err := sub.Subscribe(ctx, topic)
	if err != nil {
		return errors.Wrapf(err, "subscribe to %s", topic)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			LogEvent(logger, msg)
			msg.Ack()
		}
	}
}

// LogEvent decodes and logs a single event message. Undecodable payloads are logged and dropped.
func LogEvent(logger zerolog.Logger, msg *message.Message) {
	var ev Event
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		logger.Warn().Err(err).Str("message_id", msg.UUID).Msg("dropping undecodable relay event")
		return
	}
	e := logger.Debug()
	if ev.Type == EventFailed {
		e = logger.Warn()
	}
	e.Str("event", string(ev.Type)).
		Str("business_id", ev.BusinessID).
		Str("session_id", ev.SessionID).
		Int("status", ev.Status).
		Str("kind", ev.Kind).
		Int64("duration_ms", ev.DurationMs).
		Str("error", ev.Error).
		Msg("relay event")
}
