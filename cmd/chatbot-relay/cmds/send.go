package cmds

import (
	"context"
	"fmt"
	"io"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/schema"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatbot-relay/pkg/client"
)

const defaultRelayURL = "http://localhost:8080/"

const ClientSectionSlug = "relay-client"

// NewClientSection holds the connection flags shared by send and chat.
func NewClientSection() (schema.Section, error) {
	return schema.NewSection(
		ClientSectionSlug,
		"Relay client settings",
		schema.WithFields(
			fields.New("relay-url", fields.TypeString,
				fields.WithDefault(defaultRelayURL),
				fields.WithHelp("Relay endpoint URL")),
			fields.New("business-id", fields.TypeString,
				fields.WithDefault("tester"),
				fields.WithHelp("Business id sent with every message")),
			fields.New("session-id", fields.TypeString,
				fields.WithDefault(""),
				fields.WithHelp("Session id (a new UUID when empty)")),
		),
	)
}

type ClientSettings struct {
	RelayURL   string `glazed:"relay-url"`
	BusinessID string `glazed:"business-id"`
	SessionID  string `glazed:"session-id"`
}

func decodeClientSettings(parsed *values.Values) (*ClientSettings, error) {
	s := &ClientSettings{}
	if err := parsed.DecodeSectionInto(ClientSectionSlug, s); err != nil {
		return nil, errors.Wrap(err, "init relay client settings")
	}
	return s, nil
}

func (s *ClientSettings) newClient() (*client.Client, error) {
	return client.New(s.RelayURL, s.BusinessID, client.WithSessionID(s.SessionID))
}

type SendSettings struct {
	Message  string `glazed:"message"`
	Markdown bool   `glazed:"markdown"`
	Clip     bool   `glazed:"clip"`
}

type SendCommand struct {
	*cmds.CommandDescription
}

var _ cmds.WriterCommand = &SendCommand{}

func NewSendCommand() (*SendCommand, error) {
	clientSection, err := NewClientSection()
	if err != nil {
		return nil, err
	}
	return &SendCommand{
		CommandDescription: cmds.NewCommandDescription(
			"send",
			cmds.WithShort("Send one message to a relay and print the reply"),
			cmds.WithArguments(
				fields.New("message", fields.TypeString,
					fields.WithHelp("Message text"),
					fields.WithRequired(true)),
			),
			cmds.WithFlags(
				fields.New("markdown", fields.TypeBool,
					fields.WithDefault(false),
					fields.WithHelp("Render the reply as markdown")),
				fields.New("clip", fields.TypeBool,
					fields.WithDefault(false),
					fields.WithHelp("Copy the reply to the clipboard")),
			),
			cmds.WithSections(clientSection),
		),
	}, nil
}

func (c *SendCommand) RunIntoWriter(ctx context.Context, parsed *values.Values, w io.Writer) error {
	s := &SendSettings{}
	if err := parsed.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "init send settings")
	}
	cs, err := decodeClientSettings(parsed)
	if err != nil {
		return err
	}
	cl, err := cs.newClient()
	if err != nil {
		return err
	}
	log.Debug().Str("business_id", cl.BusinessID()).Str("session_id", cl.SessionID()).Msg("sending message")

	resp, err := cl.Send(ctx, s.Message)
	if err != nil {
		return err
	}
	reply := resp.Reply()

	out := reply
	if s.Markdown {
		styled, err := glamour.Render(reply, "dark")
		if err != nil {
			return errors.Wrap(err, "render reply")
		}
		out = styled
	}
	if _, err := fmt.Fprintln(w, out); err != nil {
		return err
	}

	if s.Clip {
		if err := clipboard.WriteAll(reply); err != nil {
			return errors.Wrap(err, "copy reply to clipboard")
		}
	}
	return nil
}
