package cmds

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	input "github.com/tcnksm/go-input"

	"github.com/go-go-golems/chatbot-relay/pkg/client"
)

var (
	youStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

var quitWords = map[string]bool{"/quit": true, "/exit": true}

type sender interface {
	Send(ctx context.Context, message string) (*client.Response, error)
}

// messageSource yields one user message per call and io.EOF when the user is done.
type messageSource func() (string, error)

type ChatCommand struct {
	*cmds.CommandDescription
}

var _ cmds.WriterCommand = &ChatCommand{}

func NewChatCommand() (*ChatCommand, error) {
	clientSection, err := NewClientSection()
	if err != nil {
		return nil, err
	}
	return &ChatCommand{
		CommandDescription: cmds.NewCommandDescription(
			"chat",
			cmds.WithShort("Chat with a relay from the terminal"),
			cmds.WithLong(`Start a conversation that keeps one session id, the way the website widget does.
On a terminal each message is prompted for (type /quit to leave); otherwise one message is
read per input line.`),
			cmds.WithSections(clientSection),
		),
	}, nil
}

func (c *ChatCommand) RunIntoWriter(ctx context.Context, parsed *values.Values, w io.Writer) error {
	s, err := decodeClientSettings(parsed)
	if err != nil {
		return err
	}
	cl, err := s.newClient()
	if err != nil {
		return err
	}

	interactive := isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stderr.Fd())
	var next messageSource
	if interactive {
		_, _ = fmt.Fprintf(os.Stderr, "session %s (business %s), /quit to leave\n", cl.SessionID(), cl.BusinessID())
		next = promptSource(&input.UI{Writer: os.Stderr, Reader: os.Stdin})
	} else {
		next = lineSource(os.Stdin)
	}
	return runChat(ctx, cl, next, w, interactive)
}

func promptSource(ui *input.UI) messageSource {
	return func() (string, error) {
		answer, err := ui.Ask(youStyle.Render("you"), &input.Options{
			Required:  true,
			Loop:      true,
			HideOrder: true,
		})
		if err != nil {
			if stderrors.Is(err, input.ErrInterrupted) {
				return "", io.EOF
			}
			return "", errors.Wrap(err, "failed to get user input")
		}
		return answer, nil
	}
}

func lineSource(r io.Reader) messageSource {
	scanner := bufio.NewScanner(r)
	return func() (string, error) {
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				return line, nil
			}
		}
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
}

// runChat sends messages until the source is exhausted or a quit word is entered.
// Relay rejections are printed and the conversation continues; transport errors end it.
func runChat(ctx context.Context, s sender, next messageSource, w io.Writer, styled bool) error {
	label := func(st lipgloss.Style, text string) string {
		if styled {
			return st.Render(text)
		}
		return text
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		msg, err := next()
		if err != nil {
			if stderrors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if quitWords[strings.TrimSpace(msg)] {
			return nil
		}
		resp, err := s.Send(ctx, msg)
		if err != nil {
			var se *client.StatusError
			if stderrors.As(err, &se) {
				_, _ = fmt.Fprintln(w, label(errorStyle, "error: "+se.Error()))
				continue
			}
			return err
		}
		if _, err := fmt.Fprintf(w, "%s: %s\n", label(assistantStyle, "assistant"), resp.Reply()); err != nil {
			return err
		}
	}
}
