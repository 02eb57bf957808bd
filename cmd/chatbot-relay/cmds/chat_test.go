package cmds

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chatbot-relay/pkg/client"
)

type scriptedSender struct {
	got     []string
	replies map[string]any
	errs    map[string]error
}

func (s *scriptedSender) Send(_ context.Context, message string) (*client.Response, error) {
	s.got = append(s.got, message)
	if err, ok := s.errs[message]; ok {
		return nil, err
	}
	return &client.Response{Raw: s.replies[message]}, nil
}

func TestLineSource(t *testing.T) {
	next := lineSource(strings.NewReader("hello\n\n   \nsecond line\n"))

	msg, err := next()
	require.NoError(t, err)
	require.Equal(t, "hello", msg)

	msg, err = next()
	require.NoError(t, err)
	require.Equal(t, "second line", msg)

	_, err = next()
	require.ErrorIs(t, err, io.EOF)
}

func TestRunChat(t *testing.T) {
	s := &scriptedSender{
		replies: map[string]any{
			"hi":    map[string]any{"reply": "hello there"},
			"empty": map[string]any{"other": 1},
		},
		errs: map[string]error{
			"blocked": &client.StatusError{Status: http.StatusForbidden, Message: "Invalid business ID"},
		},
	}
	var out bytes.Buffer
	next := lineSource(strings.NewReader("hi\nblocked\nempty\n/quit\nnever sent\n"))

	require.NoError(t, runChat(context.Background(), s, next, &out, false))
	require.Equal(t, []string{"hi", "blocked", "empty"}, s.got)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "assistant: hello there", lines[0])
	require.Contains(t, lines[1], "Invalid business ID")
	require.Equal(t, "assistant: "+client.NoResponse, lines[2])
}

func TestRunChat_TransportErrorStops(t *testing.T) {
	s := &scriptedSender{errs: map[string]error{"hi": errors.New("connection refused")}}
	err := runChat(context.Background(), s, lineSource(strings.NewReader("hi\nagain\n")), io.Discard, false)
	require.Error(t, err)
	require.Equal(t, []string{"hi"}, s.got)
}

func TestRunChat_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &scriptedSender{}
	require.NoError(t, runChat(ctx, s, lineSource(strings.NewReader("hi\n")), io.Discard, false))
	require.Empty(t, s.got)
}
