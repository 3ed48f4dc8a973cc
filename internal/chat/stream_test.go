package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/portfolio-advisor/internal/models"
)

// scriptStreamer replays a fixed body, or fails to open the stream
type scriptStreamer struct {
	mu      sync.Mutex
	bodies  []string
	openErr error
	opens   int
}

func (s *scriptStreamer) OpenChatStream(ctx context.Context, sessionID, userMessage string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return nil, s.openErr
	}
	body := s.bodies[s.opens%len(s.bodies)]
	s.opens++
	return io.NopCloser(strings.NewReader(body)), nil
}

func sse(events ...string) string {
	var b strings.Builder
	for _, e := range events {
		b.WriteString("data: ")
		b.WriteString(e)
		b.WriteString("\n\n")
	}
	return b.String()
}

func kinds(messages []models.StreamMessage) []models.MessageKind {
	out := make([]models.MessageKind, len(messages))
	for i, m := range messages {
		out[i] = m.Kind
	}
	return out
}

func TestChatStream(t *testing.T) {
	ctx := context.Background()

	t.Run("scenario: full turn yields ordered messages and settles clean", func(t *testing.T) {
		streamer := &scriptStreamer{bodies: []string{sse(
			`{"type":"agent_start","agent":"data_fetch","content":"Fetching your data..."}`,
			`{"type":"agent_thinking","agent":"data_fetch","content":"Pulling live prices..."}`,
			`{"type":"agent_complete","agent":"data_fetch","content":"Done."}`,
			`{"type":"stream_end"}`,
		)}}
		stream := NewChatStream("sess-1", streamer, nil)

		require.NoError(t, stream.SendMessage(ctx, "start my analysis"))

		messages := stream.Messages()
		require.Len(t, messages, 4, "user message plus exactly three agent messages")
		assert.Equal(t, []models.MessageKind{
			models.KindMessage, models.KindStart, models.KindThinking, models.KindComplete,
		}, kinds(messages))
		assert.False(t, messages[0].FromAgent)
		assert.Equal(t, "start my analysis", messages[0].Content)
		assert.Equal(t, StateSettled, stream.State())
		assert.Empty(t, stream.ActiveAgent())
	})

	t.Run("scenario: failed open yields one generic failure message", func(t *testing.T) {
		streamer := &scriptStreamer{openErr: errors.New("connection refused")}
		stream := NewChatStream("sess-1", streamer, nil)

		err := stream.SendMessage(ctx, "hello")
		require.Error(t, err)

		messages := stream.Messages()
		require.Len(t, messages, 2)
		assert.Equal(t, models.KindMessage, messages[1].Kind)
		assert.Equal(t, failureMessage, messages[1].Content)
		assert.Equal(t, StateSettled, stream.State())
	})

	t.Run("agent_response records count as results", func(t *testing.T) {
		streamer := &scriptStreamer{bodies: []string{sse(
			`{"type":"agent_response","agent":"analysis","content":"Your drift is 4%"}`,
			`{"type":"stream_end"}`,
		)}}
		stream := NewChatStream("sess-1", streamer, nil)
		require.NoError(t, stream.SendMessage(ctx, "analyze"))

		messages := stream.Messages()
		require.Len(t, messages, 2)
		assert.Equal(t, models.KindResult, messages[1].Kind)
		assert.Equal(t, "analysis", messages[1].Agent)
	})

	t.Run("error event settles the turn and abandons the rest", func(t *testing.T) {
		streamer := &scriptStreamer{bodies: []string{sse(
			`{"type":"agent_start","agent":"optimization","content":"Optimizing..."}`,
			`{"type":"error","content":"No questionnaire found for this session."}`,
			`{"type":"agent_result","agent":"optimization","content":"never delivered"}`,
		)}}
		stream := NewChatStream("sess-1", streamer, nil)
		require.NoError(t, stream.SendMessage(ctx, "optimize"))

		messages := stream.Messages()
		require.Len(t, messages, 3, "user, start, error; the trailing result is abandoned")
		assert.Equal(t, models.KindMessage, messages[2].Kind)
		assert.Equal(t, "No questionnaire found for this session.", messages[2].Content)
		assert.Equal(t, StateSettled, stream.State())
		assert.Empty(t, stream.ActiveAgent())
	})

	t.Run("malformed records are dropped without killing the stream", func(t *testing.T) {
		body := "data: {\"type\":\"agent_start\",\"agent\":\"analysis\"}\n" +
			"data: {this is not json\n" +
			"garbage line without a marker\n" +
			": comment\n" +
			"data: {\"type\":\"agent_complete\",\"agent\":\"analysis\"}\n" +
			"data: {\"type\":\"stream_end\"}\n"
		streamer := &scriptStreamer{bodies: []string{body}}
		stream := NewChatStream("sess-1", streamer, nil)
		require.NoError(t, stream.SendMessage(ctx, "go"))

		assert.Equal(t, []models.MessageKind{
			models.KindMessage, models.KindStart, models.KindComplete,
		}, kinds(stream.Messages()))
	})

	t.Run("each record appends exactly one message", func(t *testing.T) {
		events := []string{
			`{"type":"agent_start","agent":"a","content":"1"}`,
			`{"type":"agent_thinking","agent":"a","content":"2"}`,
			`{"type":"agent_thinking","agent":"a","content":"2"}`,
			`{"type":"agent_result","agent":"a","content":"3"}`,
			`{"type":"agent_complete","agent":"a","content":"4"}`,
			`{"type":"stream_end"}`,
		}
		streamer := &scriptStreamer{bodies: []string{sse(events...)}}
		stream := NewChatStream("sess-1", streamer, nil)
		require.NoError(t, stream.SendMessage(ctx, "go"))

		messages := stream.Messages()
		require.Len(t, messages, 6, "duplicate well-formed records are not coalesced")
		assert.Equal(t, []string{"go", "1", "2", "2", "3", "4"}, contents(messages))
	})

	t.Run("blank input and duplicate sends are no-ops", func(t *testing.T) {
		streamer := &scriptStreamer{bodies: []string{sse(`{"type":"stream_end"}`)}}
		stream := NewChatStream("sess-1", streamer, nil)

		require.NoError(t, stream.SendMessage(ctx, "   "))
		assert.Empty(t, stream.Messages())
		assert.Equal(t, StateIdle, stream.State())
	})

	t.Run("a second send while streaming is ignored", func(t *testing.T) {
		reader, writer := io.Pipe()
		stream := NewChatStream("sess-1", pipeStreamer{reader}, nil)

		done := make(chan error, 1)
		go func() { done <- stream.SendMessage(ctx, "first") }()

		_, err := writer.Write([]byte("data: {\"type\":\"agent_start\",\"agent\":\"analysis\"}\n"))
		require.NoError(t, err)
		require.Eventually(t, func() bool {
			return stream.State() == StateStreaming
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, "analysis", stream.ActiveAgent())

		require.NoError(t, stream.SendMessage(ctx, "second"))
		assert.Len(t, stream.Messages(), 2, "the second user message was not appended")

		_, err = writer.Write([]byte("data: {\"type\":\"stream_end\"}\n"))
		require.NoError(t, err)
		require.NoError(t, <-done)
		assert.Equal(t, StateSettled, stream.State())
	})

	t.Run("mid-stream transport failure settles with one failure message", func(t *testing.T) {
		reader, writer := io.Pipe()
		stream := NewChatStream("sess-1", pipeStreamer{reader}, nil)

		done := make(chan error, 1)
		go func() { done <- stream.SendMessage(ctx, "first") }()

		_, err := writer.Write([]byte("data: {\"type\":\"agent_start\",\"agent\":\"analysis\"}\n"))
		require.NoError(t, err)
		require.NoError(t, writer.CloseWithError(errors.New("connection reset")))

		require.NoError(t, <-done)
		messages := stream.Messages()
		require.Len(t, messages, 3)
		assert.Equal(t, failureMessage, messages[2].Content)
		assert.Equal(t, StateSettled, stream.State())
	})

	t.Run("the stream is reusable across turns", func(t *testing.T) {
		streamer := &scriptStreamer{bodies: []string{sse(
			`{"type":"agent_result","agent":"analysis","content":"turn result"}`,
			`{"type":"stream_end"}`,
		)}}
		stream := NewChatStream("sess-1", streamer, nil)

		require.NoError(t, stream.SendMessage(ctx, "turn one"))
		require.NoError(t, stream.SendMessage(ctx, "turn two"))

		messages := stream.Messages()
		assert.Len(t, messages, 4, "the log grows monotonically across turns")
		assert.Equal(t, 2, streamer.opens)
	})

	t.Run("onMessage fires once per appended message", func(t *testing.T) {
		streamer := &scriptStreamer{bodies: []string{sse(
			`{"type":"agent_thinking","agent":"a","content":"x"}`,
			`{"type":"stream_end"}`,
		)}}
		var mu sync.Mutex
		var seen []models.StreamMessage
		stream := NewChatStream("sess-1", streamer, func(m models.StreamMessage) {
			mu.Lock()
			seen = append(seen, m)
			mu.Unlock()
		})
		require.NoError(t, stream.SendMessage(ctx, "go"))

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, stream.Messages(), seen)
	})
}

type pipeStreamer struct {
	body io.ReadCloser
}

func (p pipeStreamer) OpenChatStream(ctx context.Context, sessionID, userMessage string) (io.ReadCloser, error) {
	return p.body, nil
}

func contents(messages []models.StreamMessage) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.Content
	}
	return out
}
