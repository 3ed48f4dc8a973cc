// Package chat consumes the advisory backend's streamed agent narration
// and folds it into an ordered, append-only message log.
package chat

import (
	"context"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/trogers1052/portfolio-advisor/internal/models"
)

// State tracks where a ChatStream is in its lifecycle
type State int

const (
	// StateIdle means no turn has started yet
	StateIdle State = iota
	// StateSending means the request is in flight with no bytes received
	StateSending
	// StateStreaming means events are being received and parsed
	StateStreaming
	// StateSettled means the turn ended, cleanly or with an error. A new
	// SendMessage call starts the next turn.
	StateSettled
)

// failureMessage is the generic user-facing text for transport failures
const failureMessage = "Sorry, I couldn't reach your advisor. Please try sending your message again."

// Streamer opens the event body for one chat turn
type Streamer interface {
	OpenChatStream(ctx context.Context, sessionID, userMessage string) (io.ReadCloser, error)
}

// ChatStream runs one chat turn at a time against the advisory backend.
// Messages appear in the log in exactly the order their records were
// parsed; nothing is reordered, coalesced, or deduplicated. The log is
// mutated only by the stream's own loop, never by external writers.
type ChatStream struct {
	mu          sync.Mutex
	sessionID   string
	backend     Streamer
	state       State
	messages    []models.StreamMessage
	activeAgent string
	onMessage   func(models.StreamMessage)
}

// NewChatStream creates a reusable stream for one session. onMessage may
// be nil; when set it fires for every appended message, outside the lock.
func NewChatStream(sessionID string, backend Streamer, onMessage func(models.StreamMessage)) *ChatStream {
	return &ChatStream{
		sessionID: sessionID,
		backend:   backend,
		state:     StateIdle,
		onMessage: onMessage,
	}
}

// State returns the current lifecycle state
func (c *ChatStream) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ActiveAgent returns the name of the agent currently narrating, or ""
func (c *ChatStream) ActiveAgent() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeAgent
}

// IsStreaming reports whether a turn is currently in flight
func (c *ChatStream) IsStreaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateSending || c.state == StateStreaming
}

// Messages returns a snapshot of the message log in arrival order
func (c *ChatStream) Messages() []models.StreamMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.StreamMessage(nil), c.messages...)
}

func (c *ChatStream) append(msg models.StreamMessage) {
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()

	if c.onMessage != nil {
		c.onMessage(msg)
	}
}

// SendMessage runs one chat turn to completion, blocking until the stream
// settles. Blank text is a no-op, as is calling while a turn is already in
// flight. The user's message is appended to the log before any network
// activity. The returned error reports transport failures; protocol-level
// errors surface in the log only.
func (c *ChatStream) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	c.mu.Lock()
	if c.state != StateIdle && c.state != StateSettled {
		c.mu.Unlock()
		return nil
	}
	c.state = StateSending
	c.mu.Unlock()

	c.append(models.StreamMessage{
		ID:      uuid.NewString(),
		Content: text,
		Kind:    models.KindMessage,
	})

	body, err := c.backend.OpenChatStream(ctx, c.sessionID, text)
	if err != nil {
		log.Printf("chat stream for session %s failed to open: %v", c.sessionID, err)
		c.settleWithFailure()
		return err
	}
	defer body.Close()

	c.readLoop(body)
	return nil
}

// readLoop decodes the body chunk by chunk until a terminal event, a
// transport failure, or end of stream
func (c *ChatStream) readLoop(body io.Reader) {
	var decoder lineDecoder
	buf := make([]byte, 4096)

	for {
		n, err := body.Read(buf)
		if n > 0 {
			c.mu.Lock()
			if c.state == StateSending {
				c.state = StateStreaming
			}
			c.mu.Unlock()

			for _, line := range decoder.feed(buf[:n]) {
				event, ok := parseEvent(line)
				if !ok {
					continue
				}
				if terminal := c.dispatch(event); terminal {
					return
				}
			}
		}
		if err == io.EOF {
			// the backend always terminates with stream_end or error;
			// a bare EOF means the transport was torn down mid-turn
			c.settle()
			return
		}
		if err != nil {
			log.Printf("chat stream for session %s broke mid-read: %v", c.sessionID, err)
			c.settleWithFailure()
			return
		}
	}
}

// dispatch folds one parsed event into the log and reports whether the
// event terminates the turn. Unrecognized types are ignored.
func (c *ChatStream) dispatch(event models.StreamEvent) bool {
	switch event.Type {
	case models.EventAgentStart:
		c.mu.Lock()
		c.activeAgent = event.Agent
		c.mu.Unlock()
		c.append(agentMessage(event, models.KindStart))

	case models.EventAgentThinking:
		c.append(agentMessage(event, models.KindThinking))

	case models.EventAgentResult, models.EventAgentResponse:
		c.append(agentMessage(event, models.KindResult))

	case models.EventAgentComplete:
		c.mu.Lock()
		c.activeAgent = ""
		c.mu.Unlock()
		c.append(agentMessage(event, models.KindComplete))

	case models.EventError:
		c.append(models.StreamMessage{
			ID:        uuid.NewString(),
			Content:   event.Content,
			FromAgent: true,
			Agent:     event.Agent,
			Kind:      models.KindMessage,
		})
		c.settle()
		return true

	case models.EventStreamEnd:
		c.settle()
		return true
	}
	return false
}

func agentMessage(event models.StreamEvent, kind models.MessageKind) models.StreamMessage {
	return models.StreamMessage{
		ID:        uuid.NewString(),
		Content:   event.Content,
		FromAgent: true,
		Agent:     event.Agent,
		Kind:      kind,
	}
}

// settle marks the turn terminal and clears the active agent
func (c *ChatStream) settle() {
	c.mu.Lock()
	c.state = StateSettled
	c.activeAgent = ""
	c.mu.Unlock()
}

// settleWithFailure settles the turn with one generic failure message
func (c *ChatStream) settleWithFailure() {
	c.append(models.StreamMessage{
		ID:        uuid.NewString(),
		Content:   failureMessage,
		FromAgent: true,
		Kind:      models.KindMessage,
	})
	c.settle()
}
