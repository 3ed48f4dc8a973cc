package models

// MessageKind tags a chat log entry by the stream event that produced it
type MessageKind string

const (
	KindMessage  MessageKind = "message"
	KindThinking MessageKind = "thinking"
	KindResult   MessageKind = "result"
	KindStart    MessageKind = "start"
	KindComplete MessageKind = "complete"
)

// StreamMessage represents one entry in the chat message log
type StreamMessage struct {
	ID        string      `json:"id"`
	Content   string      `json:"content"`
	FromAgent bool        `json:"from_agent"`
	Agent     string      `json:"agent,omitempty"`
	Kind      MessageKind `json:"kind"`
}

// Stream event types emitted by the advisory backend. The backend sends
// both "agent_result" and "agent_response" for result records.
const (
	EventAgentStart    = "agent_start"
	EventAgentThinking = "agent_thinking"
	EventAgentResult   = "agent_result"
	EventAgentResponse = "agent_response"
	EventAgentComplete = "agent_complete"
	EventError         = "error"
	EventStreamEnd     = "stream_end"
)

// StreamEvent represents one decoded record from the advisory SSE stream
type StreamEvent struct {
	Type    string `json:"type"`
	Agent   string `json:"agent,omitempty"`
	Content string `json:"content,omitempty"`
}
