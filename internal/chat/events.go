package chat

import (
	"context"
	"errors"

	"github.com/leixiaohui-1974/HydroResources/internal/conversation"
	"github.com/leixiaohui-1974/HydroResources/internal/tools"
)

// EventType tags the entries of the orchestrator's output stream.
type EventType string

const (
	EventTextDelta         EventType = "text"
	EventToolCallStarted   EventType = "tool_call"
	EventToolCallCompleted EventType = "tool_result"
	EventToolCallFailed    EventType = "tool_error"
	EventCompleted         EventType = "complete"
	EventFailed            EventType = "error"
)

// ErrorKind is the orchestrator's error taxonomy, surfaced on terminal
// Failed events and on per-tool failure events.
type ErrorKind string

const (
	KindProviderUnavailable  ErrorKind = "provider_unavailable"
	KindProviderTransport    ErrorKind = "provider_transport_error"
	KindProviderProtocol     ErrorKind = "provider_protocol_error"
	KindToolNotFound         ErrorKind = "tool_not_found"
	KindToolExecution        ErrorKind = "tool_execution_error"
	KindToolTimeout          ErrorKind = "tool_timeout"
	KindConversationNotFound ErrorKind = "conversation_not_found"
	KindCanceled             ErrorKind = "canceled"
)

// ErrProviderProtocol marks a stream shape the orchestrator cannot
// accept, e.g. a tool call requested during the continuation pass.
var ErrProviderProtocol = errors.New("provider protocol violation")

// Event is one entry of the stream a Run delivers to its caller.
// Tool events carry the originating call's ID so Started, Completed and
// Failed can be paired even when tools execute concurrently.
type Event struct {
	Type           EventType     `json:"type"`
	ConversationID string        `json:"conversation_id,omitempty"`
	Content        string        `json:"content,omitempty"`
	ToolCallID     string        `json:"tool_call_id,omitempty"`
	ToolName       string        `json:"tool_name,omitempty"`
	Result         *tools.Result `json:"result,omitempty"`
	ErrorKind      ErrorKind     `json:"error_kind,omitempty"`
	Error          string        `json:"error,omitempty"`
}

func textDelta(content string) Event {
	return Event{Type: EventTextDelta, Content: content}
}

func completed(conversationID string) Event {
	return Event{Type: EventCompleted, ConversationID: conversationID}
}

func failed(err error) Event {
	return Event{Type: EventFailed, ErrorKind: classifyError(err), Error: err.Error()}
}

func classifyError(err error) ErrorKind {
	switch {
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, tools.ErrToolNotFound):
		return KindToolNotFound
	case errors.Is(err, tools.ErrToolTimeout):
		return KindToolTimeout
	case errors.Is(err, tools.ErrToolExecution):
		return KindToolExecution
	case errors.Is(err, conversation.ErrConversationNotFound):
		return KindConversationNotFound
	case errors.Is(err, ErrProviderProtocol):
		return KindProviderProtocol
	}
	var execErr *tools.ExecutionError
	if errors.As(err, &execErr) {
		return KindToolExecution
	}
	return KindProviderTransport
}
