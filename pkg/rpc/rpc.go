package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
)

// ErrUnavailable is returned when the remote peer cannot be reached at all.
var ErrUnavailable = errors.New("service unavailable")

// RemoteError is returned when the peer explicitly rejected the call, e.g.
// "order not found". The originating message is preserved for the caller.
type RemoteError struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error %d: %s", e.StatusCode, e.Message)
}

// Client is a point-to-point request/reply channel between named services.
type Client interface {
	// Call sends a command and waits for the reply. A context deadline is
	// always enforced; transports apply a default when the caller supplies
	// none.
	Call(ctx context.Context, service, command string, payload any) (json.RawMessage, error)
	// Emit is fire-and-forget to a single addressable peer, distinct from
	// the broadcast event bus.
	Emit(ctx context.Context, service, eventName string, payload any) error
}

// HandlerFunc serves one command. The returned value is marshaled as the
// reply; a returned error is translated into a RemoteError for the caller.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) (any, error)

// EventFunc serves one fire-and-forget event.
type EventFunc func(ctx context.Context, payload json.RawMessage) error

// Mux routes incoming commands and events for one named service.
type Mux struct {
	service  string
	commands map[string]HandlerFunc
	events   map[string]EventFunc
}

func NewMux(service string) *Mux {
	return &Mux{
		service:  service,
		commands: make(map[string]HandlerFunc),
		events:   make(map[string]EventFunc),
	}
}

func (m *Mux) Service() string { return m.service }

func (m *Mux) Handle(command string, h HandlerFunc) {
	m.commands[command] = h
}

func (m *Mux) HandleEvent(eventName string, h EventFunc) {
	m.events[eventName] = h
}

// dispatch runs a command handler and normalizes its outcome the way the
// wire would: results as raw JSON, errors as *RemoteError.
func (m *Mux) dispatch(ctx context.Context, command string, payload json.RawMessage) (json.RawMessage, error) {
	h, ok := m.commands[command]
	if !ok {
		return nil, &RemoteError{StatusCode: 404, Message: fmt.Sprintf("unknown command %s.%s", m.service, command)}
	}
	result, err := h(ctx, payload)
	if err != nil {
		return nil, toRemoteError(err)
	}
	b, err := json.Marshal(result)
	if err != nil {
		return nil, &RemoteError{StatusCode: 500, Message: err.Error()}
	}
	return b, nil
}

func (m *Mux) dispatchEvent(ctx context.Context, eventName string, payload json.RawMessage) {
	h, ok := m.events[eventName]
	if !ok {
		log.Printf("rpc: no handler for event %s.%s, dropping", m.service, eventName)
		return
	}
	if err := h(ctx, payload); err != nil {
		log.Printf("rpc: event handler %s.%s failed: %v", m.service, eventName, err)
	}
}

// statusCoder is implemented by domain errors that know their HTTP-style
// status code.
type statusCoder interface {
	StatusCode() int
}

func toRemoteError(err error) *RemoteError {
	var re *RemoteError
	if errors.As(err, &re) {
		return re
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		return &RemoteError{StatusCode: sc.StatusCode(), Message: err.Error()}
	}
	if errors.Is(err, ErrUnavailable) {
		return &RemoteError{StatusCode: 503, Message: err.Error()}
	}
	return &RemoteError{StatusCode: 500, Message: err.Error()}
}
