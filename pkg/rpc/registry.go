package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Registry is an in-process Client used by tests and single-binary wiring.
// It behaves like the HTTP transport: payloads cross as JSON and handler
// errors come back as *RemoteError, so callers cannot tell the difference.
type Registry struct {
	mu       sync.RWMutex
	services map[string]*Mux
}

func NewRegistry() *Registry {
	return &Registry{services: make(map[string]*Mux)}
}

func (r *Registry) Register(mux *Mux) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[mux.Service()] = mux
}

func (r *Registry) Call(ctx context.Context, service, command string, payload any) (json.RawMessage, error) {
	mux, err := r.lookup(service)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return mux.dispatch(ctx, command, b)
}

func (r *Registry) Emit(ctx context.Context, service, eventName string, payload any) error {
	mux, err := r.lookup(service)
	if err != nil {
		return err
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	mux.dispatchEvent(ctx, eventName, b)
	return nil
}

func (r *Registry) lookup(service string) (*Mux, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mux, ok := r.services[service]
	if !ok {
		return nil, fmt.Errorf("service %s not registered: %w", service, ErrUnavailable)
	}
	return mux, nil
}
