package bus

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory is an in-process Bus used by tests and single-binary wiring. It
// keeps the broker's consumer-group contract: one delivery per group, round
// robin across a group's members. Delivery is inline on the publishing
// goroutine, so tests observe handler effects as soon as Publish returns.
type Memory struct {
	mu     sync.Mutex
	groups map[string]map[string]*memberSet // topic -> group -> members
	policy FailurePolicy
}

type memberSet struct {
	handlers []Handler
	next     int
}

func NewMemory(policy FailurePolicy) *Memory {
	if policy == nil {
		policy = LogAndDrop{}
	}
	return &Memory{
		groups: make(map[string]map[string]*memberSet),
		policy: policy,
	}
}

func (m *Memory) Subscribe(topic, group string, h Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byGroup, ok := m.groups[topic]
	if !ok {
		byGroup = make(map[string]*memberSet)
		m.groups[topic] = byGroup
	}
	members, ok := byGroup[group]
	if !ok {
		members = &memberSet{}
		byGroup[group] = members
	}
	members.handlers = append(members.handlers, h)
	return nil
}

func (m *Memory) Publish(ctx context.Context, topic string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	env := Envelope{Topic: topic, Payload: b}

	m.mu.Lock()
	type delivery struct {
		group string
		h     Handler
	}
	var deliveries []delivery
	for group, members := range m.groups[topic] {
		if len(members.handlers) == 0 {
			continue
		}
		h := members.handlers[members.next%len(members.handlers)]
		members.next++
		deliveries = append(deliveries, delivery{group: group, h: h})
	}
	m.mu.Unlock()

	for _, d := range deliveries {
		if err := d.h(ctx, env); err != nil {
			m.policy.HandleFailure(topic, d.group, env, err)
		}
	}
	return nil
}
