// Package testutil provides common test utilities for the ledger.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/erp/ledger/internal/domain/shared"
)

// EventSink is an event handler that keeps every event delivered to it.
// Without event types it subscribes to all events on a bus.
type EventSink struct {
	mu         sync.Mutex
	eventTypes []string
	events     []shared.DomainEvent
}

// NewEventSink creates a sink for the given event types
func NewEventSink(eventTypes ...string) *EventSink {
	return &EventSink{eventTypes: eventTypes}
}

// EventTypes returns the event types the sink subscribes to
func (s *EventSink) EventTypes() []string {
	return s.eventTypes
}

// Handle records the event
func (s *EventSink) Handle(_ context.Context, event shared.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of everything delivered so far
func (s *EventSink) Events() []shared.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]shared.DomainEvent(nil), s.events...)
}

// OfType returns the delivered events of one type in delivery order
func (s *EventSink) OfType(eventType string) []shared.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []shared.DomainEvent
	for _, e := range s.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// RequireDelivered waits until the sink holds at least n events of eventType
// and returns them. The test fails at timeout.
func RequireDelivered(t *testing.T, sink *EventSink, eventType string, n int, timeout time.Duration) []shared.DomainEvent {
	t.Helper()
	RequireEventually(t, func() bool {
		return len(sink.OfType(eventType)) >= n
	}, timeout, 10*time.Millisecond, "expected %d %s event(s)", n, eventType)
	return sink.OfType(eventType)
}

// TestEvent is a domain event no ledger handler knows about
type TestEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

// NewTestEvent creates a TestEvent for tenantID
func NewTestEvent(eventType string, tenantID uuid.UUID) *TestEvent {
	return &TestEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New(), tenantID),
		Data:            "test-data",
	}
}
