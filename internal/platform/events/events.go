// Package events publishes document lifecycle notifications to the extraction
// pipeline. Publishing is fire-and-forget: failures are logged, never returned
// to the request that triggered them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	TypeLabReportUploaded = "lab_report.uploaded"
	TypeEOBUpserted       = "eob.upserted"
	TypeBenefitsUpserted  = "insurance_benefits.upserted"
)

type Event struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Key        string                 `json:"key"`
	UserID     string                 `json:"user_id"`
	Data       map[string]interface{} `json:"data,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// New stamps an event with an id and the current time.
func New(eventType, key, userID string, data map[string]interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Key:        key,
		UserID:     userID,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}

func (e Event) Encode() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", e.Type, err)
	}
	return b, nil
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// Memory keeps published events in order, for tests and local runs.
type Memory struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Publish(_ context.Context, evt Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.events = append(m.events, evt)
	return nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Dispatcher publishes in the background with a per-event timeout.
type Dispatcher struct {
	pub     Publisher
	logger  zerolog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(pub Publisher, logger zerolog.Logger, timeout time.Duration) *Dispatcher {
	if pub == nil {
		pub = Noop{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{pub: pub, logger: logger, timeout: timeout}
}

// Emit schedules evt for publishing and returns immediately.
func (d *Dispatcher) Emit(evt Event) {
	if d == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.pub.Publish(ctx, evt); err != nil {
			d.logger.Warn().Err(err).
				Str("event_id", evt.ID).
				Str("event_type", evt.Type).
				Str("key", evt.Key).
				Msg("event publish failed")
		}
	}()
}

// Wait blocks until every emitted event has been attempted.
func (d *Dispatcher) Wait() {
	if d != nil {
		d.wg.Wait()
	}
}

// Close waits for in-flight events and closes the publisher.
func (d *Dispatcher) Close() error {
	d.Wait()
	return d.pub.Close()
}
