package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"go-capture-inspector/internal/logger"
)

// Kind separates document validation from liveness assessment.
type Kind string

const (
	KindDocument Kind = "document"
	KindLiveness Kind = "liveness"
)

// EventType represents the type of verdict event
type EventType string

const (
	// VerdictStarted when a request is accepted for analysis
	VerdictStarted EventType = "verdict_started"
	// VerdictCompleted when a verdict was produced, passing or not
	VerdictCompleted EventType = "verdict_completed"
	// VerdictFailed when no verdict could be produced
	VerdictFailed EventType = "verdict_failed"
	// ImageLoaded when capture bytes were resolved
	ImageLoaded EventType = "image_loaded"
	// ImageLoadFailed when capture bytes could not be resolved
	ImageLoadFailed EventType = "image_load_failed"
)

// VerdictEvent describes one step of a validation or liveness request.
type VerdictEvent struct {
	Type      EventType     `json:"event_type"`
	Kind      Kind          `json:"kind"`
	Timestamp time.Time     `json:"timestamp"`
	RequestID string        `json:"request_id,omitempty"`
	Subject   string        `json:"subject,omitempty"` // document type or "selfie"
	Duration  time.Duration `json:"duration"`
	Passed    bool          `json:"passed"`
	// FailedChecks lists the verdict checks that did not pass.
	FailedChecks []string               `json:"failed_checks,omitempty"`
	ErrorType    string                 `json:"error_type,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event VerdictEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event VerdictEvent)
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	inflight  sync.WaitGroup
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event. Observers run
// concurrently and never block the request.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event VerdictEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	// Observers outlive the request, so they must not see its cancellation.
	ctx = context.WithoutCancel(ctx)
	for _, observer := range observers {
		p.inflight.Add(1)
		go func(obs Observer) {
			defer p.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.WithFields(logrus.Fields{
						"observer": obs.GetObserverName(),
						"panic":    r,
					}).Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}

// Flush waits for in-flight notifications to finish.
func (p *EventPublisher) Flush() {
	p.inflight.Wait()
}
