package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// GradingEvent represents one step of a grading run
type GradingEvent struct {
	EventType      EventType      `json:"event_type"`
	Timestamp      time.Time      `json:"timestamp"`
	UserID         string         `json:"user_id,omitempty"`
	ComicID        string         `json:"comic_id,omitempty"`
	Provider       string         `json:"provider,omitempty"`
	Posture        string         `json:"posture,omitempty"`
	Final          float64        `json:"final,omitempty"`
	Confidence     float64        `json:"confidence,omitempty"`
	ProcessingTime time.Duration  `json:"processing_time"`
	Success        bool           `json:"success"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// EventType represents the type of grading event
type EventType string

const (
	// GradingStarted when images are accepted for grading
	GradingStarted EventType = "grading_started"
	// OpinionReceived when a provider returns a valid opinion
	OpinionReceived EventType = "opinion_received"
	// OpinionFailed when a provider call fails or returns a malformed opinion
	OpinionFailed EventType = "opinion_failed"
	// GradingCompleted when the result has been stored
	GradingCompleted EventType = "grading_completed"
	// GradingFailed when the run is abandoned
	GradingFailed EventType = "grading_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event GradingEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event GradingEvent)
}

// LoggingObserver logs grading events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles grading events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event GradingEvent) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"success":    event.Success,
	}
	for k, v := range map[string]string{
		"user_id":  event.UserID,
		"comic_id": event.ComicID,
		"provider": event.Provider,
		"posture":  event.Posture,
		"error":    event.ErrorMessage,
	} {
		if v != "" {
			fields[k] = v
		}
	}
	if event.ProcessingTime > 0 {
		fields["processing_time"] = event.ProcessingTime
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case GradingStarted:
		entry.Info("Grading started")
	case OpinionReceived:
		entry.Debug("Opinion received")
	case OpinionFailed:
		entry.Warn("Opinion failed")
	case GradingCompleted:
		entry.WithFields(logrus.Fields{
			"final":      event.Final,
			"confidence": event.Confidence,
		}).Info("Grading completed")
	case GradingFailed:
		entry.Error("Grading failed")
	default:
		entry.Info("Grading event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
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

// NotifyObservers notifies all observers of an event concurrently.
// The context handed to observers is detached from request cancellation.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event GradingEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	ctx = context.WithoutCancel(ctx)
	for _, observer := range observers {
		go func(obs Observer) {
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}
