package events

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"municipality/internal/config"
)

// Event types
const (
	RequestCreated         = "request.created"
	RequestStatusChanged   = "request.status_changed"
	RequestDeleted         = "request.deleted"
	PaymentCompleted       = "payment.completed"
	PaymentFailed          = "payment.failed"
	ComplaintCreated       = "complaint.created"
	ComplaintStatusChanged = "complaint.status_changed"
	ComplaintResponded     = "complaint.responded"
	NotificationCreated    = "notification.created"
	AnnouncementPublished  = "announcement.published"
	FeedbackSubmitted      = "feedback.submitted"
)

// Event is a lifecycle fact published for downstream consumers
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Key       string      `json:"key"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// New creates an event with a fresh id
func New(eventType, key string, data interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Key:       key,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// Publisher delivers events
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to one topic per entity kind
type KafkaPublisher struct {
	writers map[string]messageWriter
	topics  config.KafkaTopicsConfig
	source  string
	logger  *zap.Logger
}

// NewKafkaPublisher creates a writer for each configured topic
func NewKafkaPublisher(cfg config.KafkaConfig, logger *zap.Logger) *KafkaPublisher {
	p := &KafkaPublisher{
		writers: make(map[string]messageWriter),
		topics:  cfg.Topics,
		source:  cfg.ClientID,
		logger:  logger.Named("events"),
	}

	for _, topic := range []string{cfg.Topics.Requests, cfg.Topics.Payments, cfg.Topics.Complaints, cfg.Topics.Notifications} {
		p.writers[topic] = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 5 * time.Second,
		}
	}

	return p
}

// topicFor routes an event type to its topic by prefix
func (p *KafkaPublisher) topicFor(eventType string) string {
	switch {
	case strings.HasPrefix(eventType, "request."):
		return p.topics.Requests
	case strings.HasPrefix(eventType, "payment."):
		return p.topics.Payments
	case strings.HasPrefix(eventType, "complaint."):
		return p.topics.Complaints
	default:
		return p.topics.Notifications
	}
}

// Publish serializes event as JSON and writes it keyed by event.Key
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	topic := p.topicFor(event.Type)
	writer, exists := p.writers[topic]
	if !exists {
		return errors.Errorf("no writer configured for topic: %s", topic)
	}

	value, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to serialize event")
	}

	message := kafka.Message{
		Key:   []byte(event.Key),
		Value: value,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "event-type", Value: []byte(event.Type)},
			{Key: "source-service", Value: []byte(p.source)},
		},
	}

	if err := writer.WriteMessages(ctx, message); err != nil {
		p.logger.Error("Failed to publish event",
			zap.String("topic", topic),
			zap.String("type", event.Type),
			zap.Error(err))
		return errors.Wrap(err, "failed to publish event")
	}

	p.logger.Debug("Event published", zap.String("topic", topic), zap.String("type", event.Type))
	return nil
}

// Close flushes and closes every writer
func (p *KafkaPublisher) Close() error {
	var firstErr error
	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "failed to close writer for %s", topic)
		}
	}
	return firstErr
}

// Nop discards events
type Nop struct{}

func (Nop) Publish(ctx context.Context, event Event) error { return nil }
func (Nop) Close() error                                  { return nil }

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Types returns the recorded event types in publish order
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, len(r.events))
	for i, event := range r.events {
		types[i] = event.Type
	}
	return types
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
