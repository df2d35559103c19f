package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// DefaultExchange is used when no exchange name is configured.
const DefaultExchange = "formation.events"

// Publisher emits quiz events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	PublishQuizSubmitted(ctx context.Context, event *QuizSubmittedEvent) error
	PublishQuizAnalyzed(ctx context.Context, event *QuizAnalyzedEvent) error
	Close() error
}

// EventPublisher publishes JSON events to a durable topic exchange.
type EventPublisher struct {
	mu           sync.Mutex
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	enabled      bool
	log          *zap.Logger
}

// NewEventPublisher connects to RabbitMQ and declares the exchange. An
// empty URL returns a disabled publisher that drops every event.
func NewEventPublisher(url, exchange string, logger *zap.Logger) (*EventPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("events")

	if url == "" {
		logger.Info("RabbitMQ URL is empty, event publishing is disabled")
		return &EventPublisher{enabled: false, log: logger}, nil
	}
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &EventPublisher{
		conn:         conn,
		channel:      channel,
		exchangeName: exchange,
		enabled:      true,
		log:          logger,
	}, nil
}

// Enabled reports whether events are actually sent.
func (p *EventPublisher) Enabled() bool {
	return p.enabled
}

func (p *EventPublisher) publishEvent(ctx context.Context, routingKey string, event any) error {
	if !p.enabled {
		p.log.Debug("event publishing is disabled, skipping event", zap.String("routing_key", routingKey))
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(
		pubCtx,
		p.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.log.Debug("published event", zap.String("routing_key", routingKey))
	return nil
}

func (p *EventPublisher) PublishQuizSubmitted(ctx context.Context, event *QuizSubmittedEvent) error {
	event.EventType = EventTypeQuizSubmitted
	return p.publishEvent(ctx, event.EventType, event)
}

func (p *EventPublisher) PublishQuizAnalyzed(ctx context.Context, event *QuizAnalyzedEvent) error {
	event.EventType = EventTypeQuizAnalyzed
	return p.publishEvent(ctx, event.EventType, event)
}

func (p *EventPublisher) Close() error {
	if !p.enabled {
		return nil
	}

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.log.Warn("error closing RabbitMQ channel", zap.Error(err))
		}
	}

	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("error closing RabbitMQ connection: %w", err)
		}
	}

	return nil
}

// Nop is a Publisher that drops every event.
type Nop struct{}

func (Nop) PublishQuizSubmitted(context.Context, *QuizSubmittedEvent) error { return nil }
func (Nop) PublishQuizAnalyzed(context.Context, *QuizAnalyzedEvent) error   { return nil }
func (Nop) Close() error                                                    { return nil }

// Recorder is an in-memory Publisher used by tests and previews.
type Recorder struct {
	mu        sync.Mutex
	Submitted []QuizSubmittedEvent
	Analyzed  []QuizAnalyzedEvent
}

func (r *Recorder) PublishQuizSubmitted(_ context.Context, event *QuizSubmittedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event.EventType = EventTypeQuizSubmitted
	r.Submitted = append(r.Submitted, *event)
	return nil
}

func (r *Recorder) PublishQuizAnalyzed(_ context.Context, event *QuizAnalyzedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event.EventType = EventTypeQuizAnalyzed
	r.Analyzed = append(r.Analyzed, *event)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Counts returns the number of recorded submitted and analyzed events.
func (r *Recorder) Counts() (submitted, analyzed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Submitted), len(r.Analyzed)
}
