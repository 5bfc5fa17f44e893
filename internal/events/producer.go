// Package events publishes case lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	TicketCreated      = "ticket.created"
	TicketUpdated      = "ticket.updated"
	AppointmentCreated = "appointment.created"
	PaymentCompleted   = "payment.completed"
)

const (
	publishTimeout = 5 * time.Second
	queueSize      = 1024
	maxBatch       = 100
)

// ErrClosed is returned by PublishSync after Close.
var ErrClosed = errors.New("events: producer closed")

// Publisher emits a domain event. Publish must not block the caller; PublishSync
// returns once the event is written or failed.
type Publisher interface {
	Publish(event string, key uint64, payload map[string]interface{})
	PublishSync(ctx context.Context, event string, key uint64, payload map[string]interface{}) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type queued struct {
	event  string
	msg    kafka.Message
	result chan error
}

// Producer writes events to one topic from a single worker, so events are written in
// the order they were published. A Producer without brokers is a no-op.
type Producer struct {
	writer messageWriter
	log    *zap.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan queued
	done   chan struct{}
}

// NewProducer returns a no-op producer when brokers or topic are empty.
func NewProducer(brokers []string, topic string, log *zap.Logger) *Producer {
	if len(brokers) == 0 || topic == "" {
		return &Producer{log: log}
	}
	return newProducer(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}, log)
}

func newProducer(w messageWriter, log *zap.Logger) *Producer {
	p := &Producer{
		writer: w,
		log:    log,
		queue:  make(chan queued, queueSize),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish queues the event. key is the ticket id, so events of one case land on one
// partition in order. A full queue drops the event with a warning.
func (p *Producer) Publish(event string, key uint64, payload map[string]interface{}) {
	if p.writer == nil {
		return
	}
	msg, err := encode(event, key, payload)
	if err != nil {
		p.log.Warn("events: marshal", zap.String("event", event), zap.Error(err))
		return
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.log.Warn("events: publish after close", zap.String("event", event))
		return
	}
	select {
	case p.queue <- queued{event: event, msg: msg}:
	default:
		p.log.Warn("events: queue full, event dropped", zap.String("event", event), zap.Uint64("key", key))
	}
}

// PublishSync queues the event behind everything already published and waits for
// the write result.
func (p *Producer) PublishSync(ctx context.Context, event string, key uint64, payload map[string]interface{}) error {
	if p.writer == nil {
		return nil
	}
	msg, err := encode(event, key, payload)
	if err != nil {
		return err
	}
	result := make(chan error, 1)
	if err := p.enqueue(ctx, queued{event: event, msg: msg, result: result}); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Producer) enqueue(ctx context.Context, q queued) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- q:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func encode(event string, key uint64, payload map[string]interface{}) (kafka.Message, error) {
	msg := map[string]interface{}{
		"event":      event,
		"occurredAt": time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range payload {
		msg[k] = v
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{Key: []byte(strconv.FormatUint(key, 10)), Value: body}, nil
}

// run drains the queue in batches until Close.
func (p *Producer) run() {
	defer close(p.done)
	batch := make([]queued, 0, maxBatch)
	for first := range p.queue {
		batch = append(batch[:0], first)
	fill:
		for len(batch) < maxBatch {
			select {
			case q, ok := <-p.queue:
				if !ok {
					break fill
				}
				batch = append(batch, q)
			default:
				break fill
			}
		}
		p.write(batch)
	}
}

func (p *Producer) write(batch []queued) {
	msgs := make([]kafka.Message, len(batch))
	for i, q := range batch {
		msgs[i] = q.msg
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	err := p.writer.WriteMessages(ctx, msgs...)
	cancel()
	if err != nil {
		p.log.Warn("events: write", zap.String("event", batch[0].event), zap.Int("batch", len(batch)), zap.Error(err))
	}
	for _, q := range batch {
		if q.result != nil {
			q.result <- err
		}
	}
}

// Close flushes queued events and closes the writer.
func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()
	<-p.done
	return p.writer.Close()
}
