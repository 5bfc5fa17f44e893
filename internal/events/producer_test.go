package events

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type fakeWriter struct {
	mu      sync.Mutex
	msgs    []kafka.Message
	batches int
	err     error
	delay   time.Duration
	closed  bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.delay > 0 {
		time.Sleep(w.delay)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batches++
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWriter) sequence(t *testing.T) []int {
	t.Helper()
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]int, len(w.msgs))
	for i, m := range w.msgs {
		var body struct {
			Seq int `json:"seq"`
		}
		if err := json.Unmarshal(m.Value, &body); err != nil {
			t.Fatal(err)
		}
		out[i] = body.Seq
	}
	return out
}

func TestNewProducer_NoopWithoutBrokers(t *testing.T) {
	for _, tc := range []struct {
		name    string
		brokers []string
		topic   string
	}{
		{"no brokers", nil, "case-events"},
		{"no topic", []string{"localhost:9092"}, ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := NewProducer(tc.brokers, tc.topic, zap.NewNop())
			if p.writer != nil {
				t.Fatal("writer configured, want no-op")
			}
			p.Publish(TicketCreated, 1, map[string]interface{}{"ticketId": 1})
			if err := p.PublishSync(context.Background(), TicketUpdated, 1, nil); err != nil {
				t.Errorf("PublishSync: %v", err)
			}
			if err := p.Close(); err != nil {
				t.Errorf("Close: %v", err)
			}
		})
	}
}

func TestNewProducer_ConfiguresWriter(t *testing.T) {
	p := NewProducer([]string{"k1:9092", "k2:9092"}, "case-events", zap.NewNop())
	defer p.Close()
	w, ok := p.writer.(*kafka.Writer)
	if !ok {
		t.Fatalf("writer = %T", p.writer)
	}
	if w.Topic != "case-events" {
		t.Errorf("topic = %q", w.Topic)
	}
	if w.Addr.String() != "k1:9092,k2:9092" {
		t.Errorf("addr = %q", w.Addr.String())
	}
}

func TestProducer_WritesInPublishOrder(t *testing.T) {
	w := &fakeWriter{delay: time.Millisecond}
	p := newProducer(w, zap.NewNop())

	const n = 300
	for i := 0; i < n; i++ {
		p.Publish(TicketUpdated, 7, map[string]interface{}{"seq": i})
	}
	if err := p.PublishSync(context.Background(), TicketUpdated, 7, map[string]interface{}{"seq": n}); err != nil {
		t.Fatalf("PublishSync: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}

	seq := w.sequence(t)
	if len(seq) != n+1 {
		t.Fatalf("written = %d, want %d", len(seq), n+1)
	}
	for i, s := range seq {
		if s != i {
			t.Fatalf("message %d has seq %d", i, s)
		}
	}
	if string(w.msgs[0].Key) != strconv.Itoa(7) {
		t.Errorf("key = %q", w.msgs[0].Key)
	}
	if w.batches >= n {
		t.Errorf("batches = %d, want queued events grouped", w.batches)
	}
	if !w.closed {
		t.Error("writer not closed")
	}
}

func TestProducer_PublishSyncReportsFailure(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newProducer(w, zap.NewNop())
	err := p.PublishSync(context.Background(), TicketUpdated, 1, map[string]interface{}{"ticketId": 1})
	if err == nil || err.Error() != "broker down" {
		t.Errorf("err = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.PublishSync(context.Background(), TicketUpdated, 1, nil); !errors.Is(err, ErrClosed) {
		t.Errorf("after close err = %v", err)
	}
	// Publish after close is dropped, not a panic.
	p.Publish(TicketUpdated, 1, nil)
	if err := p.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
