package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
)

type captureWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *captureWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishBatchEncodesValues(t *testing.T) {
	w := &captureWriter{}
	p := NewProducerWithWriter(w, "gzip")

	err := p.PublishBatch(context.Background(), "tables", []Message{
		{Key: []byte("BTC/USDT"), Value: map[string]int{"rows": 2}, Headers: map[string]string{"run_id": "r1"}},
		{Key: []byte("SPY"), Value: "raw"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(w.msgs))
	}
	if w.msgs[0].Topic != "tables" || string(w.msgs[0].Value) != `{"rows":2}` || string(w.msgs[1].Value) != "raw" {
		t.Fatalf("unexpected messages %+v", w.msgs)
	}
	if len(w.msgs[0].Headers) != 1 || w.msgs[0].Headers[0].Key != "run_id" || string(w.msgs[0].Headers[0].Value) != "r1" {
		t.Fatalf("unexpected headers %+v", w.msgs[0].Headers)
	}
}

func TestPublishWrapsWriterError(t *testing.T) {
	boom := errors.New("leader not available")
	p := NewProducerWithWriter(&captureWriter{err: boom}, "gzip")
	err := p.Publish(context.Background(), "tables", []byte("k"), []byte("v"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped writer error, got %v", err)
	}
}

func TestPublishRejectsUnencodableValue(t *testing.T) {
	w := &captureWriter{}
	p := NewProducerWithWriter(w, "gzip")
	if err := p.Publish(context.Background(), "tables", nil, make(chan int)); err == nil {
		t.Fatalf("expected marshal error")
	}
	if len(w.msgs) != 0 {
		t.Fatalf("nothing should be written on encode failure")
	}
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	if _, err := NewProducer(); err == nil {
		t.Fatalf("expected error without brokers")
	}
	p, err := NewProducer(WithBrokers([]string{"localhost:9092"}), WithCompression("zstd"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
