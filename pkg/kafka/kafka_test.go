package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []kafka.Message
	drained   chan struct{}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.pending) > 0 {
		m := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()

	select {
	case r.drained <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestMessageBuilder(t *testing.T) {
	msg, err := NewMessage().
		WithKey("b-1").
		WithValue(map[string]int{"guests": 2}).
		WithEventType("booking.created").
		WithCorrelationID("").
		Build()
	require.NoError(t, err)

	assert.Equal(t, "b-1", msg.Key)
	assert.JSONEq(t, `{"guests":2}`, string(msg.Value))
	assert.NotEmpty(t, msg.GetEventID())
	assert.Equal(t, "booking.created", msg.GetEventType())
	_, hasCorrelation := msg.Headers[HeaderCorrelationID]
	assert.False(t, hasCorrelation)

	_, err = NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	assert.Error(t, err)
}

func TestMessage_RetryCount(t *testing.T) {
	msg := Message{}
	assert.Equal(t, 0, msg.GetRetryCount())
	for i := 0; i < 12; i++ {
		msg.IncrementRetryCount()
	}
	assert.Equal(t, 12, msg.GetRetryCount())
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, ErrorTypeTransient, ClassifyError(NewTransientError("x", nil)))
	assert.Equal(t, ErrorTypePermanent, ClassifyError(NewPermanentError("x", nil)))
	assert.Equal(t, ErrorTypeTransient, ClassifyError(context.DeadlineExceeded))
	assert.Equal(t, ErrorTypeTransient, ClassifyError(errors.New("dial tcp: Connection Refused")))
	assert.Equal(t, ErrorTypePermanent, ClassifyError(errors.New("bad payload")))
	assert.False(t, ShouldRetry(NewTransientError("x", nil), 3, 3))
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "bookings.events", nil)

	var seen []string
	p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
		seen = append(seen, msg.Topic)
		return next(ctx, msg)
	})

	msg, err := NewMessage().WithKey("b-1").WithValue("v").Build()
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), msg))

	require.Len(t, w.messages, 1)
	assert.Equal(t, "b-1", string(w.messages[0].Key))
	assert.Equal(t, []string{"bookings.events"}, seen)

	assert.ErrorIs(t, p.Publish(context.Background(), Message{Value: []byte("x")}), ErrEmptyKey)
	assert.ErrorIs(t, p.Publish(context.Background(), Message{Key: "k"}), ErrEmptyValue)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
	assert.ErrorIs(t, p.Publish(context.Background(), msg), ErrProducerClosed)
}

func TestProducer_DLQOnFailure(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	dlq := &fakeWriter{}
	p := newProducer(w, "bookings.events", nil)
	p.dlqWriter = dlq

	msg, _ := NewMessage().WithKey("b-1").WithValue("v").Build()
	err := p.Publish(context.Background(), msg)
	require.Error(t, err)

	require.Len(t, dlq.messages, 1)
	headers := fromKafkaMessage(dlq.messages[0]).Headers
	assert.Equal(t, "bookings.events", headers[HeaderOriginalTopic])
	assert.Equal(t, "leader not available", headers[HeaderDLQError])
	_, leaked := msg.Headers[HeaderDLQError]
	assert.False(t, leaked, "caller's headers are not mutated")
}

func TestConsumer_RetriesTransientThenCommits(t *testing.T) {
	r := &fakeReader{
		pending: []kafka.Message{{Key: []byte("a"), Offset: 1}, {Key: []byte("b"), Offset: 2}},
		drained: make(chan struct{}, 1),
	}

	var mu sync.Mutex
	attempts := map[string]int{}
	handler := func(ctx context.Context, msg Message) error {
		mu.Lock()
		defer mu.Unlock()
		attempts[msg.Key]++
		if msg.Key == "a" && attempts["a"] < 3 {
			return NewTransientError("flaky", nil)
		}
		if msg.Key == "b" {
			return NewPermanentError("bad", nil)
		}
		return nil
	}

	c := newConsumer(r, "listings.events", "g", handler, nil)
	c.maxRetries = 5
	dlq := &fakeWriter{}
	c.dlqWriter = dlq

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	select {
	case <-r.drained:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not drain messages")
	}
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	assert.Equal(t, 3, attempts["a"])
	assert.Equal(t, 1, attempts["b"], "permanent errors are not retried")
	assert.Len(t, r.committed, 2)
	require.Len(t, dlq.messages, 1)
	assert.Equal(t, "b", string(dlq.messages[0].Key))
}
