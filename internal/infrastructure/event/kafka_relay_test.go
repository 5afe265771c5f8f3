package event

import (
	"context"
	"errors"
	"testing"

	"github.com/harvestplace/backend/internal/domain/trade"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func header(msg kafka.Message, key string) string {
	c := headerCarrier(msg.Headers)
	return c.Get(key)
}

func TestKafkaRelay_KeysByOrderAndSetsHeaders(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "relay")
	defer span.End()

	w := &fakeWriter{}
	s := NewEventSerializer()
	relay := NewKafkaRelayWithWriter(w, s, zap.NewNop())

	order := newTestOrder(t)
	placed := trade.NewOrderPlacedEvent(order)
	require.NoError(t, relay.Publish(ctx, placed))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, order.ID.String(), string(msg.Key))
	assert.Equal(t, trade.EventTypeOrderPlaced, header(msg, "event_type"))
	assert.Equal(t, placed.EventID().String(), header(msg, "event_id"))
	assert.Equal(t, trade.AggregateTypeOrder, header(msg, "aggregate_type"))
	assert.Contains(t, header(msg, "traceparent"), span.SpanContext().TraceID().String())

	decoded, err := s.Deserialize(header(msg, "event_type"), msg.Value)
	require.NoError(t, err)
	assert.Equal(t, placed.EventID(), decoded.EventID())

	require.NoError(t, relay.Close())
	assert.True(t, w.closed)
}

func TestKafkaRelay_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	relay := NewKafkaRelayWithWriter(w, NewEventSerializer(), zap.NewNop())

	err := relay.Publish(context.Background(), trade.NewOrderPlacedEvent(newTestOrder(t)))
	assert.ErrorContains(t, err, "leader not available")
}

func TestKafkaRelay_NoEvents(t *testing.T) {
	w := &fakeWriter{}
	relay := NewKafkaRelayWithWriter(w, NewEventSerializer(), zap.NewNop())
	require.NoError(t, relay.Publish(context.Background()))
	assert.Empty(t, w.msgs)
}

func TestHeaderCarrier_SetReplaces(t *testing.T) {
	c := headerCarrier{}
	c.Set("k", "1")
	c.Set("k", "2")
	assert.Equal(t, "2", c.Get("k"))
	assert.Equal(t, []string{"k"}, c.Keys())
}
