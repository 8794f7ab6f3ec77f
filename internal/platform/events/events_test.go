package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
	closed   bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestNew(t *testing.T) {
	evt := New("appointment.scheduled", map[string]string{"id": "a1"})
	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, "appointment.scheduled", evt.Type)
	assert.False(t, evt.OccurredAt.IsZero())
}

func TestAMQPPublisher_RoutesByType(t *testing.T) {
	ch := &fakeChannel{}
	p := &AMQPPublisher{ch: ch, exchange: "medbook.events", logger: zerolog.Nop()}

	evt := New("appointment.cancelled", map[string]string{"appointmentId": "a1"})
	require.NoError(t, p.Publish(context.Background(), evt))

	assert.Equal(t, "medbook.events", ch.exchange)
	assert.Equal(t, "appointment.cancelled", ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)
	assert.Equal(t, evt.ID, ch.msg.MessageId)

	var decoded Event
	require.NoError(t, json.Unmarshal(ch.msg.Body, &decoded))
	assert.Equal(t, evt.ID, decoded.ID)
}

func TestAMQPPublisher_WrapsError(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := &AMQPPublisher{ch: ch, exchange: "x", logger: zerolog.Nop()}

	err := p.Publish(context.Background(), New("appointment.confirmed", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "appointment.confirmed")
}

func TestAMQPPublisher_Close(t *testing.T) {
	ch := &fakeChannel{}
	p := &AMQPPublisher{ch: ch, logger: zerolog.Nop()}
	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(zerolog.New(&buf))

	require.NoError(t, p.Publish(context.Background(), New("appointment.reminder", map[string]string{"slot": "10:00"})))
	assert.Contains(t, buf.String(), `"event_type":"appointment.reminder"`)
	assert.NoError(t, p.Close())
}
