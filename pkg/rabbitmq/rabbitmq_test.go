package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAcknowledger struct {
	mock.Mock
}

func (m *mockAcknowledger) Ack(multiple bool) error {
	return m.Called(multiple).Error(0)
}

func (m *mockAcknowledger) Nack(multiple, requeue bool) error {
	return m.Called(multiple, requeue).Error(0)
}

func encode(t *testing.T, event CatalogEvent) []byte {
	t.Helper()
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return body
}

func TestDecodeCatalogEvent(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event, err := DecodeCatalogEvent(encode(t, CatalogEvent{Type: EventProductSaved, ProductID: "p1", OccurredAt: at}))
	require.NoError(t, err)
	assert.Equal(t, EventProductSaved, event.Type)
	assert.Equal(t, "p1", event.ProductID)
	assert.True(t, event.OccurredAt.Equal(at))

	_, err = DecodeCatalogEvent([]byte(`{"product_id":"p1"}`))
	assert.Error(t, err)

	_, err = DecodeCatalogEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestProcess_AcksHandledEvent(t *testing.T) {
	ack := new(mockAcknowledger)
	ack.On("Ack", false).Return(nil).Once()

	var got CatalogEvent
	handler := func(_ context.Context, e CatalogEvent) error {
		got = e
		return nil
	}
	process(delivery{acknowledger: ack, body: encode(t, CatalogEvent{Type: EventCatalogReindexed})}, handler, slog.Default())

	assert.Equal(t, EventCatalogReindexed, got.Type)
	ack.AssertExpectations(t)
}

func TestProcess_RequeuesOnHandlerError(t *testing.T) {
	ack := new(mockAcknowledger)
	ack.On("Nack", false, true).Return(nil).Once()

	handler := func(context.Context, CatalogEvent) error { return errors.New("cache down") }
	process(delivery{acknowledger: ack, body: encode(t, CatalogEvent{Type: EventProductSaved})}, handler, slog.Default())

	ack.AssertExpectations(t)
}

func TestProcess_DropsMalformedMessage(t *testing.T) {
	ack := new(mockAcknowledger)
	ack.On("Nack", false, false).Return(nil).Once()

	called := false
	handler := func(context.Context, CatalogEvent) error {
		called = true
		return nil
	}
	process(delivery{acknowledger: ack, body: []byte("{")}, handler, slog.Default())

	assert.False(t, called)
	ack.AssertExpectations(t)
}

type mockTopology struct {
	mock.Mock
}

func (m *mockTopology) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	return m.Called(name, kind, durable, autoDelete, internal, noWait, args).Error(0)
}

func (m *mockTopology) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	ret := m.Called(name, durable, autoDelete, exclusive, noWait, args)
	return ret.Get(0).(amqp.Queue), ret.Error(1)
}

func (m *mockTopology) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	return m.Called(name, key, exchange, noWait, args).Error(0)
}

func TestDeclareTopology_PrivateQueuePerInstance(t *testing.T) {
	ch := new(mockTopology)
	ch.On("ExchangeDeclare", "catalog_events", "fanout", true, false, false, false, amqp.Table(nil)).Return(nil).Once()
	ch.On("QueueDeclare", "", false, true, true, false, amqp.Table(nil)).Return(amqp.Queue{Name: "amq.gen-a1"}, nil).Once()
	ch.On("QueueBind", "amq.gen-a1", "", "catalog_events", false, amqp.Table(nil)).Return(nil).Once()

	queue, err := declareTopology(ch, "catalog_events")

	require.NoError(t, err)
	assert.Equal(t, "amq.gen-a1", queue)
	ch.AssertExpectations(t)
}

func TestDeclareTopology_ExchangeFailure(t *testing.T) {
	ch := new(mockTopology)
	ch.On("ExchangeDeclare", "catalog_events", "fanout", true, false, false, false, amqp.Table(nil)).
		Return(errors.New("access refused")).Once()

	_, err := declareTopology(ch, "catalog_events")

	assert.ErrorContains(t, err, "access refused")
	ch.AssertNotCalled(t, "QueueDeclare", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
