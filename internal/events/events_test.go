package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), Event{Type: ReservationCreated}))
	assert.NoError(t, p.Close())
}

func TestMessage(t *testing.T) {
	at := time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)
	e := Event{
		Type:           ReservationStatusChanged,
		ReservationID:  7,
		CarID:          3,
		Status:         "active",
		PreviousStatus: "pending",
		OccurredAt:     at,
	}

	msg, err := message(e)
	require.NoError(t, err)

	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "reservation.status_changed", msg.Type)
	assert.Equal(t, at, msg.Timestamp)

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Body, &body))
	assert.Equal(t, float64(7), body["reservationId"])
	assert.Equal(t, "pending", body["previousStatus"])
	assert.NotContains(t, body, "customerId")
}

func TestMessageSetsTimestamp(t *testing.T) {
	msg, err := message(Event{Type: CarStatusChanged, CarID: 1, Status: "out_of_service"})
	require.NoError(t, err)
	assert.False(t, msg.Timestamp.IsZero())
}
