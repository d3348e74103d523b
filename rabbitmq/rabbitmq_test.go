package rabbitmq

import (
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-service/config"
	"storefront-service/models"
)

func TestPriority(t *testing.T) {
	assert.Equal(t, uint8(PriorityDefault), Priority(0))
	assert.Equal(t, uint8(PriorityDefault), Priority(100000))
	assert.Equal(t, uint8(PriorityHigh), Priority(100001))
}

func TestNewPublishing(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ev := models.OrderEvent{
		OrderID:  "ORD-ABC-0001",
		UserID:   3,
		Type:     models.EventOrderCreated,
		Status:   string(models.OrderStatusConfirmed),
		Total:    150000,
		Occurred: at,
	}

	msg, err := newPublishing(ev)
	require.NoError(t, err)
	assert.Equal(t, uint8(PriorityHigh), msg.Priority)
	assert.Equal(t, uint8(amqp.Persistent), msg.DeliveryMode)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, "ORD-ABC-0001:created", msg.MessageId)
	assert.Equal(t, at, msg.Timestamp)

	var decoded models.OrderEvent
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, ev, decoded)
}

func TestDeadLetterExchangeName(t *testing.T) {
	r := &RabbitMQ{Cfg: &config.Config{DeadLetterQueue: "dlq"}}
	assert.Equal(t, "dlq_exchange", r.deadLetterExchange())
}
