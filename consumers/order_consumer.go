package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"storefront-service/config"
	"storefront-service/models"
)

var errMalformedEvent = errors.New("malformed order event")

type OrderConsumer struct {
	ch     *amqp.Channel
	cfg    *config.Config
	logger *slog.Logger
}

func NewOrderConsumer(ch *amqp.Channel, cfg *config.Config, logger *slog.Logger) *OrderConsumer {
	return &OrderConsumer{ch: ch, cfg: cfg, logger: logger}
}

// Start consumes the order queue and the dead-letter queue until ctx is
// cancelled or the channel closes.
func (c *OrderConsumer) Start(ctx context.Context) error {
	msgs, err := c.ch.ConsumeWithContext(ctx,
		c.cfg.OrderQueue,
		"storefront", // consumer tag
		false,        // auto-ack
		false,        // exclusive
		false,        // no-local
		false,        // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.cfg.OrderQueue, err)
	}

	dlqMsgs, err := c.ch.ConsumeWithContext(ctx,
		c.cfg.DeadLetterQueue,
		"storefront-dlq",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.cfg.DeadLetterQueue, err)
	}

	go c.loop(ctx, msgs, c.processOrderMessage)
	go c.loop(ctx, dlqMsgs, c.processDeadLetterMessage)
	return nil
}

func (c *OrderConsumer) loop(ctx context.Context, msgs <-chan amqp.Delivery, handle func(amqp.Delivery)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			handle(msg)
		}
	}
}

func decodeEvent(body []byte) (models.OrderEvent, error) {
	var ev models.OrderEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, errors.Join(errMalformedEvent, err)
	}
	if ev.OrderID == "" {
		return ev, fmt.Errorf("%w: missing order id", errMalformedEvent)
	}
	switch ev.Type {
	case models.EventOrderCreated, models.EventPaymentConfirmed:
	default:
		return ev, fmt.Errorf("%w: unknown type %q", errMalformedEvent, ev.Type)
	}
	return ev, nil
}

func (c *OrderConsumer) processOrderMessage(msg amqp.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic in order event handler", "panic", r)
			_ = msg.Nack(false, false)
		}
	}()

	ev, err := decodeEvent(msg.Body)
	if err != nil {
		c.logger.Warn("rejecting order event", "error", err, "body", string(msg.Body))
		// 拒绝消息，不重新入队，转入死信队列
		if err := msg.Nack(false, false); err != nil {
			c.logger.Error("nack failed", "error", err)
		}
		return
	}

	switch ev.Type {
	case models.EventOrderCreated:
		c.logger.Info("order confirmed", "order_id", ev.OrderID, "user_id", ev.UserID, "total", ev.Total)
	case models.EventPaymentConfirmed:
		c.logger.Info("order paid", "order_id", ev.OrderID, "user_id", ev.UserID, "total", ev.Total)
	}

	if err := msg.Ack(false); err != nil {
		c.logger.Error("ack failed", "order_id", ev.OrderID, "error", err)
	}
}

func (c *OrderConsumer) processDeadLetterMessage(msg amqp.Delivery) {
	c.logger.Warn("dead-lettered order event", "body", string(msg.Body), "message_id", msg.MessageId)
	if err := msg.Ack(false); err != nil {
		c.logger.Error("ack failed", "error", err)
	}
}
