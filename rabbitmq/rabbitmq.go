package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"storefront-service/config"
	"storefront-service/models"
)

const (
	PriorityDefault = 5
	PriorityHigh    = 9
	// highValueTotal is the order total above which events jump the queue.
	highValueTotal = 100000

	publishTimeout = 5 * time.Second
)

type RabbitMQ struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
	Cfg     *config.Config

	mu sync.Mutex
}

func NewRabbitMQ(cfg *config.Config) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	return &RabbitMQ{
		Conn:    conn,
		Channel: ch,
		Cfg:     cfg,
	}, nil
}

func (r *RabbitMQ) deadLetterExchange() string {
	return r.Cfg.DeadLetterQueue + "_exchange"
}

// SetupQueues declares the orders exchange, the priority queue bound to it,
// and the dead-letter exchange and queue that receive rejected events.
func (r *RabbitMQ) SetupQueues() error {
	// 死信交换机和队列
	if err := r.Channel.ExchangeDeclare(
		r.deadLetterExchange(),
		"direct",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare dead-letter exchange: %w", err)
	}

	if _, err := r.Channel.QueueDeclare(
		r.Cfg.DeadLetterQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		amqp.Table{"x-queue-type": "classic"},
	); err != nil {
		return fmt.Errorf("declare dead-letter queue: %w", err)
	}

	if err := r.Channel.QueueBind(
		r.Cfg.DeadLetterQueue,
		r.Cfg.DeadLetterQueue,
		r.deadLetterExchange(),
		false,
		nil,
	); err != nil {
		return fmt.Errorf("bind dead-letter queue: %w", err)
	}

	if err := r.Channel.ExchangeDeclare(
		r.Cfg.OrderExchange,
		"direct",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare order exchange: %w", err)
	}

	// 主订单队列（优先级 + 死信）
	if _, err := r.Channel.QueueDeclare(
		r.Cfg.OrderQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-max-priority":            r.Cfg.MaxPriority,
			"x-dead-letter-exchange":    r.deadLetterExchange(),
			"x-dead-letter-routing-key": r.Cfg.DeadLetterQueue,
		},
	); err != nil {
		return fmt.Errorf("declare order queue: %w", err)
	}

	if err := r.Channel.QueueBind(
		r.Cfg.OrderQueue,
		"",
		r.Cfg.OrderExchange,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("bind order queue: %w", err)
	}
	return nil
}

// Priority maps an order total to a queue priority.
func Priority(total int64) uint8 {
	if total > highValueTotal {
		return PriorityHigh
	}
	return PriorityDefault
}

func newPublishing(ev models.OrderEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode order event: %w", err)
	}
	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.Occurred,
		ContentType:  "application/json",
		Type:         ev.Type,
		MessageId:    ev.OrderID + ":" + ev.Type,
		Body:         body,
		Priority:     Priority(ev.Total),
	}, nil
}

func (r *RabbitMQ) PublishOrderEvent(ctx context.Context, ev models.OrderEvent) error {
	msg, err := newPublishing(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.Channel.PublishWithContext(ctx,
		r.Cfg.OrderExchange,
		"",
		false, // mandatory
		false, // immediate
		msg,
	); err != nil {
		return fmt.Errorf("publish %s event for %s: %w", ev.Type, ev.OrderID, err)
	}
	return nil
}

func (r *RabbitMQ) Close() error {
	var err error
	if r.Channel != nil {
		err = r.Channel.Close()
	}
	if r.Conn != nil {
		if cerr := r.Conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
