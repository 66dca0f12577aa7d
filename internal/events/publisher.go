package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"
	"github.com/jedmamosto/tupv-project-sub000/internal/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeOrders          = "orders_topic"
	RoutingKeyStatusChanged = "order.status_changed"
	RoutingKeyOrderPlaced   = "order.placed"
	publishTimeout          = 10 * time.Second
	contentTypeJSON         = "application/json"
	deliveryModePersistent  = 2
)

// OrderEvent は注文の作成・状態変更を通知するメッセージ
type OrderEvent struct {
	OrderID    string            `json:"order_id"`
	ShopID     string            `json:"shop_id"`
	UserID     string            `json:"user_id"`
	OldStatus  model.OrderStatus `json:"old_status,omitempty"`
	NewStatus  model.OrderStatus `json:"new_status"`
	ChangedBy  string            `json:"changed_by,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

type Publisher interface {
	PublishOrderEvent(ctx context.Context, routingKey string, ev OrderEvent) error
}

// AMQPPublisher はRabbitMQのtopic exchangeに流す
type AMQPPublisher struct {
	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger *logger.Logger
}

func NewAMQPPublisher(url string, log *logger.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		ExchangeOrders, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare %s exchange: %w", ExchangeOrders, err)
	}

	return &AMQPPublisher{conn: conn, ch: ch, logger: log}, nil
}

func (p *AMQPPublisher) PublishOrderEvent(ctx context.Context, routingKey string, ev OrderEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType:  contentTypeJSON,
		Body:         body,
		DeliveryMode: deliveryModePersistent,
		Timestamp:    ev.OccurredAt,
		MessageId:    ev.OrderID,
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	// チャネルはgoroutineセーフではない
	p.mu.Lock()
	err = p.ch.PublishWithContext(ctx, ExchangeOrders, routingKey, false, false, publishing)
	p.mu.Unlock()
	if err != nil {
		p.logger.Error("message_publish_failed", "", "failed to publish order event", err,
			slog.String("routing_key", routingKey),
			slog.String("order_id", ev.OrderID),
		)
		return fmt.Errorf("failed to publish message: %w", err)
	}

	p.logger.Debug("message_published", "", "published order event",
		slog.String("routing_key", routingKey),
		slog.Int("message_size", len(body)),
	)
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil {
		_ = p.conn.Close()
		return err
	}
	return p.conn.Close()
}

// NoopPublisher はAMQP_URL未設定時に使う
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderEvent(context.Context, string, OrderEvent) error { return nil }

// Recorder はテストで発行内容を確認するためのPublisher
type Recorder struct {
	mu     sync.Mutex
	Events []Recorded
}

type Recorded struct {
	RoutingKey string
	Event      OrderEvent
}

func (r *Recorder) PublishOrderEvent(_ context.Context, routingKey string, ev OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, Recorded{RoutingKey: routingKey, Event: ev})
	return nil
}

func (r *Recorder) All() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(r.Events))
	copy(out, r.Events)
	return out
}

var (
	_ Publisher = (*AMQPPublisher)(nil)
	_ Publisher = NoopPublisher{}
	_ Publisher = (*Recorder)(nil)
)
