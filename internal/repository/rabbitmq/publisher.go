package rabbitmq

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
)

// OutcomePublisher emits one message per processed run on a durable topic
// exchange, so downstream consumers (reporting, alerting) can follow the
// sync without polling the audit log.
type OutcomePublisher struct {
	channel    *amqp.Channel
	exchange   string
	routingKey string
}

func NewOutcomePublisher(conn *amqp.Connection, exchange, routingKey string) (*OutcomePublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true, // durable
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, err
	}

	return &OutcomePublisher{
		channel:    ch,
		exchange:   exchange,
		routingKey: routingKey,
	}, nil
}

func (p *OutcomePublisher) Publish(ctx context.Context, body json.RawMessage) error {
	return p.channel.PublishWithContext(ctx,
		p.exchange,
		p.routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}
