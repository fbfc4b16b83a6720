package accountevents

import (
	"context"
	e "usermanager/internal/core/domain/errors"
	"usermanager/internal/core/domain/logging"
	"usermanager/internal/core/domain/user"
	"usermanager/internal/rabbitmq/schema"

	"github.com/rabbitmq/amqp091-go"
)

type publisher interface {
	PublishWithContext(ctx context.Context, exchange string, routingKey string, msg amqp091.Publishing) error
}

// RabbitMQ publishes account events to a topic exchange with the event type as the routing key.
type RabbitMQ struct {
	log      logging.Logger
	channel  publisher
	exchange string
}

func NewRabbitMQ(log logging.Logger, channel publisher, exchange string) *RabbitMQ {
	if log == nil {
		panic(e.NewNilArgumentError("log"))
	}
	if channel == nil {
		panic(e.NewNilArgumentError("channel"))
	}
	return &RabbitMQ{log: log, channel: channel, exchange: exchange}
}

func (p *RabbitMQ) OnAccountEvent(ctx context.Context, event user.Event) error {
	message := schema.AccountEvent{
		Type:     string(event.Type),
		UserID:   string(event.UserID),
		Username: string(event.Username),
		Role:     string(event.Role),
		At:       event.At,
	}
	body, err := message.Marshal()
	if err != nil {
		return err
	}

	routingKey := "account." + string(event.Type)
	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    event.At,
		Type:         string(event.Type),
		Body:         body,
	})
	if err != nil {
		p.log.Error(
			ctx,
			"Could not publish account event.",
			logging.Entry("exchange", p.exchange),
			logging.Entry("RK", routingKey),
			logging.Entry("err", err),
		)
		return err
	}
	p.log.Info(
		ctx,
		"AMQP message has been successfully published.",
		logging.Entry("exchange", p.exchange),
		logging.Entry("RK", routingKey),
		logging.Entry("userId", event.UserID),
	)
	return nil
}
