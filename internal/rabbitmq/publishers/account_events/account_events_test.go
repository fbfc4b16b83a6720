package accountevents

import (
	"context"
	"errors"
	"testing"
	"time"
	"usermanager/internal/core/domain/logging"
	"usermanager/internal/core/domain/user"
	"usermanager/internal/rabbitmq/schema"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange   string
	routingKey string
	msg        amqp091.Publishing
}

type stubChannel struct {
	published []published
	err       error
}

func (c *stubChannel) PublishWithContext(
	ctx context.Context,
	exchange string,
	routingKey string,
	msg amqp091.Publishing,
) error {
	if c.err != nil {
		return c.err
	}
	c.published = append(c.published, published{exchange: exchange, routingKey: routingKey, msg: msg})
	return nil
}

func TestAccountEventIsPublished(t *testing.T) {
	channel := &stubChannel{}
	publisher := NewRabbitMQ(logging.NewFakeLogger(), channel, "accounts")
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	event := user.NewEvent(user.EventRoleRemoved, user.User{ID: "user-1", Username: "alice"}, at).
		WithRole("ROLE_EDITOR")

	err := publisher.OnAccountEvent(context.Background(), event)

	require.Nil(t, err)
	require.Len(t, channel.published, 1)
	p := channel.published[0]
	require.Equal(t, "accounts", p.exchange)
	require.Equal(t, "account.role_removed", p.routingKey)
	require.Equal(t, "application/json", p.msg.ContentType)
	require.Equal(t, amqp091.Persistent, p.msg.DeliveryMode)

	message := schema.AccountEvent{}
	require.Nil(t, message.Unmarshal(p.msg.Body))
	require.Equal(t, "role_removed", message.Type)
	require.Equal(t, "user-1", message.UserID)
	require.Equal(t, "alice", message.Username)
	require.Equal(t, "ROLE_EDITOR", message.Role)
	require.True(t, at.Equal(message.At))
}

func TestPublishError(t *testing.T) {
	log := logging.NewFakeLogger()
	publisher := NewRabbitMQ(log, &stubChannel{err: errors.New("channel closed")}, "accounts")

	err := publisher.OnAccountEvent(
		context.Background(),
		user.NewEvent(user.EventSuperAdminGranted, user.User{ID: "user-1"}, time.Now()),
	)

	require.NotNil(t, err)
	require.Equal(t, 1, log.CountByLevel(logging.ERROR))
}
