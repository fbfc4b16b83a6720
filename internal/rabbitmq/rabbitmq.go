package rabbitmq

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
	e "usermanager/internal/core/domain/errors"
	"usermanager/internal/core/domain/logging"

	amqp "github.com/rabbitmq/amqp091-go"
)

const reconnectDelay = 3 * time.Second

// Connection redials the broker whenever the underlying connection is lost.
type Connection struct {
	log  logging.Logger
	url  string
	conn *amqp.Connection
	lock sync.RWMutex
}

func Dial(url string, log logging.Logger) (*Connection, error) {
	if log == nil {
		panic(e.NewNilArgumentError("log"))
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	connection := &Connection{log: log, url: url, conn: conn}
	go connection.watch(conn)
	return connection, nil
}

func (c *Connection) watch(conn *amqp.Connection) {
	for {
		reason, ok := <-conn.NotifyClose(make(chan *amqp.Error, 1))
		if !ok {
			c.log.Info(context.Background(), "RabbitMQ connection closed.")
			return
		}
		c.log.Warning(context.Background(), "RabbitMQ connection lost.", logging.Entry("reason", reason.Error()))
		for {
			time.Sleep(reconnectDelay)
			redialed, err := amqp.Dial(c.url)
			if err == nil {
				c.lock.Lock()
				c.conn = redialed
				c.lock.Unlock()
				conn = redialed
				c.log.Info(context.Background(), "RabbitMQ reconnect success.")
				break
			}
			c.log.Error(context.Background(), "RabbitMQ reconnect failed.", logging.Entry("err", err))
		}
	}
}

func (c *Connection) current() *amqp.Connection {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.conn
}

func (c *Connection) Close() error {
	return c.current().Close()
}

// Channel opens a channel that is reopened on the current connection after a failure.
func (c *Connection) Channel() (*Channel, error) {
	ch, err := c.current().Channel()
	if err != nil {
		return nil, err
	}
	channel := &Channel{connection: c, ch: ch}
	go channel.watch(ch)
	return channel, nil
}

type Channel struct {
	connection *Connection
	ch         *amqp.Channel
	closed     int32
	lock       sync.RWMutex
}

func (ch *Channel) watch(current *amqp.Channel) {
	log := ch.connection.log
	for {
		reason, ok := <-current.NotifyClose(make(chan *amqp.Error, 1))
		if !ok || ch.IsClosed() {
			return
		}
		log.Warning(context.Background(), "RabbitMQ channel closed.", logging.Entry("reason", reason.Error()))
		for {
			time.Sleep(reconnectDelay)
			reopened, err := ch.connection.current().Channel()
			if err == nil {
				ch.lock.Lock()
				ch.ch = reopened
				ch.lock.Unlock()
				current = reopened
				log.Info(context.Background(), "RabbitMQ channel reopened.")
				break
			}
			log.Error(context.Background(), "Could not reopen RabbitMQ channel.", logging.Entry("err", err))
		}
	}
}

func (ch *Channel) current() *amqp.Channel {
	ch.lock.RLock()
	defer ch.lock.RUnlock()
	return ch.ch
}

// IsClosed reports whether Close has been called.
func (ch *Channel) IsClosed() bool {
	return atomic.LoadInt32(&ch.closed) == 1
}

func (ch *Channel) Close() error {
	if !atomic.CompareAndSwapInt32(&ch.closed, 0, 1) {
		return amqp.ErrClosed
	}
	return ch.current().Close()
}

func (ch *Channel) ExchangeDeclare(name string, kind string) error {
	return ch.current().ExchangeDeclare(name, kind, true, false, false, false, nil)
}

func (ch *Channel) PublishWithContext(
	ctx context.Context,
	exchange string,
	routingKey string,
	msg amqp.Publishing,
) error {
	return ch.current().PublishWithContext(ctx, exchange, routingKey, false, false, msg)
}
