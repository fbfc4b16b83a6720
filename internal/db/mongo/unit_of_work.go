package mongo

import (
	"context"
	"errors"
	"sync"
	e "usermanager/internal/core/domain/errors"
	uow "usermanager/internal/core/domain/unit_of_work"
	"usermanager/internal/core/domain/user"

	"go.mongodb.org/mongo-driver/mongo"
)

var errTransactionEnded = errors.New("transaction already ended")

type unitOfWorkContext struct {
	session mongo.Session
	users   *UserRepository
	lock    sync.Mutex
	ended   bool
}

func (c *unitOfWorkContext) Commit(ctx context.Context) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.ended {
		return user.NewStorageError("commit", errTransactionEnded)
	}
	c.ended = true
	defer c.session.EndSession(ctx)
	if err := c.session.CommitTransaction(ctx); err != nil {
		return user.WrapStorageError("commit", err)
	}
	return nil
}

// Rollback after Commit is a no-op.
func (c *unitOfWorkContext) Rollback(ctx context.Context) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.ended {
		return nil
	}
	c.ended = true
	defer c.session.EndSession(ctx)
	if err := c.session.AbortTransaction(ctx); err != nil {
		return user.WrapStorageError("rollback", err)
	}
	return nil
}

func (c *unitOfWorkContext) Users() user.UserRepository {
	return c.users
}

type UnitOfWork struct {
	client *mongo.Client
	users  *UserRepository
}

func NewUnitOfWork(client *mongo.Client, users *UserRepository) *UnitOfWork {
	if client == nil {
		panic(e.NewNilArgumentError("client"))
	}
	if users == nil {
		panic(e.NewNilArgumentError("users"))
	}
	return &UnitOfWork{client: client, users: users}
}

func (u *UnitOfWork) Begin(ctx context.Context) (uow.Context, error) {
	session, err := u.client.StartSession()
	if err != nil {
		return nil, user.WrapStorageError("begin", err)
	}
	if err := session.StartTransaction(); err != nil {
		session.EndSession(ctx)
		return nil, user.WrapStorageError("begin", err)
	}
	return &unitOfWorkContext{
		session: session,
		users:   u.users.withSession(session),
	}, nil
}
