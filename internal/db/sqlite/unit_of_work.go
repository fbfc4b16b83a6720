package sqlite

import (
	"context"
	"database/sql"
	"sync"
	e "usermanager/internal/core/domain/errors"
	uow "usermanager/internal/core/domain/unit_of_work"
	"usermanager/internal/core/domain/user"
)

type unitOfWorkContext struct {
	tx          *sql.Tx
	idGenerator user.IDGenerator
	release     func()
	once        sync.Once
}

func (c *unitOfWorkContext) Commit(ctx context.Context) error {
	defer c.done()
	if err := c.tx.Commit(); err != nil {
		return user.WrapStorageError("commit", err)
	}
	return nil
}

// Rollback after a successful commit is a no-op.
func (c *unitOfWorkContext) Rollback(ctx context.Context) error {
	defer c.done()
	err := c.tx.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}
	return err
}

func (c *unitOfWorkContext) Users() user.UserRepository {
	return NewUserRepository(c.tx, c.idGenerator)
}

func (c *unitOfWorkContext) done() {
	c.once.Do(c.release)
}

type UnitOfWork struct {
	db          *sql.DB
	idGenerator user.IDGenerator
	writeLock   *sync.Mutex // SQLite does not support concurrent writers
}

func NewUnitOfWork(db *sql.DB, idGenerator user.IDGenerator) *UnitOfWork {
	if db == nil {
		panic(e.NewNilArgumentError("db"))
	}
	if idGenerator == nil {
		panic(e.NewNilArgumentError("idGenerator"))
	}
	return &UnitOfWork{db: db, idGenerator: idGenerator, writeLock: new(sync.Mutex)}
}

func (u *UnitOfWork) Begin(ctx context.Context) (uow.Context, error) {
	u.writeLock.Lock()
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		u.writeLock.Unlock()
		return nil, user.WrapStorageError("begin", err)
	}
	return &unitOfWorkContext{
		tx:          tx,
		idGenerator: u.idGenerator,
		release:     u.writeLock.Unlock,
	}, nil
}
