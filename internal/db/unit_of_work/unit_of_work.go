package uow

import (
	"context"
	e "usermanager/internal/core/domain/errors"
	uow "usermanager/internal/core/domain/unit_of_work"
	"usermanager/internal/core/domain/user"
	dbuser "usermanager/internal/db/user"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

type pgxUnitOfWorkContext struct {
	tx          pgx.Tx
	idGenerator user.IDGenerator
}

func newPgxUnitOfWorkContext(tx pgx.Tx, idGenerator user.IDGenerator) *pgxUnitOfWorkContext {
	return &pgxUnitOfWorkContext{
		tx:          tx,
		idGenerator: idGenerator,
	}
}

func (c *pgxUnitOfWorkContext) Commit(ctx context.Context) error {
	if err := c.tx.Commit(ctx); err != nil {
		return user.WrapStorageError("commit", err)
	}
	return nil
}

// Rollback after a successful commit is a no-op.
func (c *pgxUnitOfWorkContext) Rollback(ctx context.Context) error {
	err := c.tx.Rollback(ctx)
	if err == pgx.ErrTxClosed {
		return nil
	}
	return err
}

func (c *pgxUnitOfWorkContext) Users() user.UserRepository {
	return dbuser.NewPgxRepository(c.tx, c.idGenerator)
}

type PgxUnitOfWork struct {
	db          *pgxpool.Pool
	idGenerator user.IDGenerator
}

func NewPgxUnitOfWork(db *pgxpool.Pool, idGenerator user.IDGenerator) *PgxUnitOfWork {
	if db == nil {
		panic(e.NewNilArgumentError("db"))
	}
	if idGenerator == nil {
		panic(e.NewNilArgumentError("idGenerator"))
	}
	return &PgxUnitOfWork{db: db, idGenerator: idGenerator}
}

func (u *PgxUnitOfWork) Begin(ctx context.Context) (uow.Context, error) {
	tx, err := u.db.Begin(ctx)
	if err != nil {
		return nil, user.WrapStorageError("begin", err)
	}
	return newPgxUnitOfWorkContext(tx, u.idGenerator), nil
}
