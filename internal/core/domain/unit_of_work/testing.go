package uow

import (
	"context"
	"errors"
	"usermanager/internal/core/domain/user"
)

type FakeUnitOfWorkContext struct {
	UserRepository    *user.FakeUserRepository
	WasRollbackCalled bool
	WasCommitCalled   bool
	CommitReturnError bool
}

func NewFakeUnitOfWorkContext(userRepository *user.FakeUserRepository) *FakeUnitOfWorkContext {
	return &FakeUnitOfWorkContext{UserRepository: userRepository}
}

func (c *FakeUnitOfWorkContext) Rollback(ctx context.Context) error {
	c.WasRollbackCalled = true
	return nil
}

func (c *FakeUnitOfWorkContext) Commit(ctx context.Context) error {
	if c.CommitReturnError {
		return user.NewStorageError("commit", errors.New("fake commit failure"))
	}
	c.WasCommitCalled = true
	return nil
}

func (c *FakeUnitOfWorkContext) Users() user.UserRepository {
	return c.UserRepository
}

type FakeUnitOfWork struct {
	Context     *FakeUnitOfWorkContext
	BeginCount  int
	ReturnError bool
}

func NewFakeUnitOfWork() *FakeUnitOfWork {
	return NewFakeUnitOfWorkWith(user.NewFakeUserRepository())
}

func NewFakeUnitOfWorkWith(userRepository *user.FakeUserRepository) *FakeUnitOfWork {
	return &FakeUnitOfWork{Context: NewFakeUnitOfWorkContext(userRepository)}
}

func (u *FakeUnitOfWork) Begin(ctx context.Context) (Context, error) {
	if u.ReturnError {
		return nil, user.NewStorageError("begin", errors.New("fake begin failure"))
	}
	u.BeginCount++
	return u.Context, nil
}
