package accountmutation

import (
	"context"
	"errors"
	"testing"
	"time"
	c "usermanager/internal/core/domain/common"
	e "usermanager/internal/core/domain/errors"
	"usermanager/internal/core/domain/logging"
	uow "usermanager/internal/core/domain/unit_of_work"
	"usermanager/internal/core/domain/user"

	"github.com/stretchr/testify/suite"
)

var NOW = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

var errMutation = errors.New("mutation failed")

func grantSuperAdmin(u *user.User, now time.Time) (Change, error) {
	if u.IsSuperAdmin {
		return NoChange(), nil
	}
	u.IsSuperAdmin = true
	return Changed(user.NewEvent(user.EventSuperAdminGranted, *u, now)), nil
}

type testSuite struct {
	suite.Suite
	Logger     *logging.FakeLogger
	UnitOfWork *uow.FakeUnitOfWork
	Repository *user.FakeUserRepository
	Listener   *user.FakeEventListener
	Runner     *Runner
	User       user.User
}

func (suite *testSuite) SetupTest() {
	suite.Logger = logging.NewFakeLogger()
	suite.UnitOfWork = uow.NewFakeUnitOfWork()
	suite.Repository = suite.UnitOfWork.Context.UserRepository
	suite.Listener = user.NewFakeEventListener()
	suite.Runner = New(
		suite.Logger,
		user.NewFakeIdentityResolver(suite.Repository),
		suite.UnitOfWork,
		func() time.Time { return NOW },
		suite.Listener,
	)

	u, err := suite.Repository.Create(context.Background(), user.CreateUserInput{
		Username:     "alice",
		Email:        c.Email("alice@example.com"),
		PasswordHash: "hash",
		Enabled:      true,
		Roles:        user.Roles{user.RoleDefault},
		CreatedAt:    NOW.Add(-time.Hour),
	})
	suite.Require().Nil(err)
	suite.User = u
}

func TestAccountMutation(t *testing.T) {
	suite.Run(t, new(testSuite))
}

func (suite *testSuite) TestChangeIsPersistedAndAnnounced() {
	// Exercise ---
	result, err := suite.Runner.MutateByIdentifier(context.Background(), "alice", grantSuperAdmin)

	// Verify ---
	assert := suite.Require()
	assert.Nil(err)
	assert.True(result.Changed)
	assert.True(result.User.IsSuperAdmin)
	assert.Equal(NOW, result.User.UpdatedAt)
	assert.Equal(1, suite.Repository.LockCount)
	assert.Equal(1, suite.Repository.SaveCount)
	assert.True(suite.UnitOfWork.Context.WasCommitCalled)
	assert.Equal([]user.EventType{user.EventSuperAdminGranted}, suite.Listener.Types())
	assert.Equal(suite.User.ID, suite.Listener.Events[0].UserID)

	stored, err := suite.Repository.GetByID(context.Background(), suite.User.ID)
	assert.Nil(err)
	assert.True(stored.IsSuperAdmin)
}

func (suite *testSuite) TestResolveByEmail() {
	result, err := suite.Runner.MutateByIdentifier(context.Background(), "alice@example.com", grantSuperAdmin)

	assert := suite.Require()
	assert.Nil(err)
	assert.True(result.Changed)
	assert.Equal(suite.User.ID, result.User.ID)
}

func (suite *testSuite) TestNoChangeIsNotPersisted() {
	// Setup ---
	ctx := context.Background()
	_, err := suite.Runner.MutateByIdentifier(ctx, "alice", grantSuperAdmin)
	suite.Require().Nil(err)

	// Exercise ---
	result, err := suite.Runner.MutateByIdentifier(ctx, "alice", grantSuperAdmin)

	// Verify ---
	assert := suite.Require()
	assert.Nil(err)
	assert.False(result.Changed)
	assert.True(result.User.IsSuperAdmin)
	assert.Equal(1, suite.Repository.SaveCount)
	assert.Len(suite.Listener.Events, 1)
}

func (suite *testSuite) TestUserDoesNotExist() {
	_, err := suite.Runner.MutateByIdentifier(context.Background(), "bob", grantSuperAdmin)

	assert := suite.Require()
	assert.True(errors.Is(err, user.ErrUserDoesNotExist))
	assert.Equal(0, suite.UnitOfWork.BeginCount)
	assert.Empty(suite.Listener.Events)
}

func (suite *testSuite) TestMutationErrorAbortsUnitOfWork() {
	_, err := suite.Runner.MutateByID(
		context.Background(),
		suite.User.ID,
		func(u *user.User, now time.Time) (Change, error) {
			u.IsSuperAdmin = true
			return NoChange(), errMutation
		},
	)

	assert := suite.Require()
	assert.True(errors.Is(err, errMutation))
	assert.Equal(0, suite.Repository.SaveCount)
	assert.False(suite.UnitOfWork.Context.WasCommitCalled)
	assert.True(suite.UnitOfWork.Context.WasRollbackCalled)

	stored, _ := suite.Repository.GetByID(context.Background(), suite.User.ID)
	assert.False(stored.IsSuperAdmin)
}

func (suite *testSuite) TestChangeErrorIsReturnedAfterCommit() {
	result, err := suite.Runner.MutateByID(
		context.Background(),
		suite.User.ID,
		func(u *user.User, now time.Time) (Change, error) {
			u.IsSuperAdmin = true
			return Change{
				Events: []user.Event{user.NewEvent(user.EventSuperAdminGranted, *u, now)},
				Err:    errMutation,
			}, nil
		},
	)

	assert := suite.Require()
	assert.True(errors.Is(err, errMutation))
	assert.True(result.Changed)
	assert.True(suite.UnitOfWork.Context.WasCommitCalled)
	assert.Equal(1, suite.Repository.SaveCount)
}

func (suite *testSuite) TestInvalidStateIsNotPersisted() {
	_, err := suite.Runner.MutateByID(
		context.Background(),
		suite.User.ID,
		func(u *user.User, now time.Time) (Change, error) {
			u.Roles = user.Roles{user.RoleDefault, user.RoleDefault}
			return Changed(user.NewEvent(user.EventRoleAdded, *u, now)), nil
		},
	)

	assert := suite.Require()
	var stateErr *e.InvalidStateError
	assert.True(errors.As(err, &stateErr))
	assert.Equal(0, suite.Repository.SaveCount)
	assert.Empty(suite.Listener.Events)
}

func (suite *testSuite) TestListenerFailureDoesNotFailMutation() {
	suite.Listener.ReturnError = true

	result, err := suite.Runner.MutateByIdentifier(context.Background(), "alice", grantSuperAdmin)

	assert := suite.Require()
	assert.Nil(err)
	assert.True(result.Changed)
	assert.Equal(1, suite.Logger.CountByLevel(logging.WARNING))
}

func (suite *testSuite) TestBeginError() {
	suite.UnitOfWork.ReturnError = true

	_, err := suite.Runner.MutateByIdentifier(context.Background(), "alice", grantSuperAdmin)

	assert := suite.Require()
	assert.True(errors.Is(err, user.ErrStorage))
	assert.Equal(1, suite.Logger.CountByLevel(logging.ERROR))
}

func (suite *testSuite) TestCommitError() {
	suite.UnitOfWork.Context.CommitReturnError = true

	_, err := suite.Runner.MutateByIdentifier(context.Background(), "alice", grantSuperAdmin)

	assert := suite.Require()
	assert.True(errors.Is(err, user.ErrStorage))
	assert.True(suite.UnitOfWork.Context.WasRollbackCalled)
	assert.Empty(suite.Listener.Events)
}

func (suite *testSuite) TestStorageErrorOnResolve() {
	suite.Repository.ReturnError = true

	_, err := suite.Runner.MutateByIdentifier(context.Background(), "alice", grantSuperAdmin)

	assert := suite.Require()
	assert.True(errors.Is(err, user.ErrStorage))
	assert.Equal(0, suite.UnitOfWork.BeginCount)
}
