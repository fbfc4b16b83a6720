package promoteuser

import (
	"context"
	"errors"
	"testing"
	"time"
	c "usermanager/internal/core/domain/common"
	"usermanager/internal/core/domain/logging"
	uow "usermanager/internal/core/domain/unit_of_work"
	"usermanager/internal/core/domain/user"
	"usermanager/internal/core/services"
	accountmutation "usermanager/internal/core/services/account_mutation"

	"github.com/stretchr/testify/suite"
)

var NOW = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type testSuite struct {
	suite.Suite
	UnitOfWork *uow.FakeUnitOfWork
	Listener   *user.FakeEventListener
	Service    services.Service[Input, Result]
}

func (suite *testSuite) SetupTest() {
	suite.UnitOfWork = uow.NewFakeUnitOfWork()
	suite.Listener = user.NewFakeEventListener()
	repository := suite.UnitOfWork.Context.UserRepository
	suite.Service = New(accountmutation.New(
		logging.NewFakeLogger(),
		user.NewFakeIdentityResolver(repository),
		suite.UnitOfWork,
		func() time.Time { return NOW },
		suite.Listener,
	))

	_, err := repository.Create(context.Background(), user.CreateUserInput{
		Username:     "alice",
		Email:        c.Email("alice@example.com"),
		PasswordHash: "hash",
		Enabled:      true,
		Roles:        user.Roles{user.RoleDefault},
		CreatedAt:    NOW,
	})
	suite.Require().Nil(err)
}

func TestPromoteUserService(t *testing.T) {
	suite.Run(t, new(testSuite))
}

func (suite *testSuite) TestPromote() {
	result, err := suite.Service.Run(context.Background(), Input{Identifier: "alice"})

	assert := suite.Require()
	assert.Nil(err)
	assert.True(result.Changed)
	assert.True(result.User.IsSuperAdmin)
	assert.True(result.User.HasRole(user.Role("ROLE_ANYTHING")))
	assert.Equal(user.Roles{user.RoleDefault}, result.User.Roles)
	assert.Equal([]user.EventType{user.EventSuperAdminGranted}, suite.Listener.Types())
}

func (suite *testSuite) TestPromoteIsIdempotent() {
	// Setup ---
	ctx := context.Background()
	_, err := suite.Service.Run(ctx, Input{Identifier: "alice"})
	suite.Require().Nil(err)

	// Exercise ---
	result, err := suite.Service.Run(ctx, Input{Identifier: "alice@example.com"})

	// Verify ---
	assert := suite.Require()
	assert.Nil(err)
	assert.False(result.Changed)
	assert.True(result.User.IsSuperAdmin)
	assert.Equal(1, suite.UnitOfWork.Context.UserRepository.SaveCount)
	assert.Len(suite.Listener.Events, 1)
}

func (suite *testSuite) TestUserDoesNotExist() {
	_, err := suite.Service.Run(context.Background(), Input{Identifier: "bob"})

	assert := suite.Require()
	assert.True(errors.Is(err, user.ErrUserDoesNotExist))
	assert.Empty(suite.Listener.Events)
}
