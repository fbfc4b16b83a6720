package removerole

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
	Repository *user.FakeUserRepository
	Listener   *user.FakeEventListener
	Service    services.Service[Input, Result]
}

func (suite *testSuite) SetupTest() {
	suite.UnitOfWork = uow.NewFakeUnitOfWork()
	suite.Repository = suite.UnitOfWork.Context.UserRepository
	suite.Listener = user.NewFakeEventListener()
	log := logging.NewFakeLogger()
	suite.Service = New(log, accountmutation.New(
		log,
		user.NewFakeIdentityResolver(suite.Repository),
		suite.UnitOfWork,
		func() time.Time { return NOW },
		suite.Listener,
	))

	_, err := suite.Repository.Create(context.Background(), user.CreateUserInput{
		Username:     "user",
		Email:        c.Email("user@example.com"),
		PasswordHash: "hash",
		Enabled:      true,
		Roles:        user.Roles{user.RoleDefault, user.Role("ROLE_ROLE")},
		IsSuperAdmin: true,
		CreatedAt:    NOW,
	})
	suite.Require().Nil(err)
}

func TestRemoveRoleService(t *testing.T) {
	suite.Run(t, new(testSuite))
}

func (suite *testSuite) TestRemoveRoleTwice() {
	ctx := context.Background()

	first, err1 := suite.Service.Run(ctx, Input{Identifier: "user", Role: "role"})
	second, err2 := suite.Service.Run(ctx, Input{Identifier: "user", Role: "role"})

	assert := suite.Require()
	assert.Nil(err1)
	assert.Nil(err2)
	assert.True(first.Changed)
	assert.False(second.Changed)
	assert.Equal(user.Roles{user.RoleDefault}, second.User.Roles)
	assert.True(second.User.IsSuperAdmin)
	assert.Equal([]user.EventType{user.EventRoleRemoved}, suite.Listener.Types())
}

func (suite *testSuite) TestRemoveSuperAdminRoleClearsFlag() {
	result, err := suite.Service.Run(context.Background(), Input{Identifier: "user", Role: "ROLE_SUPER_ADMIN"})

	assert := suite.Require()
	assert.Nil(err)
	assert.True(result.Changed)
	assert.False(result.User.IsSuperAdmin)
	assert.Equal(user.Roles{user.RoleDefault, user.Role("ROLE_ROLE")}, result.User.Roles)
	assert.Equal([]user.EventType{user.EventSuperAdminRevoked}, suite.Listener.Types())
}

func (suite *testSuite) TestRemoveAbsentRoleIsNoOp() {
	result, err := suite.Service.Run(context.Background(), Input{Identifier: "user@example.com", Role: "auditor"})

	assert := suite.Require()
	assert.Nil(err)
	assert.False(result.Changed)
	assert.Equal(0, suite.Repository.SaveCount)
}

func (suite *testSuite) TestInvalidRole() {
	_, err := suite.Service.Run(context.Background(), Input{Identifier: "user", Role: "no/slashes"})

	suite.Require().True(errors.Is(err, user.ErrInvalidRole))
}
