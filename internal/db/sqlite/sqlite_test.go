package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"
	c "usermanager/internal/core/domain/common"
	"usermanager/internal/core/domain/logging"
	"usermanager/internal/core/domain/user"
	accountmutation "usermanager/internal/core/services/account_mutation"
	addrole "usermanager/internal/core/services/add_role"

	"github.com/stretchr/testify/suite"
)

var NOW = time.Date(2024, 3, 1, 12, 0, 0, 123, time.UTC)

type testSuite struct {
	suite.Suite
	db   *sql.DB
	repo *UserRepository
	uow  *UnitOfWork
}

func (suite *testSuite) SetupTest() {
	db, err := Open(context.Background(), filepath.Join(suite.T().TempDir(), "accounts.db"))
	suite.Require().Nil(err)
	suite.db = db
	idGenerator := user.NewFakeIDGenerator()
	suite.repo = NewUserRepository(db, idGenerator)
	suite.uow = NewUnitOfWork(db, idGenerator)
}

func (suite *testSuite) TearDownTest() {
	suite.db.Close()
}

func TestSQLiteStorage(t *testing.T) {
	suite.Run(t, new(testSuite))
}

func (suite *testSuite) createUser(username user.Username, email c.Email) user.User {
	u, err := suite.repo.Create(context.Background(), user.CreateUserInput{
		Username:     username,
		Email:        email,
		PasswordHash: "hash",
		Enabled:      true,
		Roles:        user.Roles{user.RoleDefault},
		CreatedAt:    NOW,
	})
	suite.Require().Nil(err)
	return u
}

func (suite *testSuite) TestCreateAndGet() {
	ctx := context.Background()
	created := suite.createUser("alice", "alice@example.com")

	assert := suite.Require()
	for _, lookup := range []func() (user.User, error){
		func() (user.User, error) { return suite.repo.GetByID(ctx, created.ID) },
		func() (user.User, error) { return suite.repo.GetByUsername(ctx, "alice") },
		func() (user.User, error) { return suite.repo.GetByEmail(ctx, "alice@example.com") },
	} {
		u, err := lookup()
		assert.Nil(err)
		assert.Equal(created, u)
	}
}

func (suite *testSuite) TestDuplicates() {
	ctx := context.Background()
	suite.createUser("alice", "alice@example.com")

	_, err := suite.repo.Create(ctx, user.CreateUserInput{
		Username: "alice", Email: "other@example.com", PasswordHash: "hash", CreatedAt: NOW,
	})
	suite.Require().True(errors.Is(err, user.ErrUsernameAlreadyExists))

	_, err = suite.repo.Create(ctx, user.CreateUserInput{
		Username: "other", Email: "alice@example.com", PasswordHash: "hash", CreatedAt: NOW,
	})
	suite.Require().True(errors.Is(err, user.ErrEmailAlreadyExists))
}

func (suite *testSuite) TestSavePasswordResetFields() {
	ctx := context.Background()
	u := suite.createUser("alice", "alice@example.com")
	u.RequestPasswordReset("T1", NOW.Add(time.Hour))
	u.IsSuperAdmin = true

	assert := suite.Require()
	assert.Nil(suite.repo.Save(ctx, u))

	stored, err := suite.repo.GetByConfirmationToken(ctx, "T1")
	assert.Nil(err)
	assert.Equal(u, stored)

	stored.ClearPasswordReset()
	assert.Nil(suite.repo.Save(ctx, stored))
	_, err = suite.repo.GetByConfirmationToken(ctx, "T1")
	assert.True(errors.Is(err, user.ErrUserDoesNotExist))
}

func (suite *testSuite) TestNotFound() {
	ctx := context.Background()

	_, err := suite.repo.GetByUsername(ctx, "nobody")
	suite.Require().True(errors.Is(err, user.ErrUserDoesNotExist))

	err = suite.repo.Save(ctx, user.User{ID: "missing", Username: "bob", Email: "bob@example.com"})
	suite.Require().True(errors.Is(err, user.ErrUserDoesNotExist))
}

func (suite *testSuite) TestRollbackDiscardsChanges() {
	ctx := context.Background()
	created := suite.createUser("alice", "alice@example.com")

	uow, err := suite.uow.Begin(ctx)
	suite.Require().Nil(err)
	u, err := uow.Users().GetByIDWithLock(ctx, created.ID)
	suite.Require().Nil(err)
	u.IsSuperAdmin = true
	suite.Require().Nil(uow.Users().Save(ctx, u))
	suite.Require().Nil(uow.Rollback(ctx))
	suite.Require().Nil(uow.Rollback(ctx))

	stored, err := suite.repo.GetByID(ctx, created.ID)
	suite.Require().Nil(err)
	suite.False(stored.IsSuperAdmin)
}

func (suite *testSuite) TestConcurrentMutationsAreSerialized() {
	created := suite.createUser("alice", "alice@example.com")
	log := logging.NewFakeLogger()
	runner := accountmutation.New(
		log,
		user.NewFakeIdentityResolver(suite.repo),
		suite.uow,
		time.Now,
	)
	service := addrole.New(log, runner)

	var wg sync.WaitGroup
	wg.Add(10)
	for i := 0; i < 10; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := service.Run(context.Background(), addrole.Input{
				Identifier: "alice",
				Role:       fmt.Sprintf("role_%d", i),
			})
			suite.Nil(err)
		}(i)
	}
	wg.Wait()

	stored, err := suite.repo.GetByID(context.Background(), created.ID)
	suite.Require().Nil(err)
	suite.Len(stored.Roles, 11)
}
