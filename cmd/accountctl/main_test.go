package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
	"usermanager/internal/app/deps"
	"usermanager/internal/app/services"
	"usermanager/internal/config"
	"usermanager/internal/core/domain/logging"
	uow "usermanager/internal/core/domain/unit_of_work"
	"usermanager/internal/core/domain/user"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		args     []string
		expected command
		isUsage  bool
	}{
		{args: []string{"promote", "user", "role"}, expected: command{name: "promote", args: []string{"user", "role"}}},
		{args: []string{"promote", "user", "--super"}, expected: command{name: "promote", args: []string{"user"}, super: true}},
		{args: []string{"promote", "--super", "user"}, expected: command{name: "promote", args: []string{"user"}, super: true}},
		{args: []string{"demote", "user", "role"}, expected: command{name: "demote", args: []string{"user", "role"}}},
		{args: []string{"reset-cancel", "user"}, expected: command{name: "reset-cancel", args: []string{"user"}}},
		{
			args:     []string{"create", "user", "user@example.com", "password", "--super"},
			expected: command{name: "create", args: []string{"user", "user@example.com", "password"}, super: true},
		},
		{args: []string{}, isUsage: true},
		{args: []string{"promote"}, isUsage: true},
		{args: []string{"promote", "user"}, isUsage: true},
		{args: []string{"promote", "user", "role", "--super"}, isUsage: true},
		{args: []string{"promote", "user", "role", "extra"}, isUsage: true},
		{args: []string{"promote", "user", "--unknown"}, isUsage: true},
		{args: []string{"reset-cancel"}, isUsage: true},
		{args: []string{"create", "user"}, isUsage: true},
		{args: []string{"delete", "user"}, isUsage: true},
	}

	for _, testcase := range cases {
		cmd, err := parseCommand(testcase.args)
		if testcase.isUsage {
			require.True(t, errors.Is(err, errUsage), "%v", testcase.args)
			continue
		}
		require.Nil(t, err, "%v", testcase.args)
		require.Equal(t, testcase.expected, cmd)
	}
}

func TestUsageErrorExitCode(t *testing.T) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

	code := run([]string{"promote", "user", "role", "--super"}, stdout, stderr)

	require.Equal(t, exitUsage, code)
	require.Empty(t, stdout.String())
	require.Contains(t, stderr.String(), "pass either a role or --super")
	require.Contains(t, stderr.String(), "usage:")
}

type testSuite struct {
	suite.Suite
	repository *user.FakeUserRepository
	services   *services.Services
}

func (suite *testSuite) SetupTest() {
	suite.repository = user.NewFakeUserRepository()
	d := &deps.Deps{
		Config:                      &config.Config{},
		Logger:                      logging.NewFakeLogger(),
		Now:                         func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) },
		UnitOfWork:                  uow.NewFakeUnitOfWorkWith(suite.repository),
		UserRepository:              suite.repository,
		IdentityResolver:            user.NewFakeIdentityResolver(suite.repository),
		PasswordHasher:              user.NewFakePasswordHasher(),
		PasswordResetTokenGenerator: user.NewFakePasswordResetTokenGenerator("T1"),
		ResetPolicy:                 user.ResetPolicy{TokenTTL: 24 * time.Hour, RetryTTL: 2 * time.Hour},
	}
	suite.services = services.InitServices(d)
}

func TestCommands(t *testing.T) {
	suite.Run(t, new(testSuite))
}

func (suite *testSuite) exec(args ...string) (int, string, string) {
	cmd, err := parseCommand(args)
	suite.Require().Nil(err)
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	code := execute(context.Background(), cmd, suite.services, stdout, stderr)
	return code, stdout.String(), stderr.String()
}

func (suite *testSuite) TestCommandSession() {
	steps := []struct {
		args           []string
		expectedCode   int
		expectedStdout string
		expectedStderr string
	}{
		{
			args:           []string{"create", "user", "user@example.com", "password"},
			expectedCode:   exitOK,
			expectedStdout: "Created user \"user\" with id user-1.\n",
		},
		{
			args:           []string{"promote", "user", "role"},
			expectedCode:   exitOK,
			expectedStdout: "Role \"role\" has been added to user \"user\".\n",
		},
		{
			args:           []string{"promote", "user@example.com", "ROLE_ROLE"},
			expectedCode:   exitOK,
			expectedStdout: "User \"user@example.com\" did already have \"ROLE_ROLE\" role.\n",
		},
		{
			args:           []string{"promote", "user", "--super"},
			expectedCode:   exitOK,
			expectedStdout: "User \"user\" has been promoted as a super administrator.\n",
		},
		{
			args:           []string{"promote", "user", "--super"},
			expectedCode:   exitOK,
			expectedStdout: "User \"user\" does already have the super administrator role.\n",
		},
		{
			args:           []string{"demote", "user", "--super"},
			expectedCode:   exitOK,
			expectedStdout: "User \"user\" has been demoted as a simple user.\n",
		},
		{
			args:           []string{"demote", "user", "role"},
			expectedCode:   exitOK,
			expectedStdout: "Role \"role\" has been removed from user \"user\".\n",
		},
		{
			args:           []string{"demote", "user", "role"},
			expectedCode:   exitOK,
			expectedStdout: "User \"user\" didn't have \"role\" role.\n",
		},
		{
			args:           []string{"reset-cancel", "user"},
			expectedCode:   exitOK,
			expectedStdout: "User \"user\" has no pending password reset.\n",
		},
		{
			args:           []string{"promote", "nobody", "role"},
			expectedCode:   exitNotFound,
			expectedStderr: "Error: user does not exist\n",
		},
		{
			args:         []string{"promote", "user", "rôle"},
			expectedCode: exitInvalidRole,
		},
		{
			args:         []string{"create", "user", "other@example.com", "password"},
			expectedCode: exitFailure,
		},
	}

	for _, step := range steps {
		code, stdout, stderr := suite.exec(step.args...)

		suite.Equal(step.expectedCode, code, "%v", step.args)
		suite.Equal(step.expectedStdout, stdout, "%v", step.args)
		if step.expectedStderr != "" {
			suite.Equal(step.expectedStderr, stderr, "%v", step.args)
		}
	}

	stored, err := suite.repository.GetByUsername(context.Background(), "user")
	suite.Require().Nil(err)
	suite.False(stored.IsSuperAdmin)
	suite.Equal(user.Roles{user.RoleDefault}, stored.Roles)
}
