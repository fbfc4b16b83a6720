package addrole

import (
	"context"
	"time"
	e "usermanager/internal/core/domain/errors"
	"usermanager/internal/core/domain/logging"
	"usermanager/internal/core/domain/user"
	"usermanager/internal/core/services"
	accountmutation "usermanager/internal/core/services/account_mutation"
	promoteuser "usermanager/internal/core/services/promote_user"
)

type Input struct {
	Identifier string
	Role       string
}

type Result struct {
	User    user.User
	Role    user.Role
	Changed bool
}

type service struct {
	log    logging.Logger
	runner *accountmutation.Runner
}

func New(log logging.Logger, runner *accountmutation.Runner) services.Service[Input, Result] {
	if log == nil {
		panic(e.NewNilArgumentError("log"))
	}
	if runner == nil {
		panic(e.NewNilArgumentError("runner"))
	}
	return &service{log: log, runner: runner}
}

func (s *service) Run(ctx context.Context, input Input) (result Result, err error) {
	role, err := user.NewRole(input.Role)
	if err != nil {
		s.log.Info(ctx, "Invalid role.", logging.Entry("role", input.Role), logging.Entry("err", err))
		return result, err
	}

	mutate := func(u *user.User, now time.Time) (accountmutation.Change, error) {
		return addRole(u, role, now)
	}
	if role == user.RoleSuperAdmin {
		mutate = promoteuser.Promote
	}

	r, err := s.runner.MutateByIdentifier(ctx, input.Identifier, mutate)
	return Result{User: r.User, Role: role, Changed: r.Changed}, err
}

func addRole(u *user.User, role user.Role, now time.Time) (accountmutation.Change, error) {
	roles, changed := u.Roles.With(role)
	if !changed {
		return accountmutation.NoChange(), nil
	}
	u.Roles = roles
	return accountmutation.Changed(user.NewEvent(user.EventRoleAdded, *u, now).WithRole(role)), nil
}
