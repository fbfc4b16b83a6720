package removerole

import (
	"context"
	"time"
	e "usermanager/internal/core/domain/errors"
	"usermanager/internal/core/domain/logging"
	"usermanager/internal/core/domain/user"
	"usermanager/internal/core/services"
	accountmutation "usermanager/internal/core/services/account_mutation"
	demoteuser "usermanager/internal/core/services/demote_user"
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

	// Only an explicit ROLE_SUPER_ADMIN removal touches the super administrator flag.
	mutate := func(u *user.User, now time.Time) (accountmutation.Change, error) {
		return removeRole(u, role, now)
	}
	if role == user.RoleSuperAdmin {
		mutate = demoteuser.Demote
	}

	r, err := s.runner.MutateByIdentifier(ctx, input.Identifier, mutate)
	return Result{User: r.User, Role: role, Changed: r.Changed}, err
}

func removeRole(u *user.User, role user.Role, now time.Time) (accountmutation.Change, error) {
	roles, changed := u.Roles.Without(role)
	if !changed {
		return accountmutation.NoChange(), nil
	}
	u.Roles = roles
	return accountmutation.Changed(user.NewEvent(user.EventRoleRemoved, *u, now).WithRole(role)), nil
}
