package promoteuser

import (
	"context"
	"time"
	e "usermanager/internal/core/domain/errors"
	"usermanager/internal/core/domain/user"
	"usermanager/internal/core/services"
	accountmutation "usermanager/internal/core/services/account_mutation"
)

type Input struct {
	Identifier string
}

type Result struct {
	User    user.User
	Changed bool
}

type service struct {
	runner *accountmutation.Runner
}

func New(runner *accountmutation.Runner) services.Service[Input, Result] {
	if runner == nil {
		panic(e.NewNilArgumentError("runner"))
	}
	return &service{runner: runner}
}

func (s *service) Run(ctx context.Context, input Input) (result Result, err error) {
	r, err := s.runner.MutateByIdentifier(ctx, input.Identifier, Promote)
	return Result(r), err
}

// Promote grants the super administrator flag.
func Promote(u *user.User, now time.Time) (accountmutation.Change, error) {
	if u.IsSuperAdmin {
		return accountmutation.NoChange(), nil
	}
	u.IsSuperAdmin = true
	return accountmutation.Changed(user.NewEvent(user.EventSuperAdminGranted, *u, now)), nil
}
