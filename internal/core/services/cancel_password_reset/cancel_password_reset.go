package cancelpasswordreset

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
	r, err := s.runner.MutateByIdentifier(
		ctx,
		input.Identifier,
		func(u *user.User, now time.Time) (accountmutation.Change, error) {
			if !u.ClearPasswordReset() {
				return accountmutation.NoChange(), nil
			}
			return accountmutation.Changed(user.NewEvent(user.EventPasswordResetCancelled, *u, now)), nil
		},
	)
	return Result(r), err
}
