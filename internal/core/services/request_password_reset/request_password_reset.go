package requestpasswordreset

import (
	"context"
	"strings"
	"time"
	e "usermanager/internal/core/domain/errors"
	"usermanager/internal/core/domain/logging"
	"usermanager/internal/core/domain/user"
	"usermanager/internal/core/services"
	accountmutation "usermanager/internal/core/services/account_mutation"
)

type Input struct {
	Identifier string
}

func (i Input) GetRateLimitKey() string {
	return "password-reset-request::" + strings.TrimSpace(i.Identifier)
}

type Result struct {
	User  user.User
	Token user.PasswordResetToken
}

type service struct {
	log            logging.Logger
	runner         *accountmutation.Runner
	tokenGenerator user.PasswordResetTokenGenerator
	policy         user.ResetPolicy
}

func New(
	log logging.Logger,
	runner *accountmutation.Runner,
	tokenGenerator user.PasswordResetTokenGenerator,
	policy user.ResetPolicy,
) services.Service[Input, Result] {
	if log == nil {
		panic(e.NewNilArgumentError("log"))
	}
	if runner == nil {
		panic(e.NewNilArgumentError("runner"))
	}
	if tokenGenerator == nil {
		panic(e.NewNilArgumentError("tokenGenerator"))
	}
	if err := policy.Validate(); err != nil {
		panic(err)
	}
	return &service{
		log:            log,
		runner:         runner,
		tokenGenerator: tokenGenerator,
		policy:         policy,
	}
}

func (s *service) Run(ctx context.Context, input Input) (result Result, err error) {
	var token user.PasswordResetToken
	r, err := s.runner.MutateByIdentifier(
		ctx,
		input.Identifier,
		func(u *user.User, now time.Time) (accountmutation.Change, error) {
			if s.policy.IsRequestThrottled(*u, now) {
				s.log.Info(
					ctx,
					"Password reset requested too soon.",
					logging.Entry("userId", u.ID),
					logging.Entry("requestedAt", u.PasswordRequestedAt),
				)
				return accountmutation.NoChange(), user.ErrPasswordResetRequestedTooSoon
			}
			generated, err := s.tokenGenerator.GeneratePasswordResetToken()
			if err != nil {
				s.log.Error(ctx, "Could not generate password reset token.", logging.Entry("err", err))
				return accountmutation.NoChange(), err
			}
			token = generated
			u.RequestPasswordReset(token, now)
			return accountmutation.Changed(user.NewEvent(user.EventPasswordResetRequested, *u, now)), nil
		},
	)
	if err != nil {
		return result, err
	}
	return Result{User: r.User, Token: token}, nil
}
