package confirmpasswordreset

import (
	"context"
	"errors"
	"time"
	e "usermanager/internal/core/domain/errors"
	"usermanager/internal/core/domain/logging"
	"usermanager/internal/core/domain/user"
	"usermanager/internal/core/services"
	accountmutation "usermanager/internal/core/services/account_mutation"
)

type Input struct {
	Token       user.PasswordResetToken
	NewPassword user.RawPassword
}

type Result struct {
	User user.User
}

type service struct {
	log            logging.Logger
	userRepository user.UserRepository
	runner         *accountmutation.Runner
	passwordHasher user.PasswordHasher
	policy         user.ResetPolicy
}

func New(
	log logging.Logger,
	userRepository user.UserRepository,
	runner *accountmutation.Runner,
	passwordHasher user.PasswordHasher,
	policy user.ResetPolicy,
) services.Service[Input, Result] {
	if log == nil {
		panic(e.NewNilArgumentError("log"))
	}
	if userRepository == nil {
		panic(e.NewNilArgumentError("userRepository"))
	}
	if runner == nil {
		panic(e.NewNilArgumentError("runner"))
	}
	if passwordHasher == nil {
		panic(e.NewNilArgumentError("passwordHasher"))
	}
	if err := policy.Validate(); err != nil {
		panic(err)
	}
	return &service{
		log:            log,
		userRepository: userRepository,
		runner:         runner,
		passwordHasher: passwordHasher,
		policy:         policy,
	}
}

func (s *service) Run(ctx context.Context, input Input) (result Result, err error) {
	if input.Token == "" {
		return result, user.ErrInvalidPasswordResetToken
	}

	u, err := s.userRepository.GetByConfirmationToken(ctx, input.Token)
	if errors.Is(err, context.Canceled) {
		return result, err
	}
	if errors.Is(err, user.ErrUserDoesNotExist) {
		s.log.Info(ctx, "User not found for password reset token.")
		return result, user.ErrInvalidPasswordResetToken
	}
	if err != nil {
		s.log.Error(ctx, "Could not get user for password reset.", logging.Entry("err", err))
		return result, err
	}

	newPasswordHash, err := s.passwordHasher.HashPassword(input.NewPassword)
	if err != nil {
		s.log.Error(ctx, "Could not hash password.", logging.Entry("userId", u.ID), logging.Entry("err", err))
		return result, err
	}

	r, err := s.runner.MutateByID(ctx, u.ID, func(locked *user.User, now time.Time) (accountmutation.Change, error) {
		if !locked.ConfirmationToken.IsPresent || !locked.ConfirmationToken.Value.Matches(input.Token) {
			// Consumed or replaced by a concurrent request.
			return accountmutation.NoChange(), user.ErrInvalidPasswordResetToken
		}
		if s.policy.IsRequestExpired(*locked, now) {
			locked.ClearPasswordReset()
			return accountmutation.Change{
				Events: []user.Event{user.NewEvent(user.EventPasswordResetExpired, *locked, now)},
				Err:    user.ErrPasswordResetTokenExpired,
			}, nil
		}
		locked.PasswordHash = newPasswordHash
		locked.ClearPasswordReset()
		return accountmutation.Changed(user.NewEvent(user.EventPasswordResetCompleted, *locked, now)), nil
	})
	if err != nil {
		return result, err
	}

	return Result{User: r.User}, nil
}
