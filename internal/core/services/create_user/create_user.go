package createuser

import (
	"context"
	"errors"
	"regexp"
	"time"
	c "usermanager/internal/core/domain/common"
	e "usermanager/internal/core/domain/errors"
	"usermanager/internal/core/domain/logging"
	uow "usermanager/internal/core/domain/unit_of_work"
	"usermanager/internal/core/domain/user"
	"usermanager/internal/core/services"

	validation "github.com/go-ozzo/ozzo-validation"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type Input struct {
	Username     user.Username
	Email        c.Email
	Password     user.RawPassword
	Roles        []string
	IsSuperAdmin bool
}

func (i Input) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Username, validation.Required, validation.Length(2, 180)),
		validation.Field(&i.Email, validation.Required, validation.Length(0, 180), validation.Match(emailPattern)),
		validation.Field(&i.Password, validation.Required, validation.Length(8, 256)),
	)
}

type Result struct {
	User user.User
}

type service struct {
	log            logging.Logger
	unitOfWork     uow.UnitOfWork
	passwordHasher user.PasswordHasher
	now            func() time.Time
}

func New(
	log logging.Logger,
	unitOfWork uow.UnitOfWork,
	passwordHasher user.PasswordHasher,
	now func() time.Time,
) services.Service[Input, Result] {
	if log == nil {
		panic(e.NewNilArgumentError("log"))
	}
	if unitOfWork == nil {
		panic(e.NewNilArgumentError("unitOfWork"))
	}
	if passwordHasher == nil {
		panic(e.NewNilArgumentError("passwordHasher"))
	}
	if now == nil {
		panic(e.NewNilArgumentError("now"))
	}
	return &service{
		log:            log,
		unitOfWork:     unitOfWork,
		passwordHasher: passwordHasher,
		now:            now,
	}
}

func (s *service) Run(ctx context.Context, input Input) (result Result, err error) {
	if err := input.Validate(); err != nil {
		return result, err
	}
	roles := user.Roles{user.RoleDefault}
	for _, raw := range input.Roles {
		role, err := user.NewRole(raw)
		if err != nil {
			return result, err
		}
		if role == user.RoleSuperAdmin {
			input.IsSuperAdmin = true
			continue
		}
		roles, _ = roles.With(role)
	}

	passwordHash, err := s.passwordHasher.HashPassword(input.Password)
	if err != nil {
		s.log.Error(ctx, "Could not hash password.", logging.Entry("err", err))
		return result, err
	}
	uow, err := s.unitOfWork.Begin(ctx)
	if errors.Is(err, context.Canceled) {
		return result, err
	}
	if err != nil {
		s.log.Error(
			ctx,
			"Could not begin unit of work.",
			logging.Entry("username", input.Username),
			logging.Entry("err", err),
		)
		return result, err
	}
	defer uow.Rollback(ctx)

	createdUser, err := uow.Users().Create(ctx, user.CreateUserInput{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: passwordHash,
		Enabled:      true,
		Roles:        roles,
		IsSuperAdmin: input.IsSuperAdmin,
		CreatedAt:    s.now(),
	})
	if errors.Is(err, context.Canceled) {
		return result, err
	}
	if errors.Is(err, user.ErrUsernameAlreadyExists) || errors.Is(err, user.ErrEmailAlreadyExists) {
		s.log.Info(
			ctx,
			"User already exists.",
			logging.Entry("username", input.Username),
			logging.Entry("email", input.Email),
		)
		return result, err
	}
	if err != nil {
		s.log.Error(
			ctx,
			"Could not create new user.",
			logging.Entry("username", input.Username),
			logging.Entry("err", err),
		)
		return result, err
	}

	err = uow.Commit(ctx)
	if errors.Is(err, context.Canceled) {
		return result, err
	}
	if err != nil {
		s.log.Error(
			ctx,
			"Could not commit unit of work.",
			logging.Entry("username", input.Username),
			logging.Entry("err", err),
		)
		return result, err
	}

	s.log.Info(
		ctx,
		"New user has been created.",
		logging.Entry("userId", createdUser.ID),
		logging.Entry("username", createdUser.Username),
	)
	return Result{User: createdUser}, nil
}
