package services

import (
	"context"
	"usermanager/internal/app/deps"
	drl "usermanager/internal/core/domain/rate_limiter"
	"usermanager/internal/core/services"
	accountmutation "usermanager/internal/core/services/account_mutation"
	addrole "usermanager/internal/core/services/add_role"
	"usermanager/internal/core/services/auth"
	cancelpasswordreset "usermanager/internal/core/services/cancel_password_reset"
	confirmpasswordreset "usermanager/internal/core/services/confirm_password_reset"
	createuser "usermanager/internal/core/services/create_user"
	demoteuser "usermanager/internal/core/services/demote_user"
	promoteuser "usermanager/internal/core/services/promote_user"
	ratelimiting "usermanager/internal/core/services/rate_limiting"
	removerole "usermanager/internal/core/services/remove_role"
	requestpasswordreset "usermanager/internal/core/services/request_password_reset"
)

type Services struct {
	PromoteUser services.Service[promoteuser.Input, promoteuser.Result]
	DemoteUser  services.Service[demoteuser.Input, demoteuser.Result]
	AddRole     services.Service[addrole.Input, addrole.Result]
	RemoveRole  services.Service[removerole.Input, removerole.Result]
	CreateUser  services.Service[createuser.Input, createuser.Result]

	RequestPasswordReset services.Service[requestpasswordreset.Input, requestpasswordreset.Result]
	ConfirmPasswordReset services.Service[confirmpasswordreset.Input, confirmpasswordreset.Result]
	CancelPasswordReset  services.Service[cancelpasswordreset.Input, cancelpasswordreset.Result]
}

var passwordResetRequestInterval = drl.Hour

// InitServices builds services without admin authorization, as used by the command-line front end.
func InitServices(deps *deps.Deps) *Services {
	s := &Services{}

	runner := accountmutation.New(
		deps.Logger,
		deps.IdentityResolver,
		deps.UnitOfWork,
		deps.Now,
		deps.EventListeners...,
	)

	s.PromoteUser = promoteuser.New(runner)
	s.DemoteUser = demoteuser.New(runner)
	s.AddRole = addrole.New(deps.Logger, runner)
	s.RemoveRole = removerole.New(deps.Logger, runner)
	s.CreateUser = createuser.New(deps.Logger, deps.UnitOfWork, deps.PasswordHasher, deps.Now)

	s.RequestPasswordReset = initRequestPasswordReset(deps, runner)
	s.ConfirmPasswordReset = confirmpasswordreset.New(
		deps.Logger,
		deps.UserRepository,
		runner,
		deps.PasswordHasher,
		deps.ResetPolicy,
	)
	s.CancelPasswordReset = cancelpasswordreset.New(runner)

	return s
}

// InitHttpServices guards the administrative services with the admin token.
func InitHttpServices(deps *deps.Deps) *Services {
	s := InitServices(deps)
	adminToken := deps.Config.AdminToken
	if adminToken == "" {
		deps.Logger.Warning(context.Background(), "Admin routes are disabled, ADMIN_TOKEN is not set.")
	}

	s.PromoteUser = auth.WithAdminAuthorization(adminToken, s.PromoteUser)
	s.DemoteUser = auth.WithAdminAuthorization(adminToken, s.DemoteUser)
	s.AddRole = auth.WithAdminAuthorization(adminToken, s.AddRole)
	s.RemoveRole = auth.WithAdminAuthorization(adminToken, s.RemoveRole)
	s.CreateUser = auth.WithAdminAuthorization(adminToken, s.CreateUser)
	s.CancelPasswordReset = auth.WithAdminAuthorization(adminToken, s.CancelPasswordReset)

	return s
}

func initRequestPasswordReset(
	deps *deps.Deps,
	runner *accountmutation.Runner,
) services.Service[requestpasswordreset.Input, requestpasswordreset.Result] {
	service := requestpasswordreset.New(
		deps.Logger,
		runner,
		deps.PasswordResetTokenGenerator,
		deps.ResetPolicy,
	)
	if deps.PasswordResetTokenSender != nil {
		service = requestpasswordreset.NewWithTokenSending(deps.Logger, deps.PasswordResetTokenSender, service)
	}
	if deps.RateLimiter != nil {
		service = ratelimiting.WithRateLimiting(
			deps.Logger,
			deps.RateLimiter,
			drl.Limit{Interval: passwordResetRequestInterval, Value: deps.Config.PasswordResetRequestLimit},
			service,
		)
	}
	return service
}
