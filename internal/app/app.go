package app

import (
	"context"
	"fmt"
	"net/http"
	"usermanager/internal/app/deps"
	"usermanager/internal/app/services"
	coreservices "usermanager/internal/core/services"
	"usermanager/internal/core/services/auth"
	addrole "usermanager/internal/http/handlers/admin/add_role"
	cancelpasswordreset "usermanager/internal/http/handlers/admin/cancel_password_reset"
	demoteuser "usermanager/internal/http/handlers/admin/demote_user"
	"usermanager/internal/http/handlers/admin/events"
	promoteuser "usermanager/internal/http/handlers/admin/promote_user"
	removerole "usermanager/internal/http/handlers/admin/remove_role"
	handlersauth "usermanager/internal/http/handlers/auth"
	confirmpasswordreset "usermanager/internal/http/handlers/auth/confirm_password_reset"
	requestpasswordreset "usermanager/internal/http/handlers/auth/request_password_reset"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

func InitHttpServer(deps *deps.Deps, s *services.Services) *http.Server {
	return &http.Server{
		Handler: NewRouter(deps, s),
		Addr:    fmt.Sprintf("0.0.0.0:%d", deps.Config.Port),
	}
}

func NewRouter(deps *deps.Deps, s *services.Services) http.Handler {
	authRouter := chi.NewRouter()
	authRouter.Method(
		http.MethodPost,
		"/password_reset/token",
		requestpasswordreset.New(s.RequestPasswordReset, deps.Config.IsTestMode),
	)
	authRouter.Method(http.MethodPut, "/password_reset", confirmpasswordreset.New(s.ConfirmPasswordReset))

	adminRouter := chi.NewRouter()
	adminRouter.Use(handlersauth.SetAuthTokenToContext)
	adminRouter.Method(http.MethodPut, "/users/{identifier}/super", promoteuser.New(s.PromoteUser))
	adminRouter.Method(http.MethodDelete, "/users/{identifier}/super", demoteuser.New(s.DemoteUser))
	adminRouter.Method(http.MethodPut, "/users/{identifier}/roles/{role}", addrole.New(s.AddRole))
	adminRouter.Method(http.MethodDelete, "/users/{identifier}/roles/{role}", removerole.New(s.RemoveRole))
	adminRouter.Method(
		http.MethodDelete,
		"/users/{identifier}/password_reset",
		cancelpasswordreset.New(s.CancelPasswordReset),
	)
	if deps.SseServer != nil {
		adminRouter.Method(
			http.MethodGet,
			"/events",
			events.New(deps.Logger, deps.SseServer, auth.WithAdminAuthorization[struct{}, struct{}](
				deps.Config.AdminToken,
				coreservices.Func[struct{}, struct{}](func(ctx context.Context, input struct{}) (struct{}, error) {
					return struct{}{}, nil
				}),
			)),
		)
	}

	router := chi.NewRouter()
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{requestpasswordreset.TEST_TOKEN_HEADER},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))
	router.Mount("/auth", authRouter)
	router.Mount("/admin", adminRouter)

	return router
}
