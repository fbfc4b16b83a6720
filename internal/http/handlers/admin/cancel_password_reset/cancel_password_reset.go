package cancelpasswordreset

import (
	"net/http"
	e "usermanager/internal/core/domain/errors"
	"usermanager/internal/core/services"
	service "usermanager/internal/core/services/cancel_password_reset"
	"usermanager/internal/http/handlers/admin"
	"usermanager/internal/http/handlers/response"
)

type Handler struct {
	service services.Service[service.Input, service.Result]
}

func New(service services.Service[service.Input, service.Result]) *Handler {
	if service == nil {
		panic(e.NewNilArgumentError("service"))
	}
	return &Handler{service: service}
}

func (h *Handler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	identifier, ok := admin.URLParam(r, "identifier")
	if !ok {
		response.RenderError(rw, "invalid identifier", http.StatusBadRequest)
		return
	}

	result, err := h.service.Run(r.Context(), service.Input{Identifier: identifier})
	if err != nil {
		response.RenderServiceError(rw, err)
		return
	}

	response.Render(rw, response.NewMutation(result.User, "", result.Changed), http.StatusOK)
}
