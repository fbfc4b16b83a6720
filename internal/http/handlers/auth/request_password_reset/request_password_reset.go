package requestpasswordreset

import (
	"encoding/json"
	"io"
	"net/http"
	e "usermanager/internal/core/domain/errors"
	"usermanager/internal/core/services"
	service "usermanager/internal/core/services/request_password_reset"
	"usermanager/internal/http/handlers/response"

	validation "github.com/go-ozzo/ozzo-validation"
)

const TEST_TOKEN_HEADER = "x-test-password-reset-token"

type Handler struct {
	service    services.Service[service.Input, service.Result]
	isTestMode bool
}

func New(
	service services.Service[service.Input, service.Result],
	isTestMode bool,
) *Handler {
	if service == nil {
		panic(e.NewNilArgumentError("service"))
	}
	return &Handler{service: service, isTestMode: isTestMode}
}

type Input struct {
	Identifier string `json:"identifier"`
}

func (i *Input) FromJSON(r io.Reader) error {
	e := json.NewDecoder(r)
	return e.Decode(i)
}

func (i Input) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Identifier, validation.Required, validation.Length(0, 512)),
	)
}

func (h *Handler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	input := Input{}
	if err := input.FromJSON(r.Body); err != nil {
		response.RenderError(rw, "invalid request data", http.StatusBadRequest)
		return
	}
	if err := input.Validate(); err != nil {
		response.Render(rw, err, http.StatusBadRequest)
		return
	}

	result, err := h.service.Run(r.Context(), service.Input{Identifier: input.Identifier})
	if err != nil {
		response.RenderServiceError(rw, err)
		return
	}

	if h.isTestMode {
		rw.Header().Set(TEST_TOKEN_HEADER, string(result.Token))
	}
	response.Render(rw, struct{}{}, http.StatusOK)
}
