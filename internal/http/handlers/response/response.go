package response

import (
	"encoding/json"
	"errors"
	"net/http"
	ratelimiter "usermanager/internal/core/domain/rate_limiter"
	"usermanager/internal/core/domain/user"
	"usermanager/internal/core/services/auth"
)

type errorResponse struct {
	Error string `json:"error"`
}

func RenderUnauthorized(rw http.ResponseWriter) {
	RenderError(rw, "invalid authentication token", http.StatusUnauthorized)
}

func RenderInternalError(rw http.ResponseWriter) {
	RenderError(rw, "internal error", http.StatusInternalServerError)
}

func RenderRateLimitExceeded(rw http.ResponseWriter) {
	RenderError(rw, "rate limit exceeded", http.StatusTooManyRequests)
}

// RenderServiceError keeps every domain error kind distinguishable for clients.
func RenderServiceError(rw http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrNotAuthorized):
		RenderUnauthorized(rw)
	case errors.Is(err, ratelimiter.ErrRateLimitExceeded):
		RenderRateLimitExceeded(rw)
	case errors.Is(err, user.ErrPasswordResetRequestedTooSoon):
		RenderError(rw, "password reset requested too soon", http.StatusTooManyRequests)
	case errors.Is(err, user.ErrUserDoesNotExist):
		RenderError(rw, "user does not exist", http.StatusNotFound)
	case errors.Is(err, user.ErrInvalidRole):
		RenderError(rw, "invalid role", http.StatusUnprocessableEntity)
	case errors.Is(err, user.ErrInvalidPasswordResetToken):
		RenderError(rw, "invalid token", http.StatusUnprocessableEntity)
	case errors.Is(err, user.ErrPasswordResetTokenExpired):
		RenderError(rw, "token expired", http.StatusUnprocessableEntity)
	case errors.Is(err, user.ErrStorage):
		RenderError(rw, "storage unavailable", http.StatusServiceUnavailable)
	default:
		RenderInternalError(rw)
	}
}

func RenderError(rw http.ResponseWriter, msg string, status int) {
	Render(rw, errorResponse{Error: msg}, status)
}

func Render(rw http.ResponseWriter, res interface{}, status int) {
	rw.Header().Set("Content-Type", "application/json")

	content, err := json.Marshal(res)
	if err != nil {
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}

	rw.WriteHeader(status)
	rw.Write(content)
}
