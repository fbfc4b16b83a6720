package events

import (
	"net/http"
	e "usermanager/internal/core/domain/errors"
	"usermanager/internal/core/domain/logging"
	"usermanager/internal/core/services"
	"usermanager/internal/core/services/auth"
	handlersauth "usermanager/internal/http/handlers/auth"
	"usermanager/internal/http/handlers/response"
	eventstream "usermanager/internal/implementations/event_stream"

	"github.com/r3labs/sse/v2"
)

// Handler streams account events to administrators.
// Browsers can not set headers on an EventSource, so the token may come as the "token" query parameter.
type Handler struct {
	log       logging.Logger
	sseServer *sse.Server
	authorize services.Service[struct{}, struct{}]
}

func New(
	log logging.Logger,
	sseServer *sse.Server,
	authorize services.Service[struct{}, struct{}],
) *Handler {
	if log == nil {
		panic(e.NewNilArgumentError("log"))
	}
	if sseServer == nil {
		panic(e.NewNilArgumentError("sseServer"))
	}
	if authorize == nil {
		panic(e.NewNilArgumentError("authorize"))
	}
	return &Handler{log: log, sseServer: sseServer, authorize: authorize}
}

func (h *Handler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if token := query.Get("token"); token != "" {
		if len(token) > handlersauth.AUTH_TOKEN_MAX_LEN {
			response.RenderUnauthorized(rw)
			return
		}
		r = r.WithContext(auth.WithAuthToken(r.Context(), token))
	}

	if _, err := h.authorize.Run(r.Context(), struct{}{}); err != nil {
		response.RenderServiceError(rw, err)
		return
	}

	query.Del("token")
	query.Set("stream", eventstream.StreamID)
	r = r.Clone(r.Context())
	r.URL.RawQuery = query.Encode()

	h.log.Info(r.Context(), "Subscribed to account events.", logging.Entry("remoteAddr", r.RemoteAddr))
	h.sseServer.ServeHTTP(rw, r)
	h.log.Info(r.Context(), "Unsubscribed from account events.", logging.Entry("remoteAddr", r.RemoteAddr))
}
