package events

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"usermanager/internal/core/domain/logging"
	"usermanager/internal/core/domain/user"
	"usermanager/internal/core/services"
	"usermanager/internal/core/services/auth"
	handlersauth "usermanager/internal/http/handlers/auth"
	eventstream "usermanager/internal/implementations/event_stream"

	"github.com/r3labs/sse/v2"
	"github.com/stretchr/testify/require"
)

func newHandler(server *sse.Server) *Handler {
	return New(
		logging.NewFakeLogger(),
		server,
		auth.WithAdminAuthorization[struct{}, struct{}](
			"secret",
			services.Func[struct{}, struct{}](func(ctx context.Context, input struct{}) (struct{}, error) {
				return struct{}{}, nil
			}),
		),
	)
}

func TestEventsRequireAdminToken(t *testing.T) {
	server := sse.New()
	defer server.Close()
	handler := newHandler(server)

	for _, url := range []string{"/admin/events", "/admin/events?token=wrong"} {
		rw := httptest.NewRecorder()
		handler.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, url, nil))
		require.Equal(t, http.StatusUnauthorized, rw.Code)
	}
}

func TestEventsAreStreamedToAdmin(t *testing.T) {
	// Setup ---
	server := sse.New()
	server.AutoReplay = true
	defer server.Close()
	listener := eventstream.NewSSE(server, eventstream.StreamID)
	event := user.NewEvent(
		user.EventSuperAdminGranted,
		user.User{ID: "user-1", Username: "alice"},
		time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	)
	require.Nil(t, listener.OnAccountEvent(context.Background(), event))

	ts := httptest.NewServer(handlersauth.SetAuthTokenToContext(newHandler(server)))
	defer ts.Close()

	// Exercise ---
	client := sse.NewClient(ts.URL + "?token=secret")
	received := make(chan *sse.Event)
	require.Nil(t, client.SubscribeChan("ignored", received))
	defer client.Unsubscribe(received)

	// Verify ---
	select {
	case msg := <-received:
		require.Equal(t, string(user.EventSuperAdminGranted), string(msg.Event))
	case <-time.After(5 * time.Second):
		t.Fatal("account event was not streamed")
	}
}

func TestEventsKeepCallerRequestIntact(t *testing.T) {
	// Setup ---
	server := sse.New()
	defer server.Close()
	handler := newHandler(server)
	req := httptest.NewRequest(http.MethodGet, "/admin/events?stream=other", nil)
	req = req.WithContext(auth.WithAuthToken(req.Context(), "secret"))
	rw := httptest.NewRecorder()

	// Exercise ---
	handler.ServeHTTP(rw, req)

	// Verify ---
	require.Equal(t, "stream=other", req.URL.RawQuery)
}
