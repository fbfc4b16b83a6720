package eventstream

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"
	"usermanager/internal/core/domain/user"

	"github.com/r3labs/sse/v2"
	"github.com/stretchr/testify/require"
)

func TestAccountEventIsStreamed(t *testing.T) {
	server := sse.New()
	server.AutoReplay = true
	defer server.Close()
	listener := NewSSE(server, StreamID)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	event := user.NewEvent(
		user.EventRoleAdded,
		user.User{ID: "user-1", Username: "alice"},
		at,
	).WithRole("ROLE_EDITOR")

	require.Nil(t, listener.OnAccountEvent(context.Background(), event))

	ts := httptest.NewServer(server)
	defer ts.Close()
	client := sse.NewClient(ts.URL)
	received := make(chan *sse.Event)
	require.Nil(t, client.SubscribeChan(StreamID, received))
	defer client.Unsubscribe(received)

	select {
	case msg := <-received:
		require.Equal(t, string(user.EventRoleAdded), string(msg.Event))
		streamed := user.Event{}
		require.Nil(t, json.Unmarshal(msg.Data, &streamed))
		require.Equal(t, event, streamed)
	case <-time.After(5 * time.Second):
		t.Fatal("account event was not streamed")
	}
}
