// Package eventstream forwards account events to server-sent event subscribers.
package eventstream

import (
	"context"
	"encoding/json"
	e "usermanager/internal/core/domain/errors"
	"usermanager/internal/core/domain/user"

	"github.com/r3labs/sse/v2"
)

const StreamID = "accounts"

type SSE struct {
	sseServer *sse.Server
	streamID  string
}

func NewSSE(sseServer *sse.Server, streamID string) *SSE {
	if sseServer == nil {
		panic(e.NewNilArgumentError("sseServer"))
	}
	if !sseServer.StreamExists(streamID) {
		sseServer.CreateStream(streamID)
	}
	return &SSE{sseServer: sseServer, streamID: streamID}
}

func (s *SSE) OnAccountEvent(ctx context.Context, event user.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.sseServer.Publish(s.streamID, &sse.Event{
		Event: []byte(event.Type),
		Data:  data,
	})
	return nil
}
