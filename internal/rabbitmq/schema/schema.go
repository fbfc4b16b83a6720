package schema

import (
	"encoding/json"
	"time"
)

// AccountEvent is the message body published for every persisted account change.
type AccountEvent struct {
	Type     string    `json:"type"`
	UserID   string    `json:"userId"`
	Username string    `json:"username"`
	Role     string    `json:"role,omitempty"`
	At       time.Time `json:"at"`
}

func (m *AccountEvent) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *AccountEvent) Unmarshal(data []byte) error {
	return json.Unmarshal(data, m)
}
