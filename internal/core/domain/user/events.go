package user

import (
	"context"
	"time"
)

type EventType string

const (
	EventSuperAdminGranted      EventType = "super_admin_granted"
	EventSuperAdminRevoked      EventType = "super_admin_revoked"
	EventRoleAdded              EventType = "role_added"
	EventRoleRemoved            EventType = "role_removed"
	EventPasswordResetRequested EventType = "password_reset_requested"
	EventPasswordResetCompleted EventType = "password_reset_completed"
	EventPasswordResetCancelled EventType = "password_reset_cancelled"
	EventPasswordResetExpired   EventType = "password_reset_expired"
)

type Event struct {
	Type     EventType `json:"type"`
	UserID   ID        `json:"userId"`
	Username Username  `json:"username"`
	Role     Role      `json:"role,omitempty"`
	At       time.Time `json:"at"`
}

func NewEvent(t EventType, u User, at time.Time) Event {
	return Event{Type: t, UserID: u.ID, Username: u.Username, At: at}
}

func (e Event) WithRole(role Role) Event {
	e.Role = role
	return e
}

// EventListener is invoked synchronously after a mutation has been persisted.
type EventListener interface {
	OnAccountEvent(ctx context.Context, event Event) error
}
