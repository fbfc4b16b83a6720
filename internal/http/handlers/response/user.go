package response

import (
	"time"
	"usermanager/internal/core/domain/user"
)

type User struct {
	ID                   string     `json:"id"`
	Username             string     `json:"username"`
	Email                string     `json:"email"`
	Enabled              bool       `json:"enabled"`
	Locked               bool       `json:"locked"`
	Roles                []string   `json:"roles"`
	IsSuperAdmin         bool       `json:"is_super_admin"`
	PasswordResetPending bool       `json:"password_reset_pending"`
	PasswordRequestedAt  *time.Time `json:"password_requested_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func (u *User) FromDomainUser(du user.User) {
	u.ID = string(du.ID)
	u.Username = string(du.Username)
	u.Email = string(du.Email)
	u.Enabled = du.Enabled
	u.Locked = du.Locked
	u.Roles = du.Roles.Strings()
	u.IsSuperAdmin = du.IsSuperAdmin
	u.PasswordResetPending = du.HasPendingPasswordReset()
	if du.PasswordRequestedAt.IsPresent {
		requestedAt := du.PasswordRequestedAt.Value
		u.PasswordRequestedAt = &requestedAt
	}
	u.CreatedAt = du.CreatedAt
	u.UpdatedAt = du.UpdatedAt
}

// Mutation is the body of every administrative account change.
type Mutation struct {
	User    User   `json:"user"`
	Role    string `json:"role,omitempty"`
	Changed bool   `json:"changed"`
}

func NewMutation(du user.User, role user.Role, changed bool) Mutation {
	m := Mutation{Role: string(role), Changed: changed}
	m.User.FromDomainUser(du)
	return m
}
