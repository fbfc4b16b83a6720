package user

import (
	"fmt"
	"time"
	c "usermanager/internal/core/domain/common"
	e "usermanager/internal/core/domain/errors"
)

type ID string

type Username string

type PasswordHash string

func (p PasswordHash) String() string {
	return "***"
}

type RawPassword string

func (p RawPassword) String() string {
	return "***"
}

type User struct {
	ID                  ID
	Username            Username
	Email               c.Email
	PasswordHash        PasswordHash
	Enabled             bool
	Locked              bool
	Roles               Roles
	IsSuperAdmin        bool
	ConfirmationToken   c.Optional[PasswordResetToken]
	PasswordRequestedAt c.Optional[time.Time]
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (u *User) Validate() error {
	if u.ID == "" {
		return e.NewInvalidStateError("user ID is not set")
	}
	if u.Username == "" {
		return e.NewInvalidStateError(fmt.Sprintf("username is not set for user %s", u.ID))
	}
	if u.Email == "" {
		return e.NewInvalidStateError(fmt.Sprintf("email is not set for user %s", u.ID))
	}
	if u.ConfirmationToken.IsPresent != u.PasswordRequestedAt.IsPresent {
		return e.NewInvalidStateError(
			fmt.Sprintf("confirmation token and password request time are inconsistent for user %s", u.ID),
		)
	}
	seen := make(map[Role]struct{}, len(u.Roles))
	for _, r := range u.Roles {
		if _, ok := seen[r]; ok {
			return e.NewInvalidStateError(fmt.Sprintf("role %s is duplicated for user %s", r, u.ID))
		}
		seen[r] = struct{}{}
	}
	return nil
}

// HasRole always succeeds for super administrators.
func (u *User) HasRole(role Role) bool {
	if u.IsSuperAdmin {
		return true
	}
	return u.Roles.Contains(role)
}

func (u *User) HasPendingPasswordReset() bool {
	return u.ConfirmationToken.IsPresent
}

func (u *User) RequestPasswordReset(token PasswordResetToken, at time.Time) {
	u.ConfirmationToken = c.NewOptional(token, true)
	u.PasswordRequestedAt = c.NewOptional(at, true)
}

// ClearPasswordReset returns false if there was no pending request.
func (u *User) ClearPasswordReset() bool {
	if !u.HasPendingPasswordReset() && !u.PasswordRequestedAt.IsPresent {
		return false
	}
	u.ConfirmationToken = c.None[PasswordResetToken]()
	u.PasswordRequestedAt = c.None[time.Time]()
	return true
}

// Clone copies the roles so that the returned user can be mutated independently.
func (u User) Clone() User {
	u.Roles = u.Roles.Clone()
	return u
}
