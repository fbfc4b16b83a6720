package user

import (
	"context"
	"time"
	c "usermanager/internal/core/domain/common"
)

type CreateUserInput struct {
	Username     Username
	Email        c.Email
	PasswordHash PasswordHash
	Enabled      bool
	Roles        Roles
	IsSuperAdmin bool
	CreatedAt    time.Time
}

// UserRepository is the account store. Every method except the lookups
// that report ErrUserDoesNotExist wraps store faults into StorageError.
type UserRepository interface {
	Create(ctx context.Context, input CreateUserInput) (User, error)
	GetByID(ctx context.Context, id ID) (User, error)
	GetByUsername(ctx context.Context, username Username) (User, error)
	GetByEmail(ctx context.Context, email c.Email) (User, error)
	GetByConfirmationToken(ctx context.Context, token PasswordResetToken) (User, error)
	// GetByIDWithLock works only within a unit of work and holds the account until it ends.
	GetByIDWithLock(ctx context.Context, id ID) (User, error)
	Save(ctx context.Context, u User) error
}

type IDGenerator interface {
	GenerateUserID() ID
}
