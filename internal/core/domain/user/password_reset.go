package user

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"
	e "usermanager/internal/core/domain/errors"
)

type PasswordResetToken string

func (t PasswordResetToken) Matches(other PasswordResetToken) bool {
	return subtle.ConstantTimeCompare([]byte(t), []byte(other)) == 1
}

type PasswordResetTokenGenerator interface {
	GeneratePasswordResetToken() (PasswordResetToken, error)
}

type PasswordResetTokenSender interface {
	SendPasswordResetToken(ctx context.Context, user User, token PasswordResetToken) error
}

const (
	DefaultPasswordResetTokenTTL = 24 * time.Hour
	DefaultPasswordResetRetryTTL = 2 * time.Hour
)

// ResetPolicy holds the two independent windows of a password reset:
// TokenTTL is the hard validity of a token, RetryTTL is the minimum resend interval.
type ResetPolicy struct {
	TokenTTL time.Duration
	RetryTTL time.Duration
}

func NewResetPolicy(tokenTTL time.Duration, retryTTL time.Duration) (ResetPolicy, error) {
	p := ResetPolicy{TokenTTL: tokenTTL, RetryTTL: retryTTL}
	return p, p.Validate()
}

func (p ResetPolicy) Validate() error {
	if p.TokenTTL <= 0 {
		return e.NewConfigurationError("tokenTTL", "must be positive")
	}
	if p.RetryTTL < 0 {
		return e.NewConfigurationError("retryTTL", "must not be negative")
	}
	if p.RetryTTL > p.TokenTTL {
		return e.NewConfigurationError(
			"retryTTL",
			fmt.Sprintf("%s must not exceed tokenTTL %s", p.RetryTTL, p.TokenTTL),
		)
	}
	return nil
}

// IsRequestExpired is false for users without a pending request.
func (p ResetPolicy) IsRequestExpired(u User, now time.Time) bool {
	if !u.PasswordRequestedAt.IsPresent {
		return false
	}
	return now.Sub(u.PasswordRequestedAt.Value) > p.TokenTTL
}

func (p ResetPolicy) IsRequestThrottled(u User, now time.Time) bool {
	if !u.HasPendingPasswordReset() || !u.PasswordRequestedAt.IsPresent {
		return false
	}
	return now.Sub(u.PasswordRequestedAt.Value) < p.RetryTTL
}
