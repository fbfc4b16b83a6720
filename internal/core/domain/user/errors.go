package user

import (
	"errors"
	"fmt"
)

var (
	ErrUserDoesNotExist              = errors.New("user does not exist")
	ErrUsernameAlreadyExists         = errors.New("username already exists")
	ErrEmailAlreadyExists            = errors.New("email already exists")
	ErrInvalidRole                   = errors.New("invalid role")
	ErrInvalidPasswordResetToken     = errors.New("invalid password reset token")
	ErrPasswordResetTokenExpired     = errors.New("password reset token expired")
	ErrPasswordResetRequestedTooSoon = errors.New("password reset requested too soon")
	ErrStorage                       = errors.New("storage failure")
)

type InvalidRoleError struct {
	Raw    string
	Reason string
}

func (e *InvalidRoleError) Error() string {
	return fmt.Sprintf("invalid role %q: %s", e.Raw, e.Reason)
}

func (e *InvalidRoleError) Is(target error) bool {
	return target == ErrInvalidRole
}

// StorageError wraps any fault of the underlying account store.
type StorageError struct {
	Op  string
	Err error
}

func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure on %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// WrapStorageError passes domain errors through unchanged.
func WrapStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrUserDoesNotExist),
		errors.Is(err, ErrUsernameAlreadyExists),
		errors.Is(err, ErrEmailAlreadyExists),
		errors.Is(err, ErrStorage):
		return err
	}
	return NewStorageError(op, err)
}
