package user

import (
	"context"
	"fmt"
)

// IdentityResolver maps a login identifier to an account.
// It returns ErrUserDoesNotExist for a missing account and a StorageError for store faults.
type IdentityResolver interface {
	Resolve(ctx context.Context, identifier string) (User, error)
}

type ResolutionMode string

const (
	ResolveByUsername ResolutionMode = "username"
	ResolveByEmail    ResolutionMode = "email"
	ResolveByEither   ResolutionMode = "either"
)

func ParseResolutionMode(raw string) (ResolutionMode, error) {
	switch mode := ResolutionMode(raw); mode {
	case ResolveByUsername, ResolveByEmail, ResolveByEither:
		return mode, nil
	}
	return ResolutionMode(""), fmt.Errorf("unknown identity resolution mode %q", raw)
}
