package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	c "usermanager/internal/core/domain/common"
	e "usermanager/internal/core/domain/errors"
	"usermanager/internal/core/domain/user"
)

type UsernameResolver struct {
	repository user.UserRepository
}

func NewUsernameResolver(repository user.UserRepository) *UsernameResolver {
	if repository == nil {
		panic(e.NewNilArgumentError("repository"))
	}
	return &UsernameResolver{repository: repository}
}

func (r *UsernameResolver) Resolve(ctx context.Context, identifier string) (u user.User, err error) {
	username := user.Username(strings.TrimSpace(identifier))
	if username == "" {
		return u, user.ErrUserDoesNotExist
	}
	return r.repository.GetByUsername(ctx, username)
}

type EmailResolver struct {
	repository user.UserRepository
}

func NewEmailResolver(repository user.UserRepository) *EmailResolver {
	if repository == nil {
		panic(e.NewNilArgumentError("repository"))
	}
	return &EmailResolver{repository: repository}
}

func (r *EmailResolver) Resolve(ctx context.Context, identifier string) (u user.User, err error) {
	email := c.NewEmail(identifier)
	if email == "" {
		return u, user.ErrUserDoesNotExist
	}
	return r.repository.GetByEmail(ctx, email)
}

// ChainResolver asks every resolver in order and returns the first account found.
// A store fault stops the chain.
type ChainResolver struct {
	resolvers []user.IdentityResolver
}

func NewChainResolver(resolvers ...user.IdentityResolver) *ChainResolver {
	if len(resolvers) == 0 {
		panic(e.NewNilArgumentError("resolvers"))
	}
	for _, r := range resolvers {
		if r == nil {
			panic(e.NewNilArgumentError("resolvers"))
		}
	}
	return &ChainResolver{resolvers: resolvers}
}

func (r *ChainResolver) Resolve(ctx context.Context, identifier string) (u user.User, err error) {
	for _, resolver := range r.resolvers {
		u, err = resolver.Resolve(ctx, identifier)
		if !errors.Is(err, user.ErrUserDoesNotExist) {
			return u, err
		}
	}
	return u, user.ErrUserDoesNotExist
}

// NewResolver builds the resolver for the mode. Username wins over email in the either mode.
func NewResolver(mode user.ResolutionMode, repository user.UserRepository) (user.IdentityResolver, error) {
	switch mode {
	case user.ResolveByUsername:
		return NewUsernameResolver(repository), nil
	case user.ResolveByEmail:
		return NewEmailResolver(repository), nil
	case user.ResolveByEither:
		return NewChainResolver(NewUsernameResolver(repository), NewEmailResolver(repository)), nil
	}
	return nil, fmt.Errorf("unknown identity resolution mode %q", mode)
}
