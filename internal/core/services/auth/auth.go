// Package auth guards administrative services with a static bearer token.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	e "usermanager/internal/core/domain/errors"
	"usermanager/internal/core/services"
)

var ErrNotAuthorized = errors.New("not authorized")

type contextAuthToken string

const CONTEXT_AUTH_TOKEN_KEY = contextAuthToken("authToken")

func WithAuthToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, CONTEXT_AUTH_TOKEN_KEY, token)
}

type service[T any, S any] struct {
	adminToken string
	inner      services.Service[T, S]
}

// WithAdminAuthorization rejects every call if adminToken is empty.
func WithAdminAuthorization[T any, S any](
	adminToken string,
	inner services.Service[T, S],
) services.Service[T, S] {
	if inner == nil {
		panic(e.NewNilArgumentError("inner"))
	}
	return &service[T, S]{
		adminToken: adminToken,
		inner:      inner,
	}
}

func (s *service[T, S]) Run(ctx context.Context, input T) (result S, err error) {
	authToken, ok := ctx.Value(CONTEXT_AUTH_TOKEN_KEY).(string)
	if !ok || s.adminToken == "" {
		return result, ErrNotAuthorized
	}
	if subtle.ConstantTimeCompare([]byte(authToken), []byte(s.adminToken)) != 1 {
		return result, ErrNotAuthorized
	}
	return s.inner.Run(ctx, input)
}
