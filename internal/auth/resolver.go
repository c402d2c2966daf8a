package auth

import (
	"context"
	"errors"

	"github.com/gator-market/apiserver/types"
)

// ErrUnauthorized is the single error returned when a bearer token
// cannot be resolved to an account, whether the token is invalid,
// expired, or its subject no longer exists.
var ErrUnauthorized = errors.New("unauthorized")

// UserLookup is the account read needed to resolve a token subject.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (types.User, error)
}

// Resolver maps bearer tokens to account records.
type Resolver struct {
	tokens *TokenService
	users  UserLookup
}

func NewResolver(tokens *TokenService, users UserLookup) *Resolver {
	return &Resolver{tokens: tokens, users: users}
}

// Resolve verifies the token and loads the account named by its
// subject. Every failure path returns ErrUnauthorized.
func (r *Resolver) Resolve(ctx context.Context, token string) (types.User, error) {
	subject, err := r.tokens.Verify(token)
	if err != nil {
		return types.User{}, ErrUnauthorized
	}
	user, err := r.users.GetByUsername(ctx, subject)
	if err != nil {
		return types.User{}, ErrUnauthorized
	}
	return user, nil
}
