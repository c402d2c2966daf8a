package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gator-market/apiserver/internal/store"
	"github.com/gator-market/apiserver/types"
)

type fakeUserLookup struct {
	users map[string]types.User
}

func (f *fakeUserLookup) GetByUsername(_ context.Context, username string) (types.User, error) {
	user, ok := f.users[username]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func TestResolverResolve(t *testing.T) {
	svc := newTestTokenService(t)
	lookup := &fakeUserLookup{users: map[string]types.User{
		"gator": {ID: 7, Username: "gator", Email: "gator@ufl.edu"},
	}}
	resolver := NewResolver(svc, lookup)

	token, err := svc.Issue("gator")
	require.NoError(t, err)

	user, err := resolver.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, 7, user.ID)
	assert.Equal(t, "gator", user.Username)
}

func TestResolverUniformFailures(t *testing.T) {
	svc := newTestTokenService(t)
	resolver := NewResolver(svc, &fakeUserLookup{users: map[string]types.User{}})

	// Bad token and token for a missing account are indistinguishable.
	_, badTokenErr := resolver.Resolve(context.Background(), "not-a-token")
	assert.ErrorIs(t, badTokenErr, ErrUnauthorized)

	orphan, err := svc.Issue("deleted-user")
	require.NoError(t, err)
	_, orphanErr := resolver.Resolve(context.Background(), orphan)
	assert.ErrorIs(t, orphanErr, ErrUnauthorized)

	assert.Equal(t, badTokenErr, orphanErr)
}

func TestResolverExpiredToken(t *testing.T) {
	svc := newTestTokenService(t)
	lookup := &fakeUserLookup{users: map[string]types.User{
		"gator": {ID: 7, Username: "gator"},
	}}
	resolver := NewResolver(svc, lookup)

	shortLived, err := NewTokenService(testSecret, "HS256", time.Millisecond)
	require.NoError(t, err)
	token, err := shortLived.Issue("gator")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = resolver.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
