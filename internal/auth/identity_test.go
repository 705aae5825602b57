package auth

import (
	"testing"

	"newsloop/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic_EmptyIDMeansSignedOut(t *testing.T) {
	_, ok := Static{}.CurrentUser()
	assert.False(t, ok)

	user, ok := Static{User: model.User{ID: "u1", Username: "alice"}}.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "alice", user.Username)
}

func TestSessions_ResolveAndRevoke(t *testing.T) {
	sessions := NewSessions()

	token := sessions.Create(model.User{ID: "u1", Username: "alice"})
	require.NotEmpty(t, token)

	user, ok := sessions.Resolve(token).CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "u1", user.ID)

	_, ok = sessions.Resolve("not-a-token").CurrentUser()
	assert.False(t, ok)

	sessions.Revoke(token)
	_, ok = sessions.Resolve(token).CurrentUser()
	assert.False(t, ok)
}
