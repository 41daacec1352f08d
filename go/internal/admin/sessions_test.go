package admin

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore_Expiry(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	store := NewSessionStore(0, clock)

	token, expiresAt, err := store.Issue()
	require.NoError(t, err)
	assert.Len(t, token, 64)
	assert.Equal(t, clock.Now().Add(DefaultSessionTTL), expiresAt)
	assert.True(t, store.Valid(token))

	clock.Advance(DefaultSessionTTL - time.Second)
	assert.True(t, store.Valid(token))

	clock.Advance(time.Second)
	assert.False(t, store.Valid(token))
	assert.Zero(t, store.Len())
}

func TestSessionStore_Revoke(t *testing.T) {
	store := NewSessionStore(time.Minute, clockwork.NewFakeClock())

	a, _, err := store.Issue()
	require.NoError(t, err)
	b, _, err := store.Issue()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, store.Len())

	store.Revoke(a)
	assert.False(t, store.Valid(a))
	assert.True(t, store.Valid(b))
	assert.False(t, store.Valid(""))
}
