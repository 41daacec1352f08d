package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadUsers(t *testing.T) {
	users, err := loadUsers(writeSeed(t, `[
		{"id":"fixed","name":"  ana ","balance":1000},
		{"name":"bia","balance":2500}
	]`))
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "fixed", users[0].ID)
	assert.Equal(t, "ana", users[0].Name)
	assert.NotEmpty(t, users[1].ID)
}

func TestLoadUsers_Rejects(t *testing.T) {
	_, err := loadUsers(writeSeed(t, `[{"name":"a","balance":10}]`))
	assert.Error(t, err)

	_, err = loadUsers(writeSeed(t, `[{"name":"ana","balance":-1}]`))
	assert.Error(t, err)

	_, err = loadUsers(writeSeed(t, `{"name":"ana"}`))
	assert.Error(t, err)

	_, err = loadUsers(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
