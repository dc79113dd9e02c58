package migrate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionsAreOrdered(t *testing.T) {
	versions, err := Versions()
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_users", "0002_auth_grant", "0003_auth_confirm", "0004_auth_session"}, versions)
}

func TestMigrationsCreateAuthTables(t *testing.T) {
	versions, err := Versions()
	require.NoError(t, err)

	var all strings.Builder
	for _, v := range versions {
		body, readErr := migrationsFS.ReadFile("migrations/" + v + ".sql")
		require.NoError(t, readErr)
		all.Write(body)
	}
	for _, table := range []string{"users", "auth_grant", "auth_confirm", "auth_recovery", "auth_session"} {
		assert.Contains(t, all.String(), "CREATE TABLE IF NOT EXISTS "+table, table)
	}
}
