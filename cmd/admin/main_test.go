package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDatabaseConfigPrefersFlags(t *testing.T) {
	t.Setenv("DATABASE_HOST", "env-host")
	t.Setenv("DATABASE_PORT", "6543")
	t.Setenv("POSTGRES_DB", "env-db")
	t.Setenv("POSTGRES_USER", "env-user")
	t.Setenv("POSTGRES_PASSWORD", "env-pass")
	t.Setenv("DATABASE_SSLMODE", "")

	cfg, err := loadDatabaseConfig("flag-host", 0, "", "flag-user", "", "")
	require.NoError(t, err)
	assert.Equal(t, "flag-host", cfg.Host)
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, "env-db", cfg.Name)
	assert.Equal(t, "flag-user", cfg.User)
	assert.Equal(t, "env-pass", cfg.Password)
	assert.Equal(t, "disable", cfg.SSLMode)
}

func TestLoadDatabaseConfigRequiresCredentials(t *testing.T) {
	for _, key := range []string{"POSTGRES_DB", "DB_NAME", "POSTGRES_USER", "DB_USER", "POSTGRES_PASSWORD", "DB_PASSWORD", "DATABASE_PORT"} {
		t.Setenv(key, "")
	}
	_, err := loadDatabaseConfig("", 0, "", "", "", "")
	assert.ErrorContains(t, err, "database name is required")

	_, err = loadDatabaseConfig("", 0, "db", "", "", "")
	assert.ErrorContains(t, err, "database user is required")

	t.Setenv("DATABASE_PORT", "not-a-port")
	_, err = loadDatabaseConfig("", 0, "db", "u", "p", "")
	assert.ErrorContains(t, err, "parse DATABASE_PORT")
}
