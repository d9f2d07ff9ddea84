package persistence

import (
	"context"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEmbeddedMigrations(t *testing.T) {
	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	content, err := migrationFiles.ReadFile(names[0])
	require.NoError(t, err)
	assert.Contains(t, string(content), "CONSTRAINT auth_users_phone_key UNIQUE (phone)")
	assert.Contains(t, string(content), "CONSTRAINT profiles_phone_key UNIQUE (phone)")
}

func TestRunMigrations_NilPool(t *testing.T) {
	assert.NoError(t, RunMigrations(context.Background(), nil, zap.NewNop()))
}

func TestNilHandles(t *testing.T) {
	var pg *Postgres
	assert.Error(t, pg.Ping(context.Background()))
	assert.Nil(t, pg.PoolHandle())

	var rd *Redis
	assert.Error(t, rd.Ping(context.Background()))
	assert.Nil(t, rd.Handle())
}
