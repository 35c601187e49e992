package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrations_UnknownCommand(t *testing.T) {
	err := runMigrations(context.Background(), nil, "sideways", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown migration command")
}

func TestRun_MigrateWithoutDatabase(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BLOGTUBE_DATABASE_URL", "")

	err := run(context.Background(), []string{"-migrate", "status"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL")
}
