package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/delaycast/pkg/config"
)

func TestNew_NotConfigured(t *testing.T) {
	_, err := New(&config.Config{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(&config.Config{Database: config.DatabaseConfig{URL: "invalid://url"}})
	assert.Error(t, err)
}

func TestPoolConfig(t *testing.T) {
	pc, err := poolConfig(config.DatabaseConfig{
		URL:             "postgres://u:p@localhost:5432/delaycast",
		MaxConns:        8,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
	})
	require.NoError(t, err)

	assert.Equal(t, int32(8), pc.MaxConns)
	assert.Equal(t, int32(2), pc.MinConns)
	assert.Equal(t, time.Hour, pc.MaxConnLifetime)
	assert.Equal(t, applicationName, pc.ConnConfig.RuntimeParams["application_name"])
}

func TestPoolConfig_KeepsURLSettings(t *testing.T) {
	pc, err := poolConfig(config.DatabaseConfig{
		URL: "postgres://u:p@localhost:5432/delaycast?pool_max_conns=3&application_name=etl",
	})
	require.NoError(t, err)

	assert.Equal(t, int32(3), pc.MaxConns)
	assert.Equal(t, "etl", pc.ConnConfig.RuntimeParams["application_name"])
}

func TestPoolConfig_MinAboveMax(t *testing.T) {
	_, err := poolConfig(config.DatabaseConfig{
		URL:      "postgres://u:p@localhost:5432/delaycast",
		MaxConns: 2,
		MinConns: 5,
	})
	assert.Error(t, err)
}

func TestCloseNil(t *testing.T) {
	var db *DB
	assert.NotPanics(t, db.Close)
}

func TestMigrate_MissingDir(t *testing.T) {
	_, err := Migrate(context.Background(), nil, "does/not/exist")
	assert.Error(t, err)
}
