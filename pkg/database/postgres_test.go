package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fluxrx/pkg/config"
)

func TestNew_NotConfigured(t *testing.T) {
	_, err := New(context.Background(), config.DatabaseConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNew_BadURL(t *testing.T) {
	_, err := New(context.Background(), config.DatabaseConfig{URL: "postgres://%zz", MaxConns: 1})
	assert.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := New(ctx, cfg.Database)
	require.NoError(t, err)
	defer db.Close()

	status, err := db.HealthCheck(ctx)
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.Equal(t, int32(cfg.Database.MaxConns), status.Stats.MaxConns)
}
