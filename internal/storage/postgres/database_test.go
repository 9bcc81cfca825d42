package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/campus-awards-api/internal/config"
)

func TestPoolForFollowsRetryBudget(t *testing.T) {
	cfg := &config.Config{}

	cfg.Storage.MaxTransactionAttempts = 3
	assert.Equal(t, 5, PoolFor(cfg).MaxIdleConns)

	cfg.Storage.MaxTransactionAttempts = 12
	pool := PoolFor(cfg)
	assert.Equal(t, 12, pool.MaxIdleConns)
	assert.Equal(t, 25, pool.MaxOpenConns)

	cfg.Storage.MaxTransactionAttempts = 100
	assert.Equal(t, 25, PoolFor(cfg).MaxIdleConns)
}

func TestDialRejectsIncompleteSettings(t *testing.T) {
	cfg := &config.Config{}
	cfg.DB.Host = "localhost"

	_, err := Dial(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_NAME cannot be empty")
	assert.Contains(t, err.Error(), "DB_USER cannot be empty")
	assert.NotContains(t, err.Error(), "DB_HOST")

	_, err = Dial(context.Background(), nil)
	assert.Error(t, err)
}
