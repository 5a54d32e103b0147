package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wires/internal/platform/config"
)

func TestOptions(t *testing.T) {
	opts, err := options(config.RedisConfig{
		URL:          "redis://:secret@cache:6380/2",
		PoolSize:     4,
		MinIdleConns: 1,
		DialTimeout:  2 * time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 4, opts.PoolSize)
	assert.Equal(t, 1, opts.MinIdleConns)
	assert.Equal(t, 2*time.Second, opts.DialTimeout)
}

func TestOptions_RejectsBadURL(t *testing.T) {
	_, err := options(config.RedisConfig{URL: "http://cache:6379"})
	assert.ErrorContains(t, err, "parse redis URL")
}

func TestNew_BlankURLDisablesLocking(t *testing.T) {
	c, err := New(t.Context(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, c)
}
