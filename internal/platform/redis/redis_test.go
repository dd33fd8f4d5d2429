package redis

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixpax/internal/platform/config"
)

func TestOpenWithoutURL(t *testing.T) {
	c, err := Open(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestApplyConfig(t *testing.T) {
	opts, err := goredis.ParseURL("redis://localhost:6379/2")
	require.NoError(t, err)
	applyConfig(opts, config.RedisConfig{PoolSize: 7, DialTimeout: time.Second})
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, time.Second, opts.DialTimeout)
	assert.Equal(t, 2, opts.DB)
}

func TestPoolCollector(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewPoolCollector(client)))
	n, err := promtestutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}
