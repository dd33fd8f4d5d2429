// Package redis opens the optional redis client used for issuance claims
// and exports its pool statistics.
package redis

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"pixpax/internal/platform/config"
)

// Open connects and pings. An empty URL yields (nil, nil).
func Open(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	applyConfig(opts, cfg)

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return client, nil
}

func applyConfig(opts *goredis.Options, cfg config.RedisConfig) {
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
}

// PoolCollector reads the client's pool statistics at scrape time.
type PoolCollector struct {
	client   *goredis.Client
	hits     *prometheus.Desc
	misses   *prometheus.Desc
	timeouts *prometheus.Desc
	stale    *prometheus.Desc
	total    *prometheus.Desc
	idle     *prometheus.Desc
}

func NewPoolCollector(client *goredis.Client) *PoolCollector {
	d := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("pixpax_redis_pool_"+name, help, nil, nil)
	}
	return &PoolCollector{
		client:   client,
		hits:     d("hits_total", "Connections reused from the pool"),
		misses:   d("misses_total", "Connections that had to be dialed"),
		timeouts: d("timeouts_total", "Waits for a free connection that timed out"),
		stale:    d("stale_conns_total", "Stale connections removed from the pool"),
		total:    d("conns", "Connections currently in the pool"),
		idle:     d("idle_conns", "Idle connections in the pool"),
	}
}

func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{c.hits, c.misses, c.timeouts, c.stale, c.total, c.idle} {
		ch <- d
	}
}

func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.client.PoolStats()
	counter := func(d *prometheus.Desc, v uint32) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	gauge := func(d *prometheus.Desc, v uint32) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v))
	}
	counter(c.hits, s.Hits)
	counter(c.misses, s.Misses)
	counter(c.timeouts, s.Timeouts)
	counter(c.stale, s.StaleConns)
	gauge(c.total, s.TotalConns)
	gauge(c.idle, s.IdleConns)
}
