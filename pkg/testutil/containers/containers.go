//go:build integration

// Package containers starts the postgres, redis and kafka instances the
// integration suites run against. Each is started at most once per test
// binary and shared; the testcontainers reaper removes them on exit.
package containers

import (
	"sync"
	"testing"
)

type shared[T any] struct {
	once sync.Once
	val  T
	err  error
}

func (s *shared[T]) get(t *testing.T, start func() (T, error)) T {
	t.Helper()
	s.once.Do(func() { s.val, s.err = start() })
	if s.err != nil {
		t.Fatalf("container: %v", s.err)
	}
	return s.val
}

var (
	pg    shared[*PostgresContainer]
	rdb   shared[*RedisContainer]
	kafka shared[*KafkaContainer]
)

// Postgres returns the shared migrated postgres.
func Postgres(t *testing.T) *PostgresContainer {
	return pg.get(t, startPostgres)
}

// Redis returns the shared redis.
func Redis(t *testing.T) *RedisContainer {
	return rdb.get(t, startRedis)
}

// Kafka returns the shared single-node broker.
func Kafka(t *testing.T) *KafkaContainer {
	return kafka.get(t, startKafka)
}
