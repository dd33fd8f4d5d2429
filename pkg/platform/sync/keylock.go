package sync

import (
	"hash/fnv"
	"sync"
)

const shardCount = 64

// KeyLock serializes work per key without a single global lock. Distinct
// keys may share a shard.
type KeyLock struct {
	shards [shardCount]sync.Mutex
}

func NewKeyLock() *KeyLock {
	return &KeyLock{}
}

// Lock locks key's shard and returns the matching unlock.
func (l *KeyLock) Lock(key string) (unlock func()) {
	m := &l.shards[shardFor(key)]
	m.Lock()
	return m.Unlock
}

func shardFor(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % shardCount
}
