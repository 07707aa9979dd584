package worldstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Valaery/worldengine/engineerr"
)

// RedisMirror optionally replicates a tab's world-state snapshot into Redis
// so multiple engine processes can share read access to world state (for
// example, a read-only status dashboard) without talking to the owning
// tab's in-process Store directly. It is not a substitute for the Store's
// single-writer discipline: only the owning tab ever calls Publish.
type RedisMirror struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// RedisMirrorOption configures a RedisMirror.
type RedisMirrorOption func(*RedisMirror)

// WithMirrorTTL sets how long a published snapshot survives in Redis before
// expiring. Zero disables expiration.
func WithMirrorTTL(ttl time.Duration) RedisMirrorOption {
	return func(m *RedisMirror) { m.ttl = ttl }
}

// WithMirrorPrefix sets the Redis key prefix. Default is "worldengine".
func WithMirrorPrefix(prefix string) RedisMirrorOption {
	return func(m *RedisMirror) { m.prefix = prefix }
}

// NewRedisMirror creates a mirror backed by an existing redis client.
func NewRedisMirror(client *redis.Client, opts ...RedisMirrorOption) *RedisMirror {
	m := &RedisMirror{client: client, prefix: "worldengine", ttl: time.Hour}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *RedisMirror) key(tab string) string {
	return fmt.Sprintf("%s:tab:%s:snapshot", m.prefix, tab)
}

// Publish serializes the snapshot and writes it to Redis under the tab's key.
func (m *RedisMirror) Publish(ctx context.Context, tab string, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return engineerr.New("worldstore", "redis_publish", engineerr.PersistenceError, err)
	}
	if err := m.client.Set(ctx, m.key(tab), data, m.ttl).Err(); err != nil {
		return engineerr.New("worldstore", "redis_publish", engineerr.PersistenceError, err)
	}
	return nil
}

// Read fetches the most recently published snapshot for a tab, if any.
func (m *RedisMirror) Read(ctx context.Context, tab string) (Snapshot, bool, error) {
	data, err := m.client.Get(ctx, m.key(tab)).Bytes()
	if err == redis.Nil {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, engineerr.New("worldstore", "redis_read", engineerr.PersistenceError, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, engineerr.New("worldstore", "redis_read", engineerr.PersistenceError, err)
	}
	return snap, true, nil
}
