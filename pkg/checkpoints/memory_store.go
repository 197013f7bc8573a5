package checkpoints

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

const DefaultMaxCheckpoints = 1024

// MemoryStore keeps checkpoints in process. Once full, the least recently used
// conversation is evicted.
type MemoryStore struct {
	checkpoints *lru.Cache[Key, Checkpoint]
}

func NewMemoryStore(maxCheckpoints int) *MemoryStore {
	if maxCheckpoints <= 0 {
		maxCheckpoints = DefaultMaxCheckpoints
	}
	// only fails for a non-positive size
	cache, _ := lru.New[Key, Checkpoint](maxCheckpoints)
	return &MemoryStore{checkpoints: cache}
}

func (m *MemoryStore) Save(_ context.Context, checkpoint Checkpoint) error {
	checkpoint.UpdatedAt = time.Now()
	m.checkpoints.Add(checkpoint.Key, checkpoint)
	return nil
}

func (m *MemoryStore) Load(_ context.Context, key Key) (*Checkpoint, error) {
	cp, exists := m.checkpoints.Get(key)
	if !exists {
		return nil, errors.Wrapf(ErrCheckpointNotFound, "%+v", key)
	}
	return &cp, nil
}

func (m *MemoryStore) Delete(_ context.Context, key Key) error {
	m.checkpoints.Remove(key)
	return nil
}

func (m *MemoryStore) Len() int {
	return m.checkpoints.Len()
}
