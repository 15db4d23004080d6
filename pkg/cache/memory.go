package cache

import (
	"context"

	"github.com/mira-amm/pointsx/pkg/models"
	"github.com/puzpuzpuz/xsync/v4"
)

// MemoryStore keeps encoded snapshots in process memory, one per namespace.
// Stores created with the same map share data.
type MemoryStore struct {
	data      *xsync.Map[string, []byte]
	namespace string
}

func NewMemoryStore() *MemoryStore {
	return NewSharedMemoryStore(xsync.NewMap[string, []byte](), "default")
}

// NewSharedMemoryStore returns a store over data under namespace.
func NewSharedMemoryStore(data *xsync.Map[string, []byte], namespace string) *MemoryStore {
	return &MemoryStore{data: data, namespace: namespace}
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Read(_ context.Context) (models.Snapshot, error) {
	raw, ok := s.data.Load(s.namespace)
	if !ok {
		return nil, ErrCacheMiss
	}
	return Decode(raw)
}

func (s *MemoryStore) Write(_ context.Context, snapshot models.Snapshot) error {
	payload, err := Encode(snapshot)
	if err != nil {
		return err
	}
	s.data.Store(s.namespace, payload)
	return nil
}
