package state

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is a minimal in-memory Store implementation intended for tests
// and examples. It uses Ref.Identifier() as its deterministic key. Every
// save stamps a fresh ETag so Mutate guards work against it.
type MemoryStore[T any] struct {
	mu      sync.RWMutex
	records map[string]memoryRecord[T]
}

type memoryRecord[T any] struct {
	ref      Ref
	snapshot T
	meta     Meta
}

func NewMemoryStore[T any]() *MemoryStore[T] {
	return &MemoryStore[T]{records: map[string]memoryRecord[T]{}}
}

func (s *MemoryStore[T]) Load(_ context.Context, ref Ref) (T, Meta, bool, error) {
	var zero T
	key, err := ref.Identifier()
	if err != nil {
		return zero, Meta{}, false, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return zero, Meta{}, false, nil
	}
	return record.snapshot, cloneMeta(record.meta), true, nil
}

func (s *MemoryStore[T]) Save(_ context.Context, ref Ref, snapshot T, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}

	stored := cloneMeta(meta)
	stored.ETag = uuid.NewString()
	if stored.SnapshotID == "" {
		stored.SnapshotID = stored.ETag
	}
	s.mu.Lock()
	s.records[key] = memoryRecord[T]{ref: Ref{Player: ref.Player, Group: strings.TrimSpace(ref.Group)}, snapshot: snapshot, meta: stored}
	s.mu.Unlock()
	return cloneMeta(stored), nil
}

// Groups lists the groups holding a snapshot for player.
func (s *MemoryStore[T]) Groups(_ context.Context, player uuid.UUID) ([]string, error) {
	s.mu.RLock()
	var out []string
	for _, record := range s.records {
		if record.ref.Player == player {
			out = append(out, record.ref.Group)
		}
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out, nil
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}
