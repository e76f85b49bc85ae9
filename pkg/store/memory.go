package store

import (
	"sort"
	"strings"
	"sync"
)

// MemoryStore keeps the whole tree in memory. It backs tests and is the base
// layer of the sqlite store.
type MemoryStore struct {
	mu   sync.Mutex
	root map[string]any
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{root: make(map[string]any)}
}

func (s *MemoryStore) Read(path string) (any, error) {
	parts, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return deepCopy(getPath(s.root, parts)), nil
}

func (s *MemoryStore) Commit(updates map[string]any) error {
	staged, err := prepare(updates)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	apply(s.root, staged)
	return nil
}

func (s *MemoryStore) Transact(root string, fn func(current any) (any, error)) error {
	parts, err := splitPath(root)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(deepCopy(getPath(s.root, parts)))
	if err != nil {
		return err
	}
	norm, err := normalize(next)
	if err != nil {
		return err
	}
	if norm == nil {
		deletePath(s.root, parts)
	} else {
		setPath(s.root, parts, norm)
	}
	return nil
}

type stagedWrite struct {
	parts []string
	value any // nil deletes
}

// prepare validates and normalises every update before anything is applied,
// so a bad path or unencodable value fails the whole commit up front. Writes
// apply shallow paths first: when a commit carries both a path and a deeper
// one under it, the deeper write always lands inside the result of the
// shallower, regardless of map iteration order.
func prepare(updates map[string]any) ([]stagedWrite, error) {
	staged := make([]stagedWrite, 0, len(updates))
	for path, value := range updates {
		parts, err := splitPath(path)
		if err != nil {
			return nil, err
		}
		norm, err := normalize(value)
		if err != nil {
			return nil, err
		}
		staged = append(staged, stagedWrite{parts: parts, value: norm})
	}
	sort.Slice(staged, func(i, j int) bool {
		if len(staged[i].parts) != len(staged[j].parts) {
			return len(staged[i].parts) < len(staged[j].parts)
		}
		return strings.Join(staged[i].parts, "/") < strings.Join(staged[j].parts, "/")
	})
	return staged, nil
}

func apply(root map[string]any, staged []stagedWrite) {
	for _, w := range staged {
		if w.value == nil {
			deletePath(root, w.parts)
		} else {
			setPath(root, w.parts, w.value)
		}
	}
}
