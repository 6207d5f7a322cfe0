// Package memory implements the store contract on in-process maps.
// It backs single-node development runs and unit tests; nothing survives a
// restart.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/creatorhub/signet/internal/store"
)

// Store holds records and sets behind a single mutex.
type Store struct {
	mu     sync.RWMutex
	values map[string][]byte
	sets   map[string]map[string]struct{}
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		values: make(map[string][]byte),
		sets:   make(map[string]map[string]struct{}),
	}
}

// Get retrieves the value stored under key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.values[key]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", key, store.ErrNotFound)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

// Set stores value under key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.values[key] = stored
	return nil
}

// SetAdd adds member to the set under setKey.
func (s *Store) SetAdd(_ context.Context, setKey, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets[setKey]
	if !ok {
		set = make(map[string]struct{})
		s.sets[setKey] = set
	}
	set[member] = struct{}{}
	return nil
}

// SetRemove removes member from the set under setKey.
func (s *Store) SetRemove(_ context.Context, setKey, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if set, ok := s.sets[setKey]; ok {
		delete(set, member)
	}
	return nil
}

// SetMembers returns all members of the set under setKey.
func (s *Store) SetMembers(_ context.Context, setKey string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.sets[setKey]
	members := make([]string, 0, len(set))
	for m := range set {
		members = append(members, m)
	}
	return members, nil
}
