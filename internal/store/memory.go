// internal/store/memory.go
//
// In-memory implementation of the Store interface.
// Used by tests and by the server when no durable save slot is needed.
//
// Characteristics:
//   - Snapshots keyed by save ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/robalobadob/orbline/internal/board"
	"github.com/robalobadob/orbline/internal/game"
)

// ErrNotFound is returned by Load for an unknown save ID.
var ErrNotFound = errors.New("store: not found")

// Store persists game snapshots under a save ID.
// Implementations may be backed by memory (this file) or SQLite (sqlite.go).
type Store interface {
	// Save persists or replaces the snapshot stored under id.
	Save(ctx context.Context, id string, s game.Snapshot) error

	// Load retrieves the snapshot stored under id, or ErrNotFound.
	Load(ctx context.Context, id string) (game.Snapshot, error)
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu    sync.RWMutex             // guards saves map
	saves map[string]game.Snapshot // keyed by save ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{saves: make(map[string]game.Snapshot)}
}

// Save stores a copy of s so later edits by the caller do not leak in.
func (m *memory) Save(ctx context.Context, id string, s game.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves[id] = cloneSnapshot(s)
	return nil
}

// Load returns a copy of the stored snapshot.
func (m *memory) Load(ctx context.Context, id string) (game.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return game.Snapshot{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.saves[id]
	if !ok {
		return game.Snapshot{}, ErrNotFound
	}
	return cloneSnapshot(s), nil
}

func cloneSnapshot(s game.Snapshot) game.Snapshot {
	s.ColorIndexQueue = slices.Clone(s.ColorIndexQueue)
	if s.Nodes != nil {
		nodes := make([]board.NodeState, len(s.Nodes))
		for i, n := range s.Nodes {
			if n.Ball != nil {
				b := *n.Ball
				n.Ball = &b
			}
			if n.Pending != nil {
				p := *n.Pending
				n.Pending = &p
			}
			nodes[i] = n
		}
		s.Nodes = nodes
	}
	return s
}
