// Package statestore provides the key/value backends that hold session
// records between runs of the workout client.
package statestore

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/claude/repclock/internal/config"
	"github.com/claude/repclock/internal/session"
)

// Store is a session.Store that must be closed.
type Store interface {
	session.Store
	io.Closer
}

// Open returns the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return OpenSQLite(cfg.Dir)
	case "redis":
		return OpenRedis(ctx, cfg.Redis)
	case "memory":
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

// Memory keeps items in process memory. Nothing survives a restart.
type Memory struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string][]byte)}
}

func (m *Memory) GetItem(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	if !ok {
		return nil, session.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) SetItem(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Close() error { return nil }
