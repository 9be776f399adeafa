// memory — таблица состояния в памяти процесса.
package memory

import (
	"context"
	"sync"

	"github.com/pribylovaa/match-bot/internal/models"
	"github.com/pribylovaa/match-bot/internal/state"
)

// Memory — реализация state.Store на map под мьютексом.
type Memory struct {
	mu       sync.RWMutex
	sessions map[int64]models.Session
	chains   map[int64]models.ChainState
}

var _ state.Store = (*Memory)(nil)

func New() *Memory {
	return &Memory{
		sessions: make(map[int64]models.Session),
		chains:   make(map[int64]models.ChainState),
	}
}

func (m *Memory) Session(_ context.Context, userID int64) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[userID]
	if !ok {
		return nil, state.ErrNotFound
	}

	return &s, nil
}

func (m *Memory) SaveSession(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.UserID] = *s

	return nil
}

func (m *Memory) DeleteSession(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, userID)

	return nil
}

func (m *Memory) Chain(_ context.Context, userID int64) (models.ChainState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.chains[userID], nil
}

func (m *Memory) SaveChain(_ context.Context, userID int64, cs models.ChainState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.chains[userID] = cs

	return nil
}

func (m *Memory) Close() error { return nil }
