package memory

import (
	"context"
	"sort"
	"sync"

	"pricebot/internal/models"
	"pricebot/internal/store"
)

// Store is an in-memory implementation of store.Store. All state is
// process-lifetime only.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]models.ConversationState
	alerts   map[int64]models.Alert
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		sessions: make(map[int64]models.ConversationState),
		alerts:   make(map[int64]models.Alert),
	}
}

var _ store.Store = (*Store)(nil)

func (s *Store) GetSession(ctx context.Context, userID int64) (*models.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.sessions[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &state, nil
}

func (s *Store) SetSession(ctx context.Context, userID int64, state *models.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[userID] = *state
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
	return nil
}

func (s *Store) GetAlert(ctx context.Context, userID int64) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	alert, ok := s.alerts[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &alert, nil
}

func (s *Store) SetAlert(ctx context.Context, alert *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alerts[alert.UserID] = *alert
	return nil
}

func (s *Store) DeleteAlert(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.alerts, userID)
	return nil
}

func (s *Store) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	alerts := make([]models.Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		alerts = append(alerts, a)
	}

	// Stable order for deterministic evaluation and tests
	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].UserID < alerts[j].UserID
	})

	return alerts, nil
}

func (s *Store) Close() error {
	return nil
}
