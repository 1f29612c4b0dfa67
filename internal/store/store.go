package store

import (
	"context"
	"errors"

	"pricebot/internal/models"
)

// ErrNotFound is returned when no record exists for the given user.
var ErrNotFound = errors.New("record not found")

// SessionStore holds per-user conversation state.
type SessionStore interface {
	GetSession(ctx context.Context, userID int64) (*models.ConversationState, error)
	SetSession(ctx context.Context, userID int64, state *models.ConversationState) error
	DeleteSession(ctx context.Context, userID int64) error
}

// AlertStore holds user price alerts.
//
// Policy: at most one alert per user; setting an alert overwrites any
// existing one (last write wins).
type AlertStore interface {
	GetAlert(ctx context.Context, userID int64) (*models.Alert, error)
	SetAlert(ctx context.Context, alert *models.Alert) error
	DeleteAlert(ctx context.Context, userID int64) error

	// ListAlerts returns a snapshot of all active alerts.
	ListAlerts(ctx context.Context) ([]models.Alert, error)
}

// Store combines both stores behind one lifecycle.
type Store interface {
	SessionStore
	AlertStore
	Close() error
}
