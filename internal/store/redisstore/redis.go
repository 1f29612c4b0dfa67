package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"pricebot/internal/models"
	"pricebot/internal/store"
)

// Sessions expire if a user abandons a menu flow; alerts are standing
// conditions and never expire on their own.
const sessionTTL = 15 * time.Minute

const (
	sessionKeyPrefix = "session:"
	alertKeyPrefix   = "alert:"
)

// Store is a Redis-backed implementation of store.Store. It lets multiple
// bot instances share conversation and alert state.
type Store struct {
	client *redis.Client
	logger *zap.Logger
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, addr, password string, db int, logger *zap.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	logger.Info("Connected to Redis", zap.String("addr", addr), zap.Int("db", db))
	return &Store{client: client, logger: logger}, nil
}

var _ store.Store = (*Store)(nil)

func sessionKey(userID int64) string {
	return sessionKeyPrefix + strconv.FormatInt(userID, 10)
}

func alertKey(userID int64) string {
	return alertKeyPrefix + strconv.FormatInt(userID, 10)
}

func (s *Store) GetSession(ctx context.Context, userID int64) (*models.ConversationState, error) {
	data, err := s.client.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var state models.ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &state, nil
}

func (s *Store) SetSession(ctx context.Context, userID int64, state *models.ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(userID), data, sessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *Store) GetAlert(ctx context.Context, userID int64) (*models.Alert, error) {
	data, err := s.client.Get(ctx, alertKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}

	var alert models.Alert
	if err := json.Unmarshal(data, &alert); err != nil {
		return nil, fmt.Errorf("failed to decode alert: %w", err)
	}
	return &alert, nil
}

func (s *Store) SetAlert(ctx context.Context, alert *models.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}
	if err := s.client.Set(ctx, alertKey(alert.UserID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set alert: %w", err)
	}
	return nil
}

func (s *Store) DeleteAlert(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, alertKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	return nil
}

func (s *Store) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	var alerts []models.Alert
	iter := s.client.Scan(ctx, 0, alertKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // expired between scan and get
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get alert %s: %w", key, err)
		}

		var alert models.Alert
		if err := json.Unmarshal(data, &alert); err != nil {
			s.logger.Warn("Skipping malformed alert record",
				zap.String("key", key),
				zap.Error(err),
			)
			continue
		}
		if alert.UserID == 0 {
			// Older records may miss the user id; recover it from the key.
			id, err := strconv.ParseInt(strings.TrimPrefix(key, alertKeyPrefix), 10, 64)
			if err != nil {
				continue
			}
			alert.UserID = id
		}
		alerts = append(alerts, alert)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan alerts: %w", err)
	}
	return alerts, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
