// Package planstore persists generated meal plans in a NATS JetStream
// key-value bucket. Each saved plan is one JSON record keyed
// "{userID}.{recordID}", so per-user history is a prefix scan.
package planstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Sentinel errors for plan persistence.
var (
	ErrNoRecipes   = errors.New("plan must contain at least one recipe")
	ErrEmptyUserID = errors.New("user ID cannot be empty")
)

// Recipe is one meal option within a saved plan.
type Recipe struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Ingredients string `json:"ingredients"`
	Nutrition   string `json:"nutrition"`
	Time        string `json:"time"`
}

// Record is the persisted form of a plan.
type Record struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	RequestText string    `json:"request_text"`
	Recipes     []Recipe  `json:"recipes"`
	CreatedAt   time.Time `json:"created_at"`
}

// keyValue is the slice of nats.KeyValue the store needs. Narrow so
// tests can fake it without a broker.
type keyValue interface {
	Put(key string, value []byte) (uint64, error)
	Get(key string) (nats.KeyValueEntry, error)
	Keys(opts ...nats.WatchOpt) ([]string, error)
}

// Store writes plan records to a JetStream KV bucket.
type Store struct {
	kv     keyValue
	logger *zap.Logger
}

// New connects to the named bucket on an existing NATS connection,
// creating the bucket if it does not exist.
func New(nc *nats.Conn, bucket string, logger *zap.Logger) (*Store, error) {
	if nc == nil {
		return nil, fmt.Errorf("NATS connection is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("getting JetStream context: %w", err)
	}

	kv, err := js.KeyValue(bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:      bucket,
			Description: "meal plan records",
		})
	}
	if err != nil {
		return nil, fmt.Errorf("opening KV bucket %s: %w", bucket, err)
	}

	return &Store{kv: kv, logger: logger}, nil
}

// newWithKV is the test seam.
func newWithKV(kv keyValue, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{kv: kv, logger: logger}
}

// SavePlan persists a plan and returns the generated record ID.
func (s *Store) SavePlan(ctx context.Context, userID, requestText string, recipes []Recipe) (string, error) {
	if userID == "" {
		return "", ErrEmptyUserID
	}
	if len(recipes) == 0 {
		return "", ErrNoRecipes
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	record := Record{
		ID:          uuid.New().String(),
		UserID:      userID,
		RequestText: requestText,
		Recipes:     recipes,
		CreatedAt:   time.Now().UTC(),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("encoding plan record: %w", err)
	}

	key := fmt.Sprintf("%s.%s", sanitizeKeyPart(userID), record.ID)
	if _, err := s.kv.Put(key, data); err != nil {
		return "", fmt.Errorf("storing plan for user %s: %w", userID, err)
	}

	s.logger.Info("plan saved",
		zap.String("user_id", userID),
		zap.String("record_id", record.ID),
		zap.Int("recipe_count", len(recipes)),
	)
	return record.ID, nil
}

// ListPlans returns all plan records for a user, in store order.
func (s *Store) ListPlans(ctx context.Context, userID string) ([]Record, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keys, err := s.kv.Keys()
	if errors.Is(err, nats.ErrNoKeysFound) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}

	prefix := sanitizeKeyPart(userID) + "."
	records := make([]Record, 0, len(keys))
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		entry, err := s.kv.Get(key)
		if err != nil {
			return nil, fmt.Errorf("reading plan %s: %w", key, err)
		}
		var record Record
		if err := json.Unmarshal(entry.Value(), &record); err != nil {
			return nil, fmt.Errorf("decoding plan %s: %w", key, err)
		}
		records = append(records, record)
	}
	return records, nil
}

// sanitizeKeyPart maps a user ID onto the KV key alphabet. Dots are
// reserved as the key separator.
func sanitizeKeyPart(part string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, part)
}
