// Package profile stores and recalls user nutrition profiles as vector
// memories. Each saved profile fragment is embedded and indexed by user,
// so planning can recall dietary constraints semantically even when the
// current request never restates them.
package profile

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nourishlabs/mealpland/internal/vectorstore"
)

// ErrEmptyContent is returned when a save is attempted with no content.
var ErrEmptyContent = fmt.Errorf("profile content cannot be empty")

// DefaultRecallLimit bounds how many profile fragments a recall returns.
const DefaultRecallLimit = 5

// Service persists profile fragments in a vector store and recalls the
// most relevant ones for a query.
type Service struct {
	store  vectorstore.Store
	logger *zap.Logger
}

// NewService creates a profile Service backed by the given store.
func NewService(store vectorstore.Store, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}, nil
}

// memoryID derives a deterministic document ID from the user and the
// content, so re-saving the same fragment overwrites rather than
// duplicates.
func memoryID(userID, content string) string {
	sum := md5.Sum([]byte(userID + ":" + content))
	return hex.EncodeToString(sum[:])
}

// Save persists a profile fragment for a user. Returns the document ID.
func (s *Service) Save(ctx context.Context, userID, content string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user ID cannot be empty")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyContent
	}

	id := memoryID(userID, content)
	_, err := s.store.AddDocuments(ctx, []vectorstore.Document{
		{
			ID:      id,
			Content: content,
			Metadata: map[string]any{
				"user_id":  userID,
				"saved_at": time.Now().UTC().Format(time.RFC3339),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("saving profile for user %s: %w", userID, err)
	}

	s.logger.Info("profile saved",
		zap.String("user_id", userID),
		zap.String("memory_id", id),
	)
	return id, nil
}

// Recall returns the profile fragments most relevant to the query,
// newest matches first as ranked by the store. When the user has no
// stored profile it returns an empty string and no error, so callers
// can proceed with generic defaults.
func (s *Service) Recall(ctx context.Context, userID, query string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user ID cannot be empty")
	}
	if strings.TrimSpace(query) == "" {
		query = "dietary profile and nutrition goals"
	}

	results, err := s.store.Search(ctx, query, DefaultRecallLimit, map[string]any{"user_id": userID})
	if err != nil {
		return "", fmt.Errorf("recalling profile for user %s: %w", userID, err)
	}
	if len(results) == 0 {
		s.logger.Debug("no profile found", zap.String("user_id", userID))
		return "", nil
	}

	fragments := make([]string, len(results))
	for i, r := range results {
		fragments[i] = r.Content
	}
	return strings.Join(fragments, "\n"), nil
}

// Forget removes all recalled fragments matching the query for a user.
// Used by account deletion flows.
func (s *Service) Forget(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user ID cannot be empty")
	}
	results, err := s.store.Search(ctx, "dietary profile", DefaultRecallLimit, map[string]any{"user_id": userID})
	if err != nil {
		return fmt.Errorf("finding profiles for user %s: %w", userID, err)
	}
	if len(results) == 0 {
		return nil
	}
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	if err := s.store.DeleteDocuments(ctx, ids); err != nil {
		return fmt.Errorf("deleting profiles for user %s: %w", userID, err)
	}
	return nil
}
