// Package embeddings provides embedding generation via langchaingo.
//
// The service wraps langchaingo's OpenAI-compatible embedding client, so
// it works with the OpenAI API or any compatible server by changing the
// base URL. It backs the profile memory vector store.
package embeddings

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/nourishlabs/mealpland/internal/config"
)

// ErrEmptyInput indicates empty or nil input texts.
var ErrEmptyInput = errors.New("empty or nil input texts")

// Service generates vector embeddings for text content.
type Service struct {
	embedder *embeddings.EmbedderImpl
	cfg      config.EmbeddingConfig
}

// NewService creates an embedding service from configuration.
func NewService(cfg config.EmbeddingConfig) (*Service, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("embedding base URL required")
	}
	if cfg.Model == "" {
		return nil, errors.New("embedding model required")
	}

	apiKey := cfg.APIKey.Value()
	if apiKey == "" {
		// langchaingo requires a token; OpenAI-compatible local servers
		// ignore it.
		apiKey = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
		openai.WithEmbeddingModel(cfg.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &Service{embedder: embedder, cfg: cfg}, nil
}

// EmbedDocuments generates embeddings for multiple texts.
func (s *Service) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding documents: %w", err)
	}
	return vectors, nil
}

// EmbedQuery generates an embedding for a single query.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}
	vector, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return vector, nil
}
