package embeddings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nourishlabs/mealpland/internal/config"
)

func TestNewService(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.EmbeddingConfig
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: config.EmbeddingConfig{
				BaseURL: "http://localhost:8080/v1",
				Model:   "text-embedding-3-small",
			},
		},
		{
			name:    "missing base URL",
			cfg:     config.EmbeddingConfig{Model: "text-embedding-3-small"},
			wantErr: true,
		},
		{
			name:    "missing model",
			cfg:     config.EmbeddingConfig{BaseURL: "http://localhost:8080/v1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewService(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, svc)
		})
	}
}

func TestEmbedValidation(t *testing.T) {
	svc, err := NewService(config.EmbeddingConfig{
		BaseURL: "http://localhost:8080/v1",
		Model:   "text-embedding-3-small",
	})
	require.NoError(t, err)

	_, err = svc.EmbedDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = svc.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}
