package vectorstore

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/nourishlabs/mealpland/internal/config"
)

// NewStore builds a Store from configuration. The provider selects the
// backend: "chromem" runs embedded with local persistence, "qdrant"
// connects to an external Qdrant instance over gRPC.
func NewStore(cfg config.VectorStoreConfig, embedder Embedder, logger *zap.Logger) (Store, error) {
	switch cfg.Provider {
	case "chromem":
		return NewChromemStore(cfg.Chromem, embedder, logger)
	case "qdrant":
		return NewQdrantStore(cfg.Qdrant, embedder, logger)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
