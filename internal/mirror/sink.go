// Package mirror replicates maintenance request snapshots into the legacy
// "maintenance" collection read by the tenant-facing views.
package mirror

import (
	"context"
	"fmt"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/config"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sink stores legacy records. Apply writes rec only when its version is
// greater than the stored one and reports whether it did.
type Sink interface {
	Name() string
	Apply(ctx context.Context, rec domain.LegacyMaintenance) (bool, error)
	Close(ctx context.Context) error
}

// NewSink builds the sink selected by cfg.Sink
func NewSink(ctx context.Context, cfg *config.MirrorConfig, db *gorm.DB, logger *zap.Logger) (Sink, error) {
	switch cfg.Sink {
	case "", "gorm":
		return NewGormSink(db), nil
	case "mongo":
		return NewMongoSink(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, logger)
	case "firestore":
		return NewFirestoreSink(ctx, cfg.FirestoreProjectID, cfg.FirestoreCredentialsFile, cfg.FirestoreCollection, logger)
	case "none":
		return NoneSink{}, nil
	default:
		return nil, fmt.Errorf("unsupported mirror sink: %s", cfg.Sink)
	}
}

// NoneSink discards records
type NoneSink struct{}

func (NoneSink) Name() string { return "none" }

func (NoneSink) Apply(context.Context, domain.LegacyMaintenance) (bool, error) { return false, nil }

func (NoneSink) Close(context.Context) error { return nil }
