package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/mirror"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/repository"
	"go.uber.org/zap"
)

// ReplayResult counts the outcome of one replication run
type ReplayResult struct {
	Replicated int
	Skipped    int
	Failed     int
}

// MirrorService replays the maintenance outbox into the legacy mirror
type MirrorService struct {
	eventRepo   *repository.MaintenanceEventRepository
	sink        mirror.Sink
	batchSize   int
	maxAttempts int
	logger      *zap.Logger
}

// NewMirrorService creates a new MirrorService instance
func NewMirrorService(eventRepo *repository.MaintenanceEventRepository, sink mirror.Sink, batchSize, maxAttempts int, logger *zap.Logger) *MirrorService {
	if batchSize <= 0 {
		batchSize = 100
	}
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &MirrorService{
		eventRepo:   eventRepo,
		sink:        sink,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Replay applies pending events in id order until the outbox is drained or
// ctx ends. The run keeps a cursor past every event it tried, so a failing
// event is retried on a later run and never holds back newer ones. Every
// event carries a full snapshot and a retried older version is skipped by
// the sink.
func (s *MirrorService) Replay(ctx context.Context) (ReplayResult, error) {
	var result ReplayResult
	var lastID uint64

	for {
		events, err := s.eventRepo.ListPending(ctx, lastID, s.maxAttempts, s.batchSize)
		if err != nil {
			return result, fmt.Errorf("failed to list pending events: %w", err)
		}

		for i := range events {
			event := &events[i]
			lastID = event.ID

			if err := ctx.Err(); err != nil {
				return result, err
			}

			applied, err := s.apply(ctx, event)
			if err != nil {
				result.Failed++
				s.logger.Warn("mirror replication failed",
					zap.Uint64("eventID", event.ID),
					zap.String("requestID", event.RequestID),
					zap.Int64("version", event.Version),
					zap.Error(err),
				)
				if markErr := s.eventRepo.MarkFailed(ctx, event.ID, err.Error()); markErr != nil {
					return result, fmt.Errorf("failed to record replication failure: %w", markErr)
				}
				continue
			}

			if applied {
				result.Replicated++
			} else {
				result.Skipped++
			}
			if err := s.eventRepo.MarkReplicated(ctx, event.ID, time.Now().UTC()); err != nil {
				return result, fmt.Errorf("failed to mark event replicated: %w", err)
			}
		}

		if len(events) < s.batchSize {
			return result, nil
		}
	}
}

func (s *MirrorService) apply(ctx context.Context, event *domain.MaintenanceEvent) (bool, error) {
	var rec domain.LegacyMaintenance
	if err := json.Unmarshal(event.Payload, &rec); err != nil {
		return false, fmt.Errorf("invalid event payload: %w", err)
	}
	return s.sink.Apply(ctx, rec)
}

// Pending reports how many events are waiting for replication
func (s *MirrorService) Pending(ctx context.Context) (int64, error) {
	return s.eventRepo.CountPending(ctx, s.maxAttempts)
}
