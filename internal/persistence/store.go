package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/domain"
)

// Snapshot is the complete persisted state: all ticket records plus the
// staff rating counters. It is rewritten wholesale after every mutation;
// the in-memory registries stay authoritative and the last writer wins.
type Snapshot struct {
	Tickets      map[string]domain.TicketRecord `json:"tickets"`
	StaffRatings map[string]int                 `json:"staff_ratings"`
}

// EmptySnapshot returns a snapshot with initialized maps.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		Tickets:      make(map[string]domain.TicketRecord),
		StaffRatings: make(map[string]int),
	}
}

func (s *Snapshot) normalize() {
	if s.Tickets == nil {
		s.Tickets = make(map[string]domain.TicketRecord)
	}
	if s.StaffRatings == nil {
		s.StaffRatings = make(map[string]int)
	}
	for channelID, record := range s.Tickets {
		record.ChannelID = channelID
		s.Tickets[channelID] = record
	}
}

// Store persists snapshots. Load tolerates missing or malformed state by
// returning an empty snapshot; only unexpected I/O surfaces as an error,
// and callers are expected to swallow that too and start empty.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snapshot *Snapshot) error
	Close()
}

// NewStore builds the snapshot store selected by configuration.
func NewStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case config.StorageBackendFile:
		return NewFileStore(cfg.DataFile, logger), nil
	case config.StorageBackendRedis:
		return NewRedisStore(cfg.Redis, logger), nil
	case config.StorageBackendPostgres:
		return NewPostgresStore(ctx, cfg.Postgres, logger)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}
