// Package store persists deployment history records in a SQLite database.
// The agent only ever appends; history is read by operators through the CLI
// and the status API, never replayed for deployment decisions.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dockhand-cd/dockhand/domain"
)

// DeploymentRecord is the database model for one agent invocation outcome
type DeploymentRecord struct {
	ID               string `gorm:"primaryKey"`
	Kind             string
	Attempted        bool
	Succeeded        bool
	Reason           string
	PreviousRevision string
	NewRevision      string
	Output           string
	StartedAt        time.Time
	FinishedAt       time.Time
	CreatedAt        time.Time
}

func (DeploymentRecord) TableName() string {
	return "deployments"
}

// Store is the deployment history store
type Store struct {
	db *gorm.DB
}

// Open opens (creating if necessary) the history database at the given path.
// Use ":memory:" for an in-memory database in tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if path != ":memory:" {
		pragmas := `
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous  = NORMAL;`
		if err := db.Exec(pragmas).Error; err != nil {
			return nil, fmt.Errorf("failed to configure history database: %w", err)
		}
	}

	if err := db.AutoMigrate(&DeploymentRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}

	slog.Debug("History database opened", "path", path)
	return &Store{db: db}, nil
}

// Record appends one outcome to the history. Records are never mutated
// after creation.
func (s *Store) Record(outcome *domain.Outcome) error {
	record := &DeploymentRecord{
		ID:               outcome.ID.String(),
		Kind:             outcome.Kind.String(),
		Attempted:        outcome.Attempted,
		Succeeded:        outcome.Succeeded,
		Reason:           outcome.Reason,
		PreviousRevision: outcome.PreviousRevision,
		NewRevision:      outcome.NewRevision,
		Output:           outcome.Output,
		StartedAt:        outcome.StartedAt,
		FinishedAt:       outcome.FinishedAt,
	}

	if err := s.db.Create(record).Error; err != nil {
		return fmt.Errorf("failed to record deployment outcome: %w", err)
	}
	return nil
}

// List returns the most recent outcomes, newest first
func (s *Store) List(limit int) ([]*domain.Outcome, error) {
	if limit <= 0 {
		limit = 20
	}

	var records []DeploymentRecord
	err := s.db.Order("started_at DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list deployment outcomes: %w", err)
	}

	outcomes := make([]*domain.Outcome, 0, len(records))
	for i := range records {
		outcome, err := toOutcome(&records[i])
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// Latest returns the most recent outcome, or nil when no history exists
func (s *Store) Latest() (*domain.Outcome, error) {
	outcomes, err := s.List(1)
	if err != nil {
		return nil, err
	}
	if len(outcomes) == 0 {
		return nil, nil
	}
	return outcomes[0], nil
}

func toOutcome(record *DeploymentRecord) (*domain.Outcome, error) {
	id, err := uuid.Parse(record.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid deployment record ID %q: %w", record.ID, err)
	}

	kind, err := domain.ParseOutcomeKind(record.Kind)
	if err != nil {
		return nil, err
	}

	return &domain.Outcome{
		ID:               id,
		Kind:             kind,
		Attempted:        record.Attempted,
		Succeeded:        record.Succeeded,
		Reason:           record.Reason,
		PreviousRevision: record.PreviousRevision,
		NewRevision:      record.NewRevision,
		Output:           record.Output,
		StartedAt:        record.StartedAt,
		FinishedAt:       record.FinishedAt,
	}, nil
}

// gormLogLevel maps the application log level to the corresponding GORM level
func gormLogLevel() logger.LogLevel {
	l := slog.Default()

	switch {
	case l.Enabled(context.TODO(), slog.LevelDebug):
		return logger.Info // Show SQL queries only when debug logging is enabled
	case l.Enabled(context.TODO(), slog.LevelWarn):
		return logger.Warn
	case l.Enabled(context.TODO(), slog.LevelError):
		return logger.Error
	default:
		return logger.Silent
	}
}
