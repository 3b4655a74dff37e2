// Package journal maintains the append-only, human-readable deployment log
// and the durable last-known-change marker.
package journal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dockhand-cd/dockhand/domain"
)

// Journal appends timestamped outcome lines to a fixed location. Entries are
// consumed by operators only; the agent never reads them back.
type Journal struct {
	path       string
	markerPath string
}

func New(path, markerPath string) *Journal {
	return &Journal{
		path:       path,
		markerPath: markerPath,
	}
}

// Append writes one outcome line to the journal
func (j *Journal) Append(outcome *domain.Outcome) error {
	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Debug("Failed to close journal", "error", closeErr)
		}
	}()

	if _, err := f.WriteString(formatEntry(outcome)); err != nil {
		return fmt.Errorf("failed to append to journal: %w", err)
	}
	return nil
}

func formatEntry(outcome *domain.Outcome) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s attempted=%t succeeded=%t",
		outcome.FinishedAt.UTC().Format(time.RFC3339),
		outcome.Kind,
		outcome.Attempted,
		outcome.Succeeded)

	if outcome.PreviousRevision != "" || outcome.NewRevision != "" {
		fmt.Fprintf(&b, " revision=%s..%s", short(outcome.PreviousRevision), short(outcome.NewRevision))
	}
	if outcome.Reason != "" {
		fmt.Fprintf(&b, " reason=%q", outcome.Reason)
	}
	b.WriteString("\n")

	return b.String()
}

func short(revision string) string {
	if len(revision) > 8 {
		return revision[:8]
	}
	if revision == "" {
		return "none"
	}
	return revision
}

// ChangeMarker is the durable last-known-change flag. It survives crashes so
// a later invocation can still see the latest known source status.
type ChangeMarker struct {
	Revision  string    `json:"revision"`
	Changed   bool      `json:"changed"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WriteChangeMarker persists the last-known-change flag for the given record
func (j *Journal) WriteChangeMarker(record *domain.ChangeRecord) error {
	marker := ChangeMarker{
		Revision:  record.NewRevision,
		Changed:   record.Changed,
		UpdatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(marker)
	if err != nil {
		return fmt.Errorf("failed to marshal change marker: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(j.markerPath), 0o755); err != nil {
		return fmt.Errorf("failed to create marker directory: %w", err)
	}
	if err := os.WriteFile(j.markerPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write change marker: %w", err)
	}
	return nil
}

// ReadChangeMarker returns the persisted marker, or nil when none exists
func (j *Journal) ReadChangeMarker() (*ChangeMarker, error) {
	data, err := os.ReadFile(j.markerPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read change marker: %w", err)
	}

	var marker ChangeMarker
	if err := json.Unmarshal(data, &marker); err != nil {
		return nil, fmt.Errorf("failed to parse change marker: %w", err)
	}
	return &marker, nil
}
