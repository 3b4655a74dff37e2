// Package agent implements the deployment agent loop: acquire the lock, sync
// the source, decide, deploy, report. One invocation runs the state machine
// exactly once; overlap protection comes from the deployment lock.
package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dockhand-cd/dockhand/config"
	"github.com/dockhand-cd/dockhand/domain"
)

// Syncer updates the deploy checkout and reports whether the revision changed
type Syncer interface {
	Sync(ctx context.Context) (*domain.ChangeRecord, error)
}

// Locker is the mutual-exclusion guard serializing deployment attempts
type Locker interface {
	TryAcquire() (bool, error)
	Release() error
}

// Orchestrator executes deployments against the container runtime
type Orchestrator interface {
	HasRunningContainers(ctx context.Context) (bool, error)
	Deploy(ctx context.Context) (string, error)
}

// Reporter records terminal outcomes durably
type Reporter interface {
	Append(outcome *domain.Outcome) error
	WriteChangeMarker(record *domain.ChangeRecord) error
}

// Recorder persists outcomes to the history store
type Recorder interface {
	Record(outcome *domain.Outcome) error
}

// Agent orchestrates one deployment invocation
type Agent struct {
	config       *config.Config
	syncer       Syncer
	locker       Locker
	orchestrator Orchestrator
	reporter     Reporter
	recorder     Recorder
}

func New(
	cfg *config.Config,
	syncer Syncer,
	locker Locker,
	orchestrator Orchestrator,
	reporter Reporter,
	recorder Recorder,
) *Agent {
	return &Agent{
		config:       cfg,
		syncer:       syncer,
		locker:       locker,
		orchestrator: orchestrator,
		reporter:     reporter,
		recorder:     recorder,
	}
}

// Run executes one invocation of the agent and returns its terminal outcome.
// All failures are folded into the outcome; the process exit status is
// derived from it. The lock is released on every exit path.
func (a *Agent) Run(ctx context.Context) *domain.Outcome {
	outcome := &domain.Outcome{
		ID:        uuid.New(),
		StartedAt: time.Now().UTC(),
	}

	acquired, err := a.locker.TryAcquire()
	if err != nil {
		outcome.Kind = domain.OutcomeSyncFailed
		outcome.Reason = "failed to acquire deployment lock: " + err.Error()
		return a.report(outcome)
	}
	if !acquired {
		outcome.Kind = domain.OutcomeSkippedLocked
		outcome.Reason = "another deployment is in progress"
		return a.report(outcome)
	}

	// Scoped acquisition: the release fires on every exit path past this
	// point, including panics in the deployment logic
	defer func() {
		if err := a.locker.Release(); err != nil {
			slog.Error("Failed to release deployment lock", "error", err)
		}
	}()

	record, err := a.syncer.Sync(ctx)
	if err != nil {
		outcome.Kind = domain.OutcomeSyncFailed
		outcome.Reason = err.Error()
		slog.Error("Source sync failed", "error", err)
		return a.report(outcome)
	}

	outcome.PreviousRevision = record.PreviousRevision
	outcome.NewRevision = record.NewRevision

	if err := a.reporter.WriteChangeMarker(record); err != nil {
		// The marker is crash-recovery bookkeeping; its loss must not fail
		// an otherwise healthy invocation
		slog.Warn("Failed to persist change marker", "error", err)
	}

	deploy, reason := a.decide(ctx, record)
	if !deploy {
		outcome.Kind = domain.OutcomeSkippedNoChange
		outcome.Reason = reason
		slog.Info("No deployment needed",
			"revision", record.NewRevision,
			"reason", reason)
		return a.report(outcome)
	}

	slog.Info("Deployment decision",
		"reason", reason,
		"from_revision", record.PreviousRevision,
		"to_revision", record.NewRevision)

	outcome.Attempted = true
	outcome.Reason = reason

	output, err := a.orchestrator.Deploy(ctx)
	if err != nil {
		outcome.Kind = domain.OutcomeDeployFailed
		outcome.Reason = reason + ": " + err.Error()
		outcome.Output = output
		slog.Error("Deployment failed",
			"revision", record.NewRevision,
			"error", err)
		return a.report(outcome)
	}

	outcome.Kind = domain.OutcomeDeploySucceeded
	outcome.Succeeded = true
	slog.Info("Deployment succeeded",
		"revision", record.NewRevision,
		"web_port", a.config.WebPort)

	return a.report(outcome)
}

// decide computes the deploy decision for a synced checkout. "No containers
// running" forces a deploy even without a source change: the previous
// deployment state may have been lost (host reboot, manual stop), and the
// agent's job is to converge the host on the current revision.
func (a *Agent) decide(ctx context.Context, record *domain.ChangeRecord) (bool, string) {
	if record.Changed {
		if record.FirstRun {
			return true, "initial clone"
		}
		return true, "change detected"
	}

	if a.config.ForceRebuild {
		return true, "rebuild forced"
	}

	running, err := a.orchestrator.HasRunningContainers(ctx)
	if err != nil {
		slog.Warn("Failed to inspect running containers, deploying to converge", "error", err)
		return true, "runtime state unknown"
	}
	if !running {
		return true, "no running containers"
	}

	return false, "no change detected"
}

// report finalizes the outcome and records it in the journal and the history
// store. Recording failures are logged, never escalated: the outcome itself
// is what the caller acts on.
func (a *Agent) report(outcome *domain.Outcome) *domain.Outcome {
	outcome.FinishedAt = time.Now().UTC()

	if err := a.reporter.Append(outcome); err != nil {
		slog.Error("Failed to append outcome to journal", "error", err)
	}
	if err := a.recorder.Record(outcome); err != nil {
		slog.Error("Failed to record outcome in history store", "error", err)
	}

	slog.Info("Invocation finished",
		"outcome", outcome.Kind.String(),
		"attempted", outcome.Attempted,
		"succeeded", outcome.Succeeded,
		"duration", outcome.FinishedAt.Sub(outcome.StartedAt))

	return outcome
}
