// Package domain provides core domain types for Dockhand.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChangeRecord describes the result of a single source sync: the revision the
// checkout was at before the sync, the revision it is at now, and whether the
// two differ. A first-run clone always reports Changed.
type ChangeRecord struct {
	PreviousRevision string
	NewRevision      string
	Changed          bool
	FirstRun         bool
}

// Outcome is the terminal result of one agent invocation. It is written to
// the journal and the history store and never mutated afterwards.
type Outcome struct {
	ID               uuid.UUID
	Kind             OutcomeKind
	Attempted        bool
	Succeeded        bool
	Reason           string
	PreviousRevision string
	NewRevision      string
	// Output holds captured compose/runtime output for failed deployments.
	Output     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// ExitCode maps an outcome to the process exit status: zero for anything
// that is not a failed sync or a failed deployment attempt.
func (o *Outcome) ExitCode() int {
	switch o.Kind {
	case OutcomeDeployFailed, OutcomeSyncFailed:
		return 1
	default:
		return 0
	}
}

// GitAuthConfig holds Git authentication configuration for the deploy repository.
type GitAuthConfig struct {
	HTTPAuth *GitHTTPAuthConfig
	SSHAuth  *GitSSHAuthConfig
}

// GitHTTPAuthConfig for HTTP basic authentication (GitHub tokens, etc.)
type GitHTTPAuthConfig struct {
	Username string // "token" for GitHub
	Password string // actual token/password
}

// GitSSHAuthConfig for passwordless SSH key authentication
type GitSSHAuthConfig struct {
	PrivateKey string // PEM-encoded private key as string
	User       string // SSH user (default: "git")
}
