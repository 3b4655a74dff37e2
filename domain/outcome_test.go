package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcomeKind_String(t *testing.T) {
	tests := []struct {
		kind OutcomeKind
		want string
	}{
		{OutcomeSkippedLocked, "skipped-locked"},
		{OutcomeSkippedNoChange, "skipped-no-change"},
		{OutcomeDeploySucceeded, "deployed-success"},
		{OutcomeDeployFailed, "deployed-failure"},
		{OutcomeSyncFailed, "sync-failure"},
		{OutcomeUnknown, "unknown"},
		{OutcomeKind(99), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.String())
	}
}

func TestParseOutcomeKind_RoundTrip(t *testing.T) {
	kinds := []OutcomeKind{
		OutcomeSkippedLocked,
		OutcomeSkippedNoChange,
		OutcomeDeploySucceeded,
		OutcomeDeployFailed,
		OutcomeSyncFailed,
	}

	for _, kind := range kinds {
		parsed, err := ParseOutcomeKind(kind.String())
		require.NoError(t, err)
		assert.Equal(t, kind, parsed)
	}
}

func TestParseOutcomeKind_Invalid(t *testing.T) {
	_, err := ParseOutcomeKind("bogus")
	assert.Error(t, err)
}

func TestOutcome_ExitCode(t *testing.T) {
	tests := []struct {
		kind OutcomeKind
		want int
	}{
		{OutcomeSkippedLocked, 0},
		{OutcomeSkippedNoChange, 0},
		{OutcomeDeploySucceeded, 0},
		{OutcomeDeployFailed, 1},
		{OutcomeSyncFailed, 1},
	}

	for _, tt := range tests {
		o := &Outcome{Kind: tt.kind}
		assert.Equal(t, tt.want, o.ExitCode(), "exit code for %s", tt.kind)
	}
}
