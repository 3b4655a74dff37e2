package domain

import "fmt"

// OutcomeKind classifies the terminal state of one agent invocation.
type OutcomeKind int

const (
	OutcomeUnknown OutcomeKind = iota
	OutcomeSkippedLocked
	OutcomeSkippedNoChange
	OutcomeDeploySucceeded
	OutcomeDeployFailed
	OutcomeSyncFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSkippedLocked:
		return "skipped-locked"
	case OutcomeSkippedNoChange:
		return "skipped-no-change"
	case OutcomeDeploySucceeded:
		return "deployed-success"
	case OutcomeDeployFailed:
		return "deployed-failure"
	case OutcomeSyncFailed:
		return "sync-failure"
	case OutcomeUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

func ParseOutcomeKind(s string) (OutcomeKind, error) {
	switch s {
	case "skipped-locked":
		return OutcomeSkippedLocked, nil
	case "skipped-no-change":
		return OutcomeSkippedNoChange, nil
	case "deployed-success":
		return OutcomeDeploySucceeded, nil
	case "deployed-failure":
		return OutcomeDeployFailed, nil
	case "sync-failure":
		return OutcomeSyncFailed, nil
	case "unknown":
		return OutcomeUnknown, nil
	default:
		return OutcomeUnknown, fmt.Errorf("invalid outcome kind: %q", s)
	}
}
