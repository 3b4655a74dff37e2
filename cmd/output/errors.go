package output

import (
	"errors"
	"strings"

	"github.com/dockhand-cd/dockhand/compose"
	"github.com/dockhand-cd/dockhand/git"
)

// ErrAlreadyReported marks an error whose message was already printed by the
// command itself. Execute exits non-zero without printing it again.
var ErrAlreadyReported = errors.New("already reported")

// FormatErrorForUser converts technical errors to user-friendly messages.
// This should only be called at the CLI boundary.
func FormatErrorForUser(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, git.ErrSourceUnavailable):
		return "the remote repository is unreachable - please check the URL and your network"
	case errors.Is(err, git.ErrSourceCorrupt):
		return "the deploy checkout is corrupt - remove the app directory and run again"
	case errors.Is(err, compose.ErrMissingComposeFile):
		return "no compose file found in the repository root"
	case errors.Is(err, compose.ErrInvalidComposeFile):
		return "the compose file is invalid - it must define at least one service"
	case errors.Is(err, compose.ErrVerificationFailed):
		return "the application did not come up after deployment - see the captured logs"
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "permission denied (publickey)"):
		return "ssh key authentication failed - please check your private key"
	case strings.Contains(errStr, "authentication failed"):
		return "git authentication failed - please check your credentials"
	case strings.Contains(errStr, "invalid credentials"):
		return "invalid git credentials - please check your username and token"
	case strings.Contains(errStr, "repository not found"):
		return "git repository not found - please check the URL and your access permissions"
	default:
		return err.Error()
	}
}
