package output

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dockhand-cd/dockhand/compose"
	"github.com/dockhand-cd/dockhand/git"
)

func TestFormatErrorForUser(t *testing.T) {
	tests := []struct {
		name        string
		inputError  error
		expectedMsg string
	}{
		{
			name:        "nil error",
			inputError:  nil,
			expectedMsg: "",
		},
		{
			name:        "source unavailable",
			inputError:  fmt.Errorf("%w: fetch: connection refused", git.ErrSourceUnavailable),
			expectedMsg: "the remote repository is unreachable - please check the URL and your network",
		},
		{
			name:        "source corrupt",
			inputError:  fmt.Errorf("%w: not a git repository", git.ErrSourceCorrupt),
			expectedMsg: "the deploy checkout is corrupt - remove the app directory and run again",
		},
		{
			name:        "missing compose file",
			inputError:  compose.ErrMissingComposeFile,
			expectedMsg: "no compose file found in the repository root",
		},
		{
			name:        "invalid compose file",
			inputError:  fmt.Errorf("%w: no services defined", compose.ErrInvalidComposeFile),
			expectedMsg: "the compose file is invalid - it must define at least one service",
		},
		{
			name:        "verification failed",
			inputError:  compose.ErrVerificationFailed,
			expectedMsg: "the application did not come up after deployment - see the captured logs",
		},
		{
			name:        "ssh key authentication failed",
			inputError:  errors.New("Permission denied (publickey)"),
			expectedMsg: "ssh key authentication failed - please check your private key",
		},
		{
			name:        "git authentication failed",
			inputError:  errors.New("authentication failed"),
			expectedMsg: "git authentication failed - please check your credentials",
		},
		{
			name:        "repository not found",
			inputError:  errors.New("repository not found"),
			expectedMsg: "git repository not found - please check the URL and your access permissions",
		},
		{
			name:        "unknown error passes through",
			inputError:  errors.New("some random error"),
			expectedMsg: "some random error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatErrorForUser(tt.inputError)
			assert.Equal(t, tt.expectedMsg, result)
		})
	}
}
