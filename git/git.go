// Package git implements source synchronization for the deploy checkout. The
// checkout is deploy-only: the remote branch tip is always treated as truth,
// and local divergence is discarded on every sync.
package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"github.com/dockhand-cd/dockhand/config"
	"github.com/dockhand-cd/dockhand/domain"
)

var (
	// ErrSourceUnavailable indicates the remote could not be reached and no
	// usable local checkout exists for the requested operation.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrSourceCorrupt indicates a local checkout exists but is not a valid
	// repository of the expected branch.
	ErrSourceCorrupt = errors.New("source corrupt")
)

// SyncService clones or fast-forwards the deploy checkout to the latest
// remote revision
type SyncService struct {
	config  *config.Config
	gitAuth *domain.GitAuthConfig
}

func NewSyncService(cfg *config.Config, gitAuth *domain.GitAuthConfig) *SyncService {
	return &SyncService{
		config:  cfg,
		gitAuth: gitAuth,
	}
}

// Sync brings the checkout to the remote tip of the configured branch and
// reports whether the revision changed. A first-run clone always reports a
// change. Network failures leave the previous local state untouched.
func (s *SyncService) Sync(ctx context.Context) (*domain.ChangeRecord, error) {
	if !s.checkoutExists() {
		return s.clone(ctx)
	}
	return s.update(ctx)
}

func (s *SyncService) checkoutExists() bool {
	_, err := os.Stat(filepath.Join(s.config.AppDir, git.GitDirName))
	return err == nil
}

func (s *SyncService) clone(ctx context.Context) (*domain.ChangeRecord, error) {
	slog.Info("Cloning repository",
		"git_url", s.config.RepoURL,
		"git_branch", s.config.Branch,
		"working_dir", s.config.AppDir)

	authMethod, err := s.createAuthMethod()
	if err != nil {
		return nil, fmt.Errorf("failed to create auth method: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.GitTimeout)
	defer cancel()

	cloneOptions := &git.CloneOptions{
		URL:           s.config.RepoURL,
		SingleBranch:  true,
		ReferenceName: plumbing.NewBranchReferenceName(s.config.Branch),
		Auth:          authMethod,
	}

	repo, err := git.PlainCloneContext(ctx, s.config.AppDir, false, cloneOptions)
	if err != nil {
		slog.Error("Service operation failed",
			"layer", "git",
			"operation", "git_clone",
			"git_url", s.config.RepoURL,
			"git_branch", s.config.Branch,
			"working_dir", s.config.AppDir,
			"error", err)
		return nil, fmt.Errorf("%w: failed to clone repository: %v", ErrSourceUnavailable, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get HEAD after clone: %v", ErrSourceCorrupt, err)
	}

	slog.Info("Repository cloned successfully",
		"git_url", s.config.RepoURL,
		"git_branch", s.config.Branch,
		"revision", head.Hash().String())

	return &domain.ChangeRecord{
		NewRevision: head.Hash().String(),
		Changed:     true,
		FirstRun:    true,
	}, nil
}

func (s *SyncService) update(ctx context.Context) (*domain.ChangeRecord, error) {
	workingDir := s.config.AppDir

	repo, err := git.PlainOpen(workingDir)
	if err != nil {
		slog.Error("Service operation failed",
			"layer", "git",
			"operation", "git_open",
			"working_dir", workingDir,
			"error", err)
		return nil, fmt.Errorf("%w: failed to open repository: %v", ErrSourceCorrupt, err)
	}

	previous, err := s.head(repo)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get HEAD: %v", ErrSourceCorrupt, err)
	}

	if err := s.fetch(ctx, repo); err != nil {
		return nil, err
	}

	remoteRef := plumbing.ReferenceName(fmt.Sprintf("refs/remotes/origin/%s", s.config.Branch))
	ref, err := repo.Reference(remoteRef, true)
	if err != nil {
		slog.Error("Service operation failed",
			"layer", "git",
			"operation", "git_get_remote_ref",
			"git_branch", s.config.Branch,
			"working_dir", workingDir,
			"remote_ref", remoteRef.String(),
			"error", err)
		return nil, fmt.Errorf("%w: failed to get remote reference %s: %v", ErrSourceCorrupt, remoteRef, err)
	}

	newRevision := ref.Hash().String()

	if s.config.DiscardLocalChanges {
		if err := s.discardLocalChanges(repo, ref.Hash()); err != nil {
			return nil, err
		}
	} else if err := s.checkoutKeepingLocalChanges(repo, ref.Hash()); err != nil {
		return nil, err
	}

	record := &domain.ChangeRecord{
		PreviousRevision: previous,
		NewRevision:      newRevision,
		Changed:          previous != newRevision,
	}

	slog.Info("Repository synced",
		"git_branch", s.config.Branch,
		"working_dir", workingDir,
		"from_commit", previous,
		"to_commit", newRevision,
		"changed", record.Changed)

	return record, nil
}

// fetch force-fetches the configured branch so history rewrites on the
// remote are picked up
func (s *SyncService) fetch(ctx context.Context, repo *git.Repository) error {
	authMethod, err := s.createAuthMethod()
	if err != nil {
		return fmt.Errorf("failed to create auth method: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.GitTimeout)
	defer cancel()

	fetchOptions := &git.FetchOptions{
		Auth: authMethod,
		RefSpecs: []gitconfig.RefSpec{
			gitconfig.RefSpec(fmt.Sprintf("+refs/heads/%s:refs/remotes/origin/%s", s.config.Branch, s.config.Branch)),
		},
	}

	err = repo.FetchContext(ctx, fetchOptions)
	if err != nil && err != git.NoErrAlreadyUpToDate {
		slog.Error("Service operation failed",
			"layer", "git",
			"operation", "git_fetch",
			"git_branch", s.config.Branch,
			"working_dir", s.config.AppDir,
			"error", err)
		return fmt.Errorf("%w: failed to fetch: %v", ErrSourceUnavailable, err)
	}

	if err == git.NoErrAlreadyUpToDate {
		slog.Debug("Repository already up to date",
			"git_branch", s.config.Branch,
			"working_dir", s.config.AppDir)
	}

	return nil
}

// discardLocalChanges resets the worktree to the given commit and removes
// untracked files so the checkout exactly matches the remote tip
func (s *SyncService) discardLocalChanges(repo *git.Repository, hash plumbing.Hash) error {
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("%w: failed to get worktree: %v", ErrSourceCorrupt, err)
	}

	err = worktree.Reset(&git.ResetOptions{
		Mode:   git.HardReset,
		Commit: hash,
	})
	if err != nil {
		slog.Error("Service operation failed",
			"layer", "git",
			"operation", "git_reset",
			"working_dir", s.config.AppDir,
			"target_commit", hash.String(),
			"error", err)
		return fmt.Errorf("failed to reset worktree to %s: %w", hash, err)
	}

	err = worktree.Clean(&git.CleanOptions{Dir: true})
	if err != nil {
		return fmt.Errorf("failed to clean worktree: %w", err)
	}

	return nil
}

// checkoutKeepingLocalChanges moves the checkout to the given commit while
// preserving local modifications, so the reported revision always matches
// what the worktree is based on even when the discard policy is off
func (s *SyncService) checkoutKeepingLocalChanges(repo *git.Repository, hash plumbing.Hash) error {
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("%w: failed to get worktree: %v", ErrSourceCorrupt, err)
	}

	err = worktree.Checkout(&git.CheckoutOptions{
		Hash: hash,
		Keep: true,
	})
	if err != nil {
		slog.Error("Service operation failed",
			"layer", "git",
			"operation", "git_checkout",
			"working_dir", s.config.AppDir,
			"target_commit", hash.String(),
			"error", err)
		return fmt.Errorf("failed to checkout %s: %w", hash, err)
	}

	return nil
}

func (s *SyncService) head(repo *git.Repository) (string, error) {
	ref, err := repo.Head()
	if err != nil {
		return "", err
	}
	return ref.Hash().String(), nil
}

// CurrentRevision returns the revision the checkout is currently at
func (s *SyncService) CurrentRevision() (string, error) {
	repo, err := git.PlainOpen(s.config.AppDir)
	if err != nil {
		return "", fmt.Errorf("%w: failed to open repository: %v", ErrSourceCorrupt, err)
	}
	return s.head(repo)
}

// createAuthMethod creates a transport.AuthMethod from the configured GitAuthConfig
func (s *SyncService) createAuthMethod() (transport.AuthMethod, error) {
	if s.gitAuth == nil {
		return nil, nil // Public repo
	}

	// HTTP authentication (GitHub tokens, etc.)
	if s.gitAuth.HTTPAuth != nil {
		return &http.BasicAuth{
			Username: s.gitAuth.HTTPAuth.Username,
			Password: s.gitAuth.HTTPAuth.Password,
		}, nil
	}

	// SSH key authentication
	if s.gitAuth.SSHAuth != nil {
		user := s.gitAuth.SSHAuth.User
		if user == "" {
			user = "git" // Default for Git operations
		}
		return ssh.NewPublicKeys(user, []byte(s.gitAuth.SSHAuth.PrivateKey), "")
	}

	// Neither auth method configured = public repo
	return nil, nil
}
