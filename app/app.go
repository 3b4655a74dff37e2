// Package app provides the application context for Dockhand, wiring the
// configuration, history store, and deployment services together.
package app

import (
	"os"

	"github.com/dockhand-cd/dockhand/agent"
	"github.com/dockhand-cd/dockhand/compose"
	"github.com/dockhand-cd/dockhand/config"
	"github.com/dockhand-cd/dockhand/git"
	"github.com/dockhand-cd/dockhand/journal"
	"github.com/dockhand-cd/dockhand/lock"
	"github.com/dockhand-cd/dockhand/secret"
	"github.com/dockhand-cd/dockhand/store"
)

var (
	// Version is set at build time via -ldflags
	Version = "dev"

	appConfig       *config.Config
	historyStore    *store.Store
	deployJournal   *journal.Journal
	dockerClient    *compose.DockerClient
	deployAgent     *agent.Agent
	agentOverridden bool
)

// InitializeWithConfig initializes the app with a pre-configured Config
func InitializeWithConfig(cfg *config.Config) error {
	appConfig = cfg

	if err := os.MkdirAll(appConfig.DataDir, 0o755); err != nil {
		return err
	}

	var err error
	historyStore, err = store.Open(appConfig.DatabasePath)
	if err != nil {
		return err
	}

	deployJournal = journal.New(appConfig.JournalPath, appConfig.MarkerPath)

	gitAuth, err := secret.ResolveGitAuth(appConfig)
	if err != nil {
		return err
	}

	dockerClient, err = compose.NewDockerClient(appConfig.DockerHost)
	if err != nil {
		return err
	}

	project := compose.NewProject(appConfig)

	if !agentOverridden {
		deployAgent = agent.New(
			appConfig,
			git.NewSyncService(appConfig, gitAuth),
			lock.New(appConfig.LockPath),
			compose.NewOrchestrator(project, dockerClient),
			deployJournal,
			historyStore,
		)
	}
	return nil
}

func GetConfig() *config.Config {
	return appConfig
}

func GetStore() *store.Store {
	return historyStore
}

func GetJournal() *journal.Journal {
	return deployJournal
}

func GetDockerClient() *compose.DockerClient {
	return dockerClient
}

func GetAgent() *agent.Agent {
	return deployAgent
}

// SetAgentForTesting allows overriding the deployment agent for testing purposes
func SetAgentForTesting(a *agent.Agent) {
	deployAgent = a
	agentOverridden = true
}
