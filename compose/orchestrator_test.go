package compose

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockComposeRunner implements composeRunner for testing
type MockComposeRunner struct {
	mock.Mock
}

func (m *MockComposeRunner) ComposeFile() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockComposeRunner) Down(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockComposeRunner) Build(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockComposeRunner) Up(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockComposeRunner) Logs(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// MockRuntimeInspector implements runtimeInspector for testing
type MockRuntimeInspector struct {
	mock.Mock
}

func (m *MockRuntimeInspector) RunningContainers(ctx context.Context, projectName string) ([]string, error) {
	args := m.Called(ctx, projectName)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRuntimeInspector) PruneImages(ctx context.Context) {
	m.Called(ctx)
}

func newTestOrchestrator(runner *MockComposeRunner, inspector *MockRuntimeInspector) *Orchestrator {
	return &Orchestrator{
		project:        runner,
		docker:         inspector,
		projectName:    "shop",
		settleInterval: time.Millisecond,
	}
}

func TestOrchestrator_HasRunningContainers(t *testing.T) {
	tests := []struct {
		name       string
		containers []string
		want       bool
	}{
		{"running", []string{"/shop-web-1"}, true},
		{"none", []string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inspector := &MockRuntimeInspector{}
			inspector.On("RunningContainers", mock.Anything, "shop").Return(tt.containers, nil)

			o := newTestOrchestrator(&MockComposeRunner{}, inspector)
			got, err := o.HasRunningContainers(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOrchestrator_Deploy_Success(t *testing.T) {
	runner := &MockComposeRunner{}
	runner.On("ComposeFile").Return("/app/compose.yaml", nil)
	runner.On("Down", mock.Anything).Return("", nil)
	runner.On("Build", mock.Anything).Return("built", nil)
	runner.On("Up", mock.Anything).Return("started", nil)

	inspector := &MockRuntimeInspector{}
	inspector.On("RunningContainers", mock.Anything, "shop").Return([]string{"/shop-web-1"}, nil)
	inspector.On("PruneImages", mock.Anything).Return()

	o := newTestOrchestrator(runner, inspector)
	output, err := o.Deploy(context.Background())

	require.NoError(t, err)
	assert.Empty(t, output)
	runner.AssertExpectations(t)
	inspector.AssertExpectations(t)
}

func TestOrchestrator_Deploy_MissingComposeFileIsFatal(t *testing.T) {
	runner := &MockComposeRunner{}
	runner.On("ComposeFile").Return("", ErrMissingComposeFile)

	o := newTestOrchestrator(runner, &MockRuntimeInspector{})
	_, err := o.Deploy(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingComposeFile)
	runner.AssertNotCalled(t, "Down", mock.Anything)
	runner.AssertNotCalled(t, "Build", mock.Anything)
}

func TestOrchestrator_Deploy_StopFailureIsNonFatal(t *testing.T) {
	runner := &MockComposeRunner{}
	runner.On("ComposeFile").Return("/app/compose.yaml", nil)
	runner.On("Down", mock.Anything).Return("no such project", errors.New("exit status 1"))
	runner.On("Build", mock.Anything).Return("built", nil)
	runner.On("Up", mock.Anything).Return("started", nil)

	inspector := &MockRuntimeInspector{}
	inspector.On("RunningContainers", mock.Anything, "shop").Return([]string{"/shop-web-1"}, nil)
	inspector.On("PruneImages", mock.Anything).Return()

	o := newTestOrchestrator(runner, inspector)
	_, err := o.Deploy(context.Background())

	require.NoError(t, err, "a failed stop must not abort the deployment")
	runner.AssertCalled(t, "Build", mock.Anything)
}

func TestOrchestrator_Deploy_BuildFailureAborts(t *testing.T) {
	runner := &MockComposeRunner{}
	runner.On("ComposeFile").Return("/app/compose.yaml", nil)
	runner.On("Down", mock.Anything).Return("", nil)
	runner.On("Build", mock.Anything).Return("compile error", errors.New("exit status 1"))

	o := newTestOrchestrator(runner, &MockRuntimeInspector{})
	output, err := o.Deploy(context.Background())

	require.Error(t, err)
	assert.Equal(t, "compile error", output)
	runner.AssertNotCalled(t, "Up", mock.Anything)
}

func TestOrchestrator_Deploy_VerificationFailureCapturesLogs(t *testing.T) {
	runner := &MockComposeRunner{}
	runner.On("ComposeFile").Return("/app/compose.yaml", nil)
	runner.On("Down", mock.Anything).Return("", nil)
	runner.On("Build", mock.Anything).Return("built", nil)
	runner.On("Up", mock.Anything).Return("started", nil)
	runner.On("Logs", mock.Anything).Return("web exited with code 1", nil)

	inspector := &MockRuntimeInspector{}
	inspector.On("RunningContainers", mock.Anything, "shop").Return([]string{}, nil)

	o := newTestOrchestrator(runner, inspector)
	output, err := o.Deploy(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.Equal(t, "web exited with code 1", output)
	inspector.AssertNotCalled(t, "PruneImages", mock.Anything)
}

func TestOrchestrator_Deploy_CancelledDuringSettle(t *testing.T) {
	runner := &MockComposeRunner{}
	runner.On("ComposeFile").Return("/app/compose.yaml", nil)
	runner.On("Down", mock.Anything).Return("", nil)
	runner.On("Build", mock.Anything).Return("built", nil)
	runner.On("Up", mock.Anything).Return("started", nil)

	o := newTestOrchestrator(runner, &MockRuntimeInspector{})
	o.settleInterval = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Deploy(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
