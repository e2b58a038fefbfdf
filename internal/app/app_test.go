package app

import (
	"context"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/menu-importer/internal/config"
	importermocks "github.com/stacklok/menu-importer/internal/importer/mocks"
	"github.com/stacklok/menu-importer/internal/status"
	"github.com/stacklok/menu-importer/internal/storage/memory"
)

// mockCoordinator implements the coordinator.Coordinator interface for testing
type mockCoordinator struct {
	mu          sync.Mutex
	startCalled bool
	stopCalled  bool
	startErr    error
	stopErr     error
}

func (m *mockCoordinator) Start(ctx context.Context) error {
	m.mu.Lock()
	m.startCalled = true
	err := m.startErr
	m.mu.Unlock()

	if err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func (m *mockCoordinator) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalled = true
	return m.stopErr
}

func (m *mockCoordinator) wasStartCalled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startCalled
}

func (m *mockCoordinator) wasStopCalled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCalled
}

// createTestApp creates an ImporterApp with mocked components for testing
// This directly constructs the ImporterApp without using NewImporterApp to avoid
// opening real storage
func createTestApp(t *testing.T, ctrl *gomock.Controller, addr string) *ImporterApp {
	t.Helper()

	cfg := createTestAppConfig()
	components := &AppComponents{
		Importer:          importermocks.NewMockService(ctrl),
		Coordinator:       &mockCoordinator{},
		Repository:        memory.NewRepository(),
		StatusPersistence: status.NewFileStatusPersistence(t.TempDir()),
	}

	ctx := context.Background()
	appCtx, cancel := context.WithCancel(ctx)

	// Build the HTTP server with test configuration
	appCfg := &importerAppConfig{
		config:         cfg,
		address:        addr,
		requestTimeout: 10 * time.Second,
		readTimeout:    10 * time.Second,
		writeTimeout:   15 * time.Second,
		idleTimeout:    60 * time.Second,
	}

	server, err := buildHTTPServer(ctx, appCfg, components)
	require.NoError(t, err)

	return &ImporterApp{
		config:     cfg,
		components: components,
		httpServer: server,
		ctx:        appCtx,
		cancelFunc: cancel,
	}
}

// createTestAppConfig creates a minimal valid config for testing
func createTestAppConfig() *config.Config {
	return &config.Config{
		DataDir: "/tmp/menu-importer-test",
		Storage: &config.StorageConfig{Type: config.StorageTypeMemory},
		Menus: []config.MenuConfig{
			{
				Endpoint: "https://cms.example.com/jsonapi/menu_items/main",
				Interval: "30m",
			},
		},
	}
}

func TestImporterApp_Start(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		addr string
	}{
		{name: "successful start with ephemeral port", addr: ":0"},
		{name: "successful start on localhost", addr: "127.0.0.1:0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			app := createTestApp(t, ctrl, tt.addr)

			// Start server in goroutine
			errChan := make(chan error, 1)
			go func() {
				errChan <- app.Start()
			}()

			mockCoord := app.components.Coordinator.(*mockCoordinator)
			require.Eventually(t, mockCoord.wasStartCalled, 5*time.Second, 10*time.Millisecond,
				"import coordinator should be started")

			// Stop the server
			require.NoError(t, app.Stop(5*time.Second))

			// Check Start() result
			select {
			case startErr := <-errChan:
				require.NoError(t, startErr)
			case <-time.After(5 * time.Second):
				t.Fatal("Start() did not return after Stop()")
			}
		})
	}
}

func TestImporterApp_StartWithListener(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	app := createTestApp(t, ctrl, ":0")

	// Create a listener to get an actual port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	actualAddr := listener.Addr().String()
	listener.Close()

	// Update the server address to use the now-free port
	app.httpServer.Addr = actualAddr

	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Start()
	}()

	// Wait until the health endpoint answers
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + actualAddr + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	// Menus are readable through the running server
	resp, err := http.Get("http://" + actualAddr + "/v1/menus/main")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, app.Stop(5*time.Second))

	select {
	case startErr := <-errChan:
		require.NoError(t, startErr)
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after Stop()")
	}
}

func TestImporterApp_Stop(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		timeout time.Duration
		start   bool
	}{
		{name: "graceful shutdown with normal timeout", timeout: 5 * time.Second, start: true},
		{name: "graceful shutdown with short timeout", timeout: time.Second, start: true},
		{name: "stop without starting first", timeout: 5 * time.Second, start: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			app := createTestApp(t, ctrl, "127.0.0.1:0")
			mockCoord := app.components.Coordinator.(*mockCoordinator)

			if tt.start {
				go func() {
					_ = app.Start()
				}()
				require.Eventually(t, mockCoord.wasStartCalled, 5*time.Second, 10*time.Millisecond)
			}

			require.NoError(t, app.Stop(tt.timeout))
			assert.True(t, mockCoord.wasStopCalled(), "import coordinator Stop should be called")
		})
	}
}

func TestImporterApp_StopIdempotent(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	app := createTestApp(t, ctrl, "127.0.0.1:0")

	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Start()
	}()
	mockCoord := app.components.Coordinator.(*mockCoordinator)
	require.Eventually(t, mockCoord.wasStartCalled, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, app.Stop(5*time.Second))

	select {
	case <-errChan:
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after first Stop()")
	}

	// A second stop must not panic
	_ = app.Stop(5 * time.Second)
}

func TestImporterApp_StopWithNilCancelFunc(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	app := createTestApp(t, ctrl, ":0")
	app.cancelFunc = nil

	require.NoError(t, app.Stop(5*time.Second))
}

func TestImporterApp_Getters(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	app := createTestApp(t, ctrl, ":0")

	require.NotNil(t, app.GetConfig())
	assert.Equal(t, config.StorageTypeMemory, app.GetConfig().GetStorageType())
	assert.Equal(t, ":0", app.GetHTTPServer().Addr)
	assert.NotNil(t, app.GetComponents().Importer)
}
