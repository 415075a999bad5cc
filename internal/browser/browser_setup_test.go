// internal/browser/browser_setup_test.go
package browser_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/domq/api/schemas"
	"github.com/xkilldash9x/domq/internal/browser"
	"github.com/xkilldash9x/domq/internal/config"
)

// findChrome returns a Chrome binary to test against, or "" when none exists.
func findChrome() string {
	if p := os.Getenv("CHROME_PATH"); p != "" {
		return p
	}
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	return ""
}

// testFixture holds the environment for browser integration tests.
type testFixture struct {
	Manager *browser.Manager
	Logger  *zap.Logger
	Config  config.BrowserConfig
}

func setupBrowserManager(t *testing.T) *testFixture {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser integration test in short mode")
	}
	execPath := findChrome()
	if execPath == "" {
		t.Skip("no Chrome or Chromium binary found")
	}

	logger := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
	cfg := config.BrowserConfig{
		Engine:          config.EngineChromedp,
		Headless:        true,
		DisableCache:    true,
		IgnoreTLSErrors: true,
		ExecPath:        execPath,
		Stealth:         true,
		Persona:         schemas.DefaultPersona,
		LaunchTimeout:   45 * time.Second,
	}

	mgr, err := browser.NewManager(context.Background(), cfg, logger)
	require.NoError(t, err, "failed to launch browser")

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = mgr.Shutdown(ctx)
	})
	return &testFixture{Manager: mgr, Logger: logger, Config: cfg}
}

// openPage starts a server for html and navigates a new tab to it.
func (f *testFixture) openPage(t *testing.T, html string) (*browser.Tab, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(html))
	}))
	t.Cleanup(server.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tab, err := f.Manager.NewTab(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tab.Close() })

	require.NoError(t, tab.Navigate(ctx, server.URL+"/app/index.html"))
	return tab, server
}
