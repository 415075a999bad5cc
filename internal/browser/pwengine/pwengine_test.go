package pwengine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/domq/api/schemas"
	"github.com/xkilldash9x/domq/internal/config"
	"github.com/xkilldash9x/domq/pkg/query"
)

func TestLaunchOptions(t *testing.T) {
	cfg := config.BrowserConfig{
		Headless:      true,
		Args:          []string{"--mute-audio"},
		ExecPath:      "/opt/chromium/chrome",
		LaunchTimeout: 10 * time.Second,
	}
	opts := launchOptions(context.Background(), cfg)

	require.NotNil(t, opts.Headless)
	assert.True(t, *opts.Headless)
	assert.Equal(t, []string{"--disable-blink-features=AutomationControlled", "--mute-audio"}, opts.Args)
	require.NotNil(t, opts.ExecutablePath)
	assert.Equal(t, "/opt/chromium/chrome", *opts.ExecutablePath)
	require.NotNil(t, opts.Timeout)
	assert.Equal(t, float64(10000), *opts.Timeout)

	cfg.ExecPath = ""
	assert.Nil(t, launchOptions(context.Background(), cfg).ExecutablePath)
}

func TestContextOptions(t *testing.T) {
	t.Run("Stealth", func(t *testing.T) {
		opts := contextOptions(config.BrowserConfig{Stealth: true, IgnoreTLSErrors: true, Persona: schemas.DefaultPersona})
		require.NotNil(t, opts.UserAgent)
		assert.Equal(t, schemas.DefaultPersona.UserAgent, *opts.UserAgent)
		require.NotNil(t, opts.TimezoneId)
		assert.Equal(t, "America/Los_Angeles", *opts.TimezoneId)
		require.NotNil(t, opts.Locale)
		assert.Equal(t, "en-US", *opts.Locale)
		require.NotNil(t, opts.Viewport)
		assert.Equal(t, 1920, opts.Viewport.Width)
		assert.Equal(t, "en-US,en;q=0.9", opts.ExtraHttpHeaders["Accept-Language"])
		assert.True(t, *opts.IgnoreHttpsErrors)
	})

	t.Run("Plain", func(t *testing.T) {
		opts := contextOptions(config.BrowserConfig{Persona: schemas.DefaultPersona})
		assert.Nil(t, opts.UserAgent)
		assert.Nil(t, opts.Viewport)
		assert.False(t, *opts.IgnoreHttpsErrors)
	})
}

func TestTimeoutMillis(t *testing.T) {
	assert.Equal(t, float64(5000), timeoutMillis(context.Background(), 5*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ms := timeoutMillis(ctx, time.Second)
	assert.Greater(t, ms, float64(50000))
	assert.LessOrEqual(t, ms, float64(60000))

	expired, cancel2 := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel2()
	assert.Equal(t, float64(1), timeoutMillis(expired, time.Second))
}

// TestPlaywrightQueries needs an installed Playwright driver and is opt-in.
func TestPlaywrightQueries(t *testing.T) {
	if testing.Short() || os.Getenv("DOMQ_PLAYWRIGHT_TESTS") == "" {
		t.Skip("set DOMQ_PLAYWRIGHT_TESTS=1 with an installed Playwright driver to run")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
			<img id="logo" src="img/a.png">
			<a href="/x">x</a><a href="/y">y</a>
			<p id="gone" style="display:none">hidden</p>
			<form id="f"><input name="user"><input name="pass"></form>
		</body></html>`))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	b, err := Launch(ctx, config.BrowserConfig{Headless: true, Stealth: true, Persona: schemas.DefaultPersona}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	p, err := b.NewPage(ctx)
	require.NoError(t, err)
	defer func() { _ = p.Close() }()
	require.NoError(t, p.Navigate(ctx, server.URL+"/dir/page.html"))

	h := p.Query()

	values, err := h.ElementsAttribute(ctx, "a", "href")
	require.NoError(t, err)
	assert.Equal(t, []query.AttrValue{{Value: "/x", Present: true}, {Value: "/y", Present: true}}, values)

	logo, found, err := h.Q("#logo").Handle(ctx)
	require.NoError(t, err)
	require.True(t, found)
	src, err := logo.Attribute(ctx, "src")
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/dir/img/a.png", src.Value)

	visible, found, err := h.Q("#gone").IsVisible(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, visible)

	_, err = h.Fill(ctx, "#f", map[string]string{"user": "alice", "pass": "secret"})
	require.NoError(t, err)
	var user string
	_, err = h.Q(`#f [name="user"]`).PropInto(ctx, "value", &user)
	require.NoError(t, err)
	assert.Equal(t, "alice", user)

	assert.NoError(t, b.Close())
	_, err = b.NewPage(ctx)
	assert.ErrorIs(t, err, ErrBrowserClosed)
}
