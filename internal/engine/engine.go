// Package engine selects the headless browser backend named in the
// configuration.
package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/domq/internal/browser"
	"github.com/xkilldash9x/domq/internal/browser/pwengine"
	"github.com/xkilldash9x/domq/internal/config"
	"github.com/xkilldash9x/domq/pkg/query"
)

// Page is a navigable tab that the query helpers can operate on.
type Page interface {
	query.Page
	ID() string
	Navigate(ctx context.Context, url string) error
	Query(opts ...query.Option) *query.Helpers
	Close() error
}

// Engine opens pages in one running browser.
type Engine interface {
	NewPage(ctx context.Context) (Page, error)
	Close(ctx context.Context) error
}

// Launcher starts an Engine. Tests replace it to avoid a real browser.
type Launcher func(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (Engine, error)

// New launches the engine named by cfg.Engine.
func New(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (Engine, error) {
	switch cfg.Engine {
	case config.EngineChromedp, "":
		m, err := browser.NewManager(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return &chromedpEngine{m: m}, nil
	case config.EnginePlaywright:
		b, err := pwengine.Launch(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return &playwrightEngine{b: b}, nil
	default:
		return nil, fmt.Errorf("unknown browser engine %q", cfg.Engine)
	}
}

type chromedpEngine struct {
	m *browser.Manager
}

func (e *chromedpEngine) NewPage(ctx context.Context) (Page, error) {
	t, err := e.m.NewTab(ctx)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (e *chromedpEngine) Close(ctx context.Context) error { return e.m.Shutdown(ctx) }

type playwrightEngine struct {
	b *pwengine.Browser
}

func (e *playwrightEngine) NewPage(ctx context.Context) (Page, error) {
	p, err := e.b.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (e *playwrightEngine) Close(context.Context) error { return e.b.Close() }
