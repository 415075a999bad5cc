// File: cmd/fake_test.go
package cmd

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/domq/api/schemas"
	"github.com/xkilldash9x/domq/internal/config"
	"github.com/xkilldash9x/domq/internal/engine"
	"github.com/xkilldash9x/domq/pkg/query"
)

// -- Test Doubles --

type fakeElement struct {
	mu      sync.Mutex
	attrs   map[string]string
	props   map[string]any
	text    string
	html    string
	src     string
	hidden  bool
	evalErr error
}

func (e *fakeElement) BoundingBox(context.Context) (*schemas.BoundingBox, error) {
	if e.hidden {
		return nil, nil
	}
	return &schemas.BoundingBox{Width: 10, Height: 10}, nil
}

// Evaluate recognises the in-page functions of pkg/query by their bodies.
func (e *fakeElement) Evaluate(_ context.Context, fn string, args ...any) (query.Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evalErr != nil {
		return query.Value{}, e.evalErr
	}
	arg := func(i int) string {
		if i < len(args) {
			s, _ := args[i].(string)
			return s
		}
		return ""
	}
	attr := func(name string) (query.Value, error) {
		if v, ok := e.attrs[name]; ok {
			return query.ValueOf(v)
		}
		return query.Null(), nil
	}

	switch {
	case strings.Contains(fn, "dispatchEvent"):
		if e.props == nil {
			e.props = map[string]any{}
		}
		e.props["value"] = arg(0)
		return query.Undefined(), nil
	case strings.Contains(fn, "el.src"):
		if arg(0) == "src" {
			return query.ValueOf(e.src)
		}
		return attr(arg(0))
	case strings.Contains(fn, "getAttribute"):
		return attr(arg(0))
	case strings.Contains(fn, "innerText"):
		return query.ValueOf(e.text)
	case strings.Contains(fn, "innerHTML"):
		return query.ValueOf(e.html)
	case strings.Contains(fn, "el[name] = value"):
		e.props[arg(0)] = args[1]
		return query.Undefined(), nil
	case strings.Contains(fn, "el[name]"):
		v, ok := e.props[arg(0)]
		if !ok {
			return query.Undefined(), nil
		}
		return query.ValueOf(v)
	}
	return query.Value{}, errors.New("fake: unsupported function")
}

type fakePage struct {
	elements map[string][]*fakeElement
	navErr   error

	mu       sync.Mutex
	visited  []string
	closed   bool
	queryErr error
}

func (p *fakePage) ID() string { return "fake-page" }

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	if p.navErr != nil {
		return p.navErr
	}
	p.mu.Lock()
	p.visited = append(p.visited, url)
	p.mu.Unlock()
	return ctx.Err()
}

func (p *fakePage) Query(opts ...query.Option) *query.Helpers { return query.New(p, opts...) }

func (p *fakePage) QuerySelector(ctx context.Context, selector string) (query.Element, error) {
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	if els := p.elements[selector]; len(els) > 0 {
		return els[0], nil
	}
	return nil, ctx.Err()
}

func (p *fakePage) QuerySelectorAll(ctx context.Context, selector string) ([]query.Element, error) {
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	out := make([]query.Element, 0, len(p.elements[selector]))
	for _, el := range p.elements[selector] {
		out = append(out, el)
	}
	return out, ctx.Err()
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

type fakeEngine struct {
	page    *fakePage
	cfg     config.BrowserConfig
	closed  bool
	pageErr error
}

func (e *fakeEngine) NewPage(context.Context) (engine.Page, error) {
	if e.pageErr != nil {
		return nil, e.pageErr
	}
	return e.page, nil
}

func (e *fakeEngine) Close(context.Context) error {
	e.closed = true
	return nil
}

// useFakeEngine routes launchEngine to eng for the duration of the test.
func useFakeEngine(t interface{ Cleanup(func()) }, eng *fakeEngine) {
	prev := launchEngine
	launchEngine = func(_ context.Context, cfg config.BrowserConfig, _ *zap.Logger) (engine.Engine, error) {
		eng.cfg = cfg
		return eng, nil
	}
	t.Cleanup(func() { launchEngine = prev })
}
