// pkg/query/fake_test.go
package query

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/xkilldash9x/domq/api/schemas"
)

// -- Test Doubles --
// fakePage and fakeElement emulate the engine capabilities in memory. The
// element interprets the in-page function constants of this package.

type fakeElement struct {
	mu      sync.Mutex
	attrs   map[string]string
	props   map[string]any
	text    string
	html    string
	box     *schemas.BoundingBox
	baseURL string

	evalErr error
	boxErr  error
	delay   time.Duration

	evalCalls int
}

func newFakeElement() *fakeElement {
	return &fakeElement{
		attrs: map[string]string{},
		props: map[string]any{},
		box:   &schemas.BoundingBox{X: 0, Y: 0, Width: 10, Height: 10},
	}
}

func (e *fakeElement) withAttr(name, value string) *fakeElement {
	e.attrs[name] = value
	return e
}

func (e *fakeElement) withProp(name string, value any) *fakeElement {
	e.props[name] = value
	return e
}

func (e *fakeElement) prop(name string) any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.props[name]
}

func (e *fakeElement) BoundingBox(ctx context.Context) (*schemas.BoundingBox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.boxErr != nil {
		return nil, e.boxErr
	}
	return e.box, nil
}

func (e *fakeElement) Evaluate(ctx context.Context, fn string, args ...any) (Value, error) {
	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return Value{}, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return Value{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.evalCalls++
	if e.evalErr != nil {
		return Value{}, e.evalErr
	}

	switch fn {
	case jsGetAttribute:
		return e.attrValue(args[0].(string))
	case jsHandleAttribute:
		name := args[0].(string)
		if name != "src" {
			return e.attrValue(name)
		}
		return ValueOf(e.resolvedSrc())
	case jsAttributes:
		out := make(map[string]string, len(e.attrs))
		for k, v := range e.attrs {
			out[k] = v
		}
		return ValueOf(out)
	case jsInnerText:
		return ValueOf(e.text)
	case jsInnerHTML:
		return ValueOf(e.html)
	case jsGetProp:
		v, ok := e.props[args[0].(string)]
		if !ok {
			return Undefined(), nil
		}
		return ValueOf(v)
	case jsSetProp:
		e.props[args[0].(string)] = args[1]
		return Undefined(), nil
	case jsSetValue:
		e.props["value"] = args[0]
		return Undefined(), nil
	default:
		return Value{}, fmt.Errorf("fake element cannot evaluate %q", fn)
	}
}

func (e *fakeElement) attrValue(name string) (Value, error) {
	v, ok := e.attrs[name]
	if !ok {
		return Null(), nil
	}
	return ValueOf(v)
}

// resolvedSrc mirrors HTMLImageElement.src: the attribute resolved against the
// document URL, or "" when the attribute is missing.
func (e *fakeElement) resolvedSrc() string {
	raw, ok := e.attrs["src"]
	if !ok {
		return ""
	}
	base, err := url.Parse(e.baseURL)
	if err != nil {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return base.ResolveReference(ref).String()
}

type fakePage struct {
	mu       sync.Mutex
	elements map[string][]*fakeElement
	err      error
	// gate, when set, blocks QuerySelector until closed.
	gate chan struct{}

	queries     int
	queryAlls   int
	inFlight    int
	maxInFlight int
}

func newFakePage() *fakePage {
	return &fakePage{elements: map[string][]*fakeElement{}}
}

func (p *fakePage) set(selector string, els ...*fakeElement) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(els) == 0 {
		delete(p.elements, selector)
		return
	}
	p.elements[selector] = els
}

func (p *fakePage) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *fakePage) queryCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queries
}

func (p *fakePage) QuerySelector(ctx context.Context, selector string) (Element, error) {
	p.mu.Lock()
	p.queries++
	p.inFlight++
	if p.inFlight > p.maxInFlight {
		p.maxInFlight = p.inFlight
	}
	gate := p.gate
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.inFlight--
		p.mu.Unlock()
	}()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	els := p.elements[selector]
	if len(els) == 0 {
		return nil, nil
	}
	return els[0], nil
}

func (p *fakePage) QuerySelectorAll(ctx context.Context, selector string) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queryAlls++
	if p.err != nil {
		return nil, p.err
	}
	out := make([]Element, 0, len(p.elements[selector]))
	for _, el := range p.elements[selector] {
		out = append(out, el)
	}
	return out, nil
}
