// pkg/query/selection.go
package query

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// resolution is the tag of a Selection's cached lookup.
type resolution int

const (
	unresolved resolution = iota
	resolvedFound
	resolvedAbsent
)

func (r resolution) String() string {
	switch r {
	case resolvedFound:
		return "found"
	case resolvedAbsent:
		return "absent"
	default:
		return "unresolved"
	}
}

// cacheEntry is the tagged variant Unresolved | Found(el) | Absent.
type cacheEntry struct {
	state resolution
	el    Element
}

// Selection is a lazy reference to the first element matching a selector.
// The first accessor call resolves it; the outcome, including "not found", is
// kept for the lifetime of the Selection and never re-queried. A Selection
// goes stale if the page navigates; that is not detected.
type Selection struct {
	page     Page
	selector string
	logger   *zap.Logger

	mu    sync.Mutex
	entry cacheEntry

	// group collapses concurrent first resolutions into one engine query.
	group singleflight.Group
}

// NewSelection binds selector to page without querying it.
func NewSelection(page Page, selector string, opts ...Option) *Selection {
	o := newOptions(opts)
	return &Selection{
		page:     page,
		selector: selector,
		logger:   o.logger.With(zap.String("selector", selector)),
	}
}

// Selector returns the CSS selector the Selection was built with.
func (s *Selection) Selector() string { return s.selector }

// Resolved reports whether a lookup has completed.
func (s *Selection) Resolved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entry.state != unresolved
}

func (s *Selection) cached() (cacheEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entry, s.entry.state != unresolved
}

// Element resolves the selection. found is false when nothing matched.
// Engine failures are returned and leave the Selection unresolved.
func (s *Selection) Element(ctx context.Context) (el Element, found bool, err error) {
	if entry, ok := s.cached(); ok {
		return entry.el, entry.state == resolvedFound, nil
	}
	if s.page == nil {
		return nil, false, ErrNilPage
	}

	v, shared, err := s.resolve(ctx)
	if err != nil && shared && ctx.Err() == nil && isContextError(err) {
		// The shared query ended with another caller's context. Query again
		// under our own.
		s.logger.Debug("Shared resolution canceled; retrying.")
		v, shared, err = s.resolve(ctx)
	}
	if err != nil {
		return nil, false, err
	}
	if shared {
		s.logger.Debug("Joined in-flight resolution.")
	}

	entry := v.(cacheEntry)
	return entry.el, entry.state == resolvedFound, nil
}

// resolve runs the query once for all concurrent callers.
func (s *Selection) resolve(ctx context.Context) (any, bool, error) {
	v, err, shared := s.group.Do(s.selector, func() (any, error) {
		if entry, ok := s.cached(); ok {
			return entry, nil
		}
		el, err := s.page.QuerySelector(ctx, s.selector)
		if err != nil {
			return nil, fmt.Errorf("could not query %q: %w", s.selector, err)
		}
		entry := cacheEntry{state: resolvedAbsent}
		if el != nil {
			entry = cacheEntry{state: resolvedFound, el: el}
		}

		s.mu.Lock()
		s.entry = entry
		s.mu.Unlock()

		s.logger.Debug("Selection resolved.", zap.Stringer("state", entry.state))
		return entry, nil
	})
	return v, shared, err
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Handle resolves the selection and wraps the element in a Handle.
func (s *Selection) Handle(ctx context.Context) (*Handle, bool, error) {
	el, found, err := s.Element(ctx)
	if err != nil || !found {
		return nil, found, err
	}
	return NewHandle(el), true, nil
}

// IsVisible reports whether the element has a bounding box. When nothing
// matched, found is false and visible carries no meaning.
func (s *Selection) IsVisible(ctx context.Context) (visible, found bool, err error) {
	h, found, err := s.Handle(ctx)
	if err != nil || !found {
		return false, found, err
	}
	visible, err = h.IsVisible(ctx)
	return visible, true, err
}

// Attr returns the named attribute using getAttribute semantics.
func (s *Selection) Attr(ctx context.Context, name string) (AttrValue, bool, error) {
	h, found, err := s.Handle(ctx)
	if err != nil || !found {
		return AttrValue{}, found, err
	}
	v, err := h.attr(ctx, name)
	return v, true, err
}

// Text returns the element's innerText.
func (s *Selection) Text(ctx context.Context) (string, bool, error) {
	h, found, err := s.Handle(ctx)
	if err != nil || !found {
		return "", found, err
	}
	text, err := h.InnerText(ctx)
	return text, true, err
}

// HTML returns the element's innerHTML.
func (s *Selection) HTML(ctx context.Context) (string, bool, error) {
	h, found, err := s.Handle(ctx)
	if err != nil || !found {
		return "", found, err
	}
	markup, err := h.InnerHTML(ctx)
	return markup, true, err
}

// Prop returns the named live DOM property.
func (s *Selection) Prop(ctx context.Context, name string) (Value, bool, error) {
	h, found, err := s.Handle(ctx)
	if err != nil || !found {
		return Value{}, found, err
	}
	v, err := h.Prop(ctx, name)
	return v, true, err
}

// PropInto decodes the named property into dst.
func (s *Selection) PropInto(ctx context.Context, name string, dst any) (bool, error) {
	v, found, err := s.Prop(ctx, name)
	if err != nil || !found {
		return found, err
	}
	return true, v.Decode(dst)
}
