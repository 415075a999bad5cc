// pkg/query/helpers.go

// Package query layers convenience DOM queries on top of a browser engine's
// page and element capabilities: lazy single-element selections, existence
// checks, bulk attribute collection and form filling.
package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds parallel evaluations in ElementsAttribute.
const DefaultConcurrency = 4

type options struct {
	logger      *zap.Logger
	concurrency int
}

// Option configures Helpers and Selections.
type Option func(*options)

// WithLogger sets the logger used for debug output. Nil disables logging.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithConcurrency bounds the number of in-flight evaluations for bulk
// helpers. Values below one mean sequential extraction.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.concurrency = n
	}
}

func newOptions(opts []Option) options {
	o := options{logger: zap.NewNop(), concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Helpers binds the query helpers to one page.
type Helpers struct {
	page Page
	opts []Option
	o    options
}

// New returns the helper set for page.
func New(page Page, opts ...Option) *Helpers {
	return &Helpers{page: page, opts: opts, o: newOptions(opts)}
}

// Page returns the bound page capability.
func (h *Helpers) Page() Page { return h.page }

// Q prepares a lazy Selection for selector.
func (h *Helpers) Q(selector string) *Selection {
	return NewSelection(h.page, selector, h.opts...)
}

// Exists reports whether selector currently matches at least one element.
// Every call queries the page again.
func (h *Helpers) Exists(ctx context.Context, selector string) (bool, error) {
	if h.page == nil {
		return false, ErrNilPage
	}
	el, err := h.page.QuerySelector(ctx, selector)
	if err != nil {
		return false, fmt.Errorf("could not query %q: %w", selector, err)
	}
	return el != nil, nil
}

// ElementsAttribute reads attr from every element matching selector. The
// result is in document order and empty, not nil, when nothing matches.
func (h *Helpers) ElementsAttribute(ctx context.Context, selector, attr string) ([]AttrValue, error) {
	if h.page == nil {
		return nil, ErrNilPage
	}
	elements, err := h.page.QuerySelectorAll(ctx, selector)
	if err != nil {
		return nil, fmt.Errorf("could not query all %q: %w", selector, err)
	}

	values := make([]AttrValue, len(elements))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.o.concurrency)
	for i, el := range elements {
		g.Go(func() error {
			v, err := NewHandle(el).Attribute(gctx, attr)
			if err != nil {
				return fmt.Errorf("element %d of %q: %w", i, selector, err)
			}
			values[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	h.o.logger.Debug("Collected attribute values.",
		zap.String("selector", selector),
		zap.String("attribute", attr),
		zap.Int("count", len(values)))
	return values, nil
}

// FieldResult is the outcome for a single form field.
type FieldResult struct {
	Name     string
	Selector string
	Filled   bool
	Err      error
}

// FillReport lists the outcome of every field passed to Fill.
type FillReport struct {
	Container string
	Fields    []FieldResult
}

// Missing returns the names of fields that had no matching input.
func (r *FillReport) Missing() []string {
	var names []string
	for _, f := range r.Fields {
		if errors.Is(f.Err, ErrFieldNotFound) {
			names = append(names, f.Name)
		}
	}
	return names
}

// OK reports whether every field was filled.
func (r *FillReport) OK() bool {
	for _, f := range r.Fields {
		if !f.Filled {
			return false
		}
	}
	return true
}

// Fill sets the value of every input named by fields under container. Fields
// are processed in name order. A field with no matching input is recorded in
// the report and in the returned *FillError; it does not stop the remaining
// fields. An engine failure stops processing and is returned with the partial
// report.
func (h *Helpers) Fill(ctx context.Context, container string, fields map[string]string) (*FillReport, error) {
	if h.page == nil {
		return nil, ErrNilPage
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	report := &FillReport{Container: container, Fields: make([]FieldResult, 0, len(names))}
	var missing error

	for _, name := range names {
		sel := FieldSelector(container, name)
		res := FieldResult{Name: name, Selector: sel}

		el, err := h.page.QuerySelector(ctx, sel)
		if err != nil {
			res.Err = err
			report.Fields = append(report.Fields, res)
			return report, fmt.Errorf("could not query field %q: %w", name, err)
		}
		if el == nil {
			res.Err = &FieldError{Field: name, Selector: sel, Err: ErrFieldNotFound}
			missing = multierr.Append(missing, res.Err)
			report.Fields = append(report.Fields, res)
			h.o.logger.Debug("Form field not found.", zap.String("field", name), zap.String("selector", sel))
			continue
		}

		if err := NewHandle(el).SetValue(ctx, fields[name]); err != nil {
			res.Err = err
			report.Fields = append(report.Fields, res)
			return report, fmt.Errorf("could not fill field %q: %w", name, err)
		}
		res.Filled = true
		report.Fields = append(report.Fields, res)
	}

	if missing != nil {
		return report, &FillError{Container: container, Err: missing}
	}
	return report, nil
}

// FieldSelector builds the selector for the input named field under container.
// container is joined as written, so in a selector list such as "#a, #b" only
// the last member scopes the field. Wrap lists in :is(...) to scope them all.
func FieldSelector(container, field string) string {
	return container + ` [name=` + quoteCSSString(field) + `]`
}

// quoteCSSString renders s as a double-quoted CSS string literal.
func quoteCSSString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == 0:
			b.WriteString(`\fffd `)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\%x `, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// Q prepares a lazy Selection for selector on page.
func Q(page Page, selector string, opts ...Option) *Selection {
	return NewSelection(page, selector, opts...)
}

// Exists reports whether selector matches at least one element on page.
func Exists(ctx context.Context, page Page, selector string) (bool, error) {
	return New(page).Exists(ctx, selector)
}

// ElementsAttribute reads attr from every element matching selector on page.
func ElementsAttribute(ctx context.Context, page Page, selector, attr string, opts ...Option) ([]AttrValue, error) {
	return New(page, opts...).ElementsAttribute(ctx, selector, attr)
}

// Fill sets form values under container on page.
func Fill(ctx context.Context, page Page, container string, fields map[string]string, opts ...Option) (*FillReport, error) {
	return New(page, opts...).Fill(ctx, container, fields)
}
