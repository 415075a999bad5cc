// internal/browser/tab.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/domq/pkg/query"
)

// Tab is one browser target. It implements query.Page.
type Tab struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	closeOnce sync.Once
	closeErr  error
	onClose   func()
}

var _ query.Page = (*Tab)(nil)

// ID returns the tab's identifier used in logs.
func (t *Tab) ID() string { return t.id }

// Query returns the query helpers bound to this tab.
func (t *Tab) Query(opts ...query.Option) *query.Helpers {
	return query.New(t, append([]query.Option{query.WithLogger(t.logger)}, opts...)...)
}

// run executes actions on the tab, honoring the deadline of ctx.
func (t *Tab) run(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, cancel := CombineContext(t.ctx, ctx)
	defer cancel()
	if err := chromedp.Run(opCtx, actions...); err != nil {
		// Report the caller's cancellation rather than the derived one.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// Navigate loads url and waits for the load event.
func (t *Tab) Navigate(ctx context.Context, url string) error {
	t.logger.Debug("Navigating.", zap.String("url", url))
	if err := t.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// QuerySelector returns the first element matching selector, or nil.
func (t *Tab) QuerySelector(ctx context.Context, selector string) (query.Element, error) {
	var nodes []*cdp.Node
	if err := t.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return &element{tab: t, node: nodes[0]}, nil
}

// QuerySelectorAll returns every element matching selector in document order.
func (t *Tab) QuerySelectorAll(ctx context.Context, selector string) ([]query.Element, error) {
	var nodes []*cdp.Node
	if err := t.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}
	out := make([]query.Element, len(nodes))
	for i, n := range nodes {
		out[i] = &element{tab: t, node: n}
	}
	return out, nil
}

// Close closes the target. It is safe to call more than once.
func (t *Tab) Close() error {
	t.closeOnce.Do(func() {
		if err := chromedp.Cancel(t.ctx); err != nil && !errors.Is(err, context.Canceled) {
			t.closeErr = fmt.Errorf("failed to close tab: %w", err)
		}
		t.cancel()
		if t.onClose != nil {
			t.onClose()
		}
		t.logger.Debug("Tab closed.")
	})
	return t.closeErr
}
