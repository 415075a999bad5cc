// internal/browser/element.go
package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/domq/api/schemas"
	"github.com/xkilldash9x/domq/pkg/query"
)

// element is a DOM node of a Tab addressed by its backend node id, which
// stays valid across DOM agent resets.
type element struct {
	tab  *Tab
	node *cdp.Node
}

var _ query.Element = (*element)(nil)

// BoundingBox returns the node's border box. CDP refuses to compute a box
// model for nodes outside the render tree; that is reported as nil.
func (e *element) BoundingBox(ctx context.Context) (*schemas.BoundingBox, error) {
	var model *dom.BoxModel
	err := e.tab.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		m, err := dom.GetBoxModel().WithBackendNodeID(e.node.BackendNodeID).Do(ctx)
		if err != nil {
			var protoErr *cdproto.Error
			if errors.As(err, &protoErr) {
				return nil
			}
			return err
		}
		model = m
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to get box model: %w", err)
	}
	if model == nil {
		return nil, nil
	}
	return schemas.BoundingBoxFromQuad(model.Border), nil
}

// Evaluate calls fn with the node as its first argument.
func (e *element) Evaluate(ctx context.Context, fn string, args ...any) (query.Value, error) {
	decl := fmt.Sprintf("function(...args) { return (%s)(this, ...args); }", fn)

	var obj *runtime.RemoteObject
	err := e.tab.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		resolved, err := dom.ResolveNode().WithBackendNodeID(e.node.BackendNodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to resolve node: %w", err)
		}
		defer func() {
			releaseCtx, cancel := cleanupContext(ctx)
			defer cancel()
			_ = runtime.ReleaseObject(resolved.ObjectID).Do(releaseCtx)
		}()

		return chromedp.CallFunctionOn(decl, &obj,
			func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
				return p.WithObjectID(resolved.ObjectID).
					WithReturnByValue(true).
					WithAwaitPromise(true)
			},
			args...,
		).Do(ctx)
	}))
	if err != nil {
		return query.Value{}, fmt.Errorf("evaluation failed: %w", err)
	}
	return remoteValue(obj), nil
}

// remoteValue converts a by-value remote object into a query.Value.
func remoteValue(obj *runtime.RemoteObject) query.Value {
	switch {
	case obj == nil || obj.Type == runtime.TypeUndefined:
		return query.Undefined()
	case obj.Subtype == runtime.SubtypeNull:
		return query.Null()
	case len(obj.Value) == 0 && obj.UnserializableValue != "":
		// NaN, Infinity, -0 and bigints have no JSON form.
		v, _ := query.ValueOf(string(obj.UnserializableValue))
		return v
	default:
		return query.NewValue([]byte(obj.Value))
	}
}
