// pkg/query/interfaces.go
package query

import (
	"context"

	"github.com/xkilldash9x/domq/api/schemas"
)

// Page is the capability a browser engine exposes for one tab/document.
// Implementations must return an untyped nil Element (not a typed nil pointer)
// when nothing matches.
type Page interface {
	// QuerySelector resolves the first element matching the CSS selector.
	// It returns (nil, nil) when no element matches.
	QuerySelector(ctx context.Context, selector string) (Element, error)
	// QuerySelectorAll resolves every matching element in document order.
	QuerySelectorAll(ctx context.Context, selector string) ([]Element, error)
}

// Element is a reference to one live DOM node owned by the engine.
type Element interface {
	// BoundingBox reports the node's border box, or nil when the node is not
	// part of the render tree.
	BoundingBox(ctx context.Context) (*schemas.BoundingBox, error)
	// Evaluate runs a JavaScript function declaration in the page. The element
	// is passed as the first parameter followed by args. The result is
	// transferred back by value.
	Evaluate(ctx context.Context, fn string, args ...any) (Value, error)
}
