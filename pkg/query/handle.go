// pkg/query/handle.go
package query

import (
	"context"
	"fmt"
)

// In-page functions. Each receives the element as its first parameter.
const (
	jsGetAttribute    = `(el, name) => el.getAttribute(name)`
	jsHandleAttribute = `(el, name) => name === "src" ? el.src : el.getAttribute(name)`
	jsAttributes      = `(el) => {
		const out = {};
		for (const attr of el.attributes) {
			out[attr.name] = attr.value;
		}
		return out;
	}`
	jsInnerText = `(el) => el.innerText`
	jsInnerHTML = `(el) => el.innerHTML`
	jsGetProp   = `(el, name) => el[name]`
	jsSetProp   = `(el, name, value) => { el[name] = value; }`
	jsSetValue  = `(el, value) => {
		el.value = value;
		el.dispatchEvent(new Event("input", { bubbles: true }));
		el.dispatchEvent(new Event("change", { bubbles: true }));
	}`
)

// Handle adds convenience accessors to an already resolved Element. Unlike
// Selection it performs no absence checks.
type Handle struct {
	el Element
}

// NewHandle wraps el.
func NewHandle(el Element) *Handle {
	return &Handle{el: el}
}

// Element returns the wrapped engine element.
func (h *Handle) Element() Element { return h.el }

// IsVisible reports whether the element currently has a bounding box.
func (h *Handle) IsVisible(ctx context.Context) (bool, error) {
	box, err := h.el.BoundingBox(ctx)
	if err != nil {
		return false, fmt.Errorf("could not get bounding box: %w", err)
	}
	return box != nil, nil
}

// Attribute returns the named attribute. "src" is read from the live property
// so relative URLs come back resolved against the document base.
func (h *Handle) Attribute(ctx context.Context, name string) (AttrValue, error) {
	v, err := h.el.Evaluate(ctx, jsHandleAttribute, name)
	if err != nil {
		return AttrValue{}, fmt.Errorf("could not read attribute %q: %w", name, err)
	}
	return attrFromValue(v)
}

// Attributes returns every attribute of the element keyed by name.
func (h *Handle) Attributes(ctx context.Context) (map[string]string, error) {
	v, err := h.el.Evaluate(ctx, jsAttributes)
	if err != nil {
		return nil, fmt.Errorf("could not read attributes: %w", err)
	}
	attrs := make(map[string]string)
	if err := v.Decode(&attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}

// InnerText returns the rendered text of the element.
func (h *Handle) InnerText(ctx context.Context) (string, error) {
	v, err := h.el.Evaluate(ctx, jsInnerText)
	if err != nil {
		return "", fmt.Errorf("could not read innerText: %w", err)
	}
	return stringFromValue(v)
}

// InnerHTML returns the element's inner markup.
func (h *Handle) InnerHTML(ctx context.Context) (string, error) {
	v, err := h.el.Evaluate(ctx, jsInnerHTML)
	if err != nil {
		return "", fmt.Errorf("could not read innerHTML: %w", err)
	}
	return stringFromValue(v)
}

// Prop returns the live DOM property, which may differ from the attribute
// the element was parsed with.
func (h *Handle) Prop(ctx context.Context, name string) (Value, error) {
	v, err := h.el.Evaluate(ctx, jsGetProp, name)
	if err != nil {
		return Value{}, fmt.Errorf("could not read property %q: %w", name, err)
	}
	return v, nil
}

// SetProp assigns a DOM property.
func (h *Handle) SetProp(ctx context.Context, name string, value any) error {
	if _, err := h.el.Evaluate(ctx, jsSetProp, name, value); err != nil {
		return fmt.Errorf("could not set property %q: %w", name, err)
	}
	return nil
}

// SetValue assigns the value property and fires input and change events so
// framework bindings observe the edit.
func (h *Handle) SetValue(ctx context.Context, value string) error {
	if _, err := h.el.Evaluate(ctx, jsSetValue, value); err != nil {
		return fmt.Errorf("could not set value: %w", err)
	}
	return nil
}

// attr reads a literal attribute without the src special case.
func (h *Handle) attr(ctx context.Context, name string) (AttrValue, error) {
	v, err := h.el.Evaluate(ctx, jsGetAttribute, name)
	if err != nil {
		return AttrValue{}, fmt.Errorf("could not read attribute %q: %w", name, err)
	}
	return attrFromValue(v)
}
