// pkg/query/errors.go
package query

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

var (
	// ErrFieldNotFound marks a form field that had no matching input under the container.
	ErrFieldNotFound = errors.New("form field not found")
	// ErrNilPage is returned when a helper is used without a page capability.
	ErrNilPage = errors.New("query: nil page")
)

// FieldError records the failure of a single form field.
type FieldError struct {
	Field    string
	Selector string
	Err      error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q (%s): %v", e.Field, e.Selector, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// FillError aggregates the per-field failures of a Fill call. The underlying
// Err is a multierr combination of *FieldError values.
type FillError struct {
	Container string
	Err       error
}

func (e *FillError) Error() string {
	fields := e.Fields()
	return fmt.Sprintf("fill %q: %d field(s) not filled: %s", e.Container, len(fields), strings.Join(fields, ", "))
}

func (e *FillError) Unwrap() error { return e.Err }

// Fields lists the names of the fields that failed, in processing order.
func (e *FillError) Fields() []string {
	var names []string
	for _, err := range multierr.Errors(e.Err) {
		var fe *FieldError
		if errors.As(err, &fe) {
			names = append(names, fe.Field)
		}
	}
	return names
}
