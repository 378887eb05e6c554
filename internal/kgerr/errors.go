// Package kgerr defines the error taxonomy shared by the query compiler,
// the storage layer and the graph assembler. Callers classify errors with
// errors.Is and map them onto transport responses.
package kgerr

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedFilter marks a filter that could not be parsed or whose
	// tree is structurally invalid (empty group, excessive depth).
	ErrMalformedFilter = errors.New("malformed filter")

	// ErrUnknownField marks a filter or order-by referencing a column that
	// is not whitelisted for the target table.
	ErrUnknownField = errors.New("unknown field")

	// ErrInvalidOperator marks an operator that is unsupported or
	// incompatible with the leaf's value type.
	ErrInvalidOperator = errors.New("invalid operator")

	// ErrInvalidPagination marks a page/page_size combination that is out
	// of range. page starts at 1; page=0 is rejected, never coerced.
	ErrInvalidPagination = errors.New("invalid pagination")

	// ErrQuery marks a storage-layer failure. It is surfaced as-is, without
	// retry; the layer makes no transient/permanent distinction.
	ErrQuery = errors.New("query failed")

	// ErrNotFound marks an update or delete against a missing row.
	ErrNotFound = errors.New("not found")

	// ErrFinalized marks a mutation attempted on an already finalized
	// graph builder.
	ErrFinalized = errors.New("graph already finalized")
)

// Malformedf wraps ErrMalformedFilter with detail.
func Malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrMalformedFilter}, args...)...)
}

// Queryf wraps ErrQuery with detail. The underlying driver error is
// included in the message but intentionally not in the chain, so callers
// match on ErrQuery alone.
func Queryf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrQuery}, args...)...)
}

// IsClientError reports whether err stems from caller input and should be
// reported as a validation failure rather than a server fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMalformedFilter) ||
		errors.Is(err, ErrUnknownField) ||
		errors.Is(err, ErrInvalidOperator) ||
		errors.Is(err, ErrInvalidPagination)
}
