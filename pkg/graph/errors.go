package graph

import "errors"

// Sentinel errors surfaced through pkg/herrors by callers (spec.md §7):
// ErrDuplicateElement maps to herrors.DuplicateElement, ErrNotFound and
// ErrInvalidStart to herrors.InvalidElement.
var (
	ErrDuplicateElement = errors.New("duplicate element")
	ErrNotFound         = errors.New("element not found")
	ErrInvalidStart     = errors.New("start element not found")
)
