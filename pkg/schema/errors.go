package schema

import (
	"errors"

	"github.com/orneryd/hyperstore/pkg/herrors"
)

// Sentinel errors, mirroring the teacher's pkg/storage convention of
// package-level errors usable with errors.Is (pkg/storage/types.go:
// ErrNotFound, ErrAlreadyExists, ...).
var (
	ErrDuplicateSchema = errors.New("duplicate schema")
	ErrUnknownSchema   = errors.New("unknown schema")
	ErrAmbiguousSchema = errors.New("ambiguous schema name")
	ErrSchemaSealed    = errors.New("schema element is sealed and can no longer be modified")
)

func schemaSealedError(id string) error {
	return herrors.Wrap(herrors.InvalidElement, ErrSchemaSealed, "schema element %q is sealed", id)
}
