package types

import "errors"

// Domain-level validation errors for the data model in SPEC_FULL.md §3.
var (
	ErrEmptyLogicalPath = errors.New("chunk logical path cannot be empty")
	ErrEmptyContent     = errors.New("chunk content cannot be empty")
	ErrIndexTooLarge    = errors.New("serialized index exceeds the size cap")
	ErrSchemaMismatch   = errors.New("index schema version does not match")
	ErrConfigDrift      = errors.New("index config fingerprint does not match")
)
