package table

import "errors"

var (
	ErrDuplicateName     = errors.New("duplicate name")
	ErrNotNumeric        = errors.New("column is not numeric")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrNotFound          = errors.New("not found")
)
