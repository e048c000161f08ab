package field

import "errors"

var (
	ErrInvalidSize  = errors.New("field: invalid size")
	ErrUnknownShape = errors.New("field: unknown shape")
)
