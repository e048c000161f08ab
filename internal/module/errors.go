package module

import "errors"

var (
	ErrInvalidModule = errors.New("module: invalid module")
	ErrEmptySet      = errors.New("module: module set is empty")
)
