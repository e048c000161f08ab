package wfc

import "errors"

var (
	ErrContradiction    = errors.New("wfc: contradiction - no possible modules left for cell")
	ErrIndexOutOfRange  = errors.New("wfc: index out of range")
	ErrAlreadyCollapsed = errors.New("wfc: cell already collapsed")
	ErrNotCollapsed     = errors.New("wfc: cell not collapsed")
	ErrSizeMismatch     = errors.New("wfc: domain size mismatch")
	ErrNoInitialCell    = errors.New("wfc: field does not provide an initial cell")
	ErrUnknownAddress   = errors.New("wfc: unknown address")
)
