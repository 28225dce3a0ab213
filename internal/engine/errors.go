package engine

import "errors"

var (
	ErrInvalidConfig  = errors.New("invalid engine config")
	ErrInvalidRequest = errors.New("invalid classification request")
	ErrPassTimeout    = errors.New("drafting pass timed out")
	ErrDraftFailed    = errors.New("drafting failed")
	ErrHalted         = errors.New("decision engine halted")
)
