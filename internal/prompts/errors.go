package prompts

import "errors"

// Prompt library errors.
var (
	ErrInvalidStage   = errors.New("stage must be classify, semantic_safety, or child_safety")
	ErrInvalidLibrary = errors.New("invalid prompt library")
	ErrStageDisabled  = errors.New("prompt stage disabled")
)
