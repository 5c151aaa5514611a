package domain

import "errors"

var (
	ErrNotFound      = errors.New("job not found")
	ErrEngineFailure = errors.New("engine failure")
	ErrInvalidPrompt = errors.New("prompt is required")
)
