package domain

import "errors"

var (
	// ErrEmptyBrief is returned before any generation call when the brief has no text.
	ErrEmptyBrief = errors.New("brief is required")
	// ErrGenerationFailed wraps failures reported by the generation gateway.
	ErrGenerationFailed = errors.New("task generation failed")
	// ErrNotFound indicates the requested entity does not exist in the store.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates an entity with the same key is already stored.
	ErrAlreadyExists = errors.New("already exists")

	ErrInvalidStatus = errors.New("invalid task status")
	ErrInvalidRole   = errors.New("invalid team role")
	ErrEmptyName     = errors.New("name is required")
	ErrInvalidKey    = errors.New("invalid key")
	// ErrInvalidTask rejects a task list before anything is written.
	ErrInvalidTask = errors.New("invalid task")
)
