package storage

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by every backend. Callers match them through
// errors.Is; backends wrap them in *Error with the operation and key.
var (
	// ErrNotFound reports that no object is stored at the key.
	ErrNotFound = errors.New("object not found")

	// ErrKeyExists reports a Put to an occupied key without Overwrite.
	// Acquisition paths treat it as success: the document is already
	// archived, usually because a concurrent acquisition won the race.
	ErrKeyExists = errors.New("object already exists at this key")

	// ErrInvalidKey reports an empty, rooted, or traversing key.
	ErrInvalidKey = errors.New("invalid storage key")

	// ErrTooLarge reports a payload over PutOptions.MaxSize.
	ErrTooLarge = errors.New("object exceeds maximum size")

	// ErrAccessDenied reports that the backend refused the operation.
	ErrAccessDenied = errors.New("access denied")
)

// Error carries the operation and key a backend failure occurred on.
type Error struct {
	Op  string // "Put", "Get", "Delete", "URL", "Exists"
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means the object does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsKeyExists reports whether err means the key was already occupied.
func IsKeyExists(err error) bool {
	return errors.Is(err, ErrKeyExists)
}

// IsTooLarge reports whether err means the payload was oversized.
func IsTooLarge(err error) bool {
	return errors.Is(err, ErrTooLarge)
}
