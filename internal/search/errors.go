package search

import (
	"errors"
	"fmt"
)

// ErrInvalidOptions wraps every option validation failure so callers can
// test with errors.Is.
var ErrInvalidOptions = errors.New("invalid search options")

func errInvalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidOptions, msg)
}
