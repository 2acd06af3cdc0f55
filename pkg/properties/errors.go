package properties

import (
	"errors"
	"fmt"

	"github.com/Sternrassler/nrs-views/pkg/pagination"
)

var (
	// ErrInvalidPage is returned for page < 1 or itemsPerPage < 1.
	ErrInvalidPage = pagination.ErrInvalidPage

	// ErrInvalidDirection is returned for directions other than incoming/outgoing.
	ErrInvalidDirection = errors.New("invalid direction")
)

// RequestError is a failed or malformed getAccountProperties call.
type RequestError struct {
	Direction Direction
	Page      int
	Err       error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return fmt.Sprintf("fetch %s properties page %d: %v", e.Direction, e.Page, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RequestError) Unwrap() error {
	return e.Err
}
