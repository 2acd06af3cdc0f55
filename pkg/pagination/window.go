package pagination

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidPage is returned for page numbers below 1 or non-positive page sizes.
var ErrInvalidPage = errors.New("invalid page request")

// Window is the inclusive index range of one over-fetched page.
type Window struct {
	Page       int
	PerPage    int
	FirstIndex int
	LastIndex  int
}

// NewWindow computes the window for a 1-based page. LastIndex is
// FirstIndex+PerPage, so the node returns up to PerPage+1 rows.
func NewWindow(page, perPage int) (Window, error) {
	if page < 1 {
		return Window{}, fmt.Errorf("%w: page %d, must be >= 1", ErrInvalidPage, page)
	}
	if perPage < 1 {
		return Window{}, fmt.Errorf("%w: items per page %d, must be >= 1", ErrInvalidPage, perPage)
	}
	if page-1 > (math.MaxInt-perPage)/perPage {
		return Window{}, fmt.Errorf("%w: page %d out of range for %d items per page", ErrInvalidPage, page, perPage)
	}

	first := (page - 1) * perPage
	return Window{
		Page:       page,
		PerPage:    perPage,
		FirstIndex: first,
		LastIndex:  first + perPage,
	}, nil
}

// Next returns the window of the following page.
func (w Window) Next() Window {
	next, _ := NewWindow(w.Page+1, w.PerPage)
	return next
}

// Trim drops the sentinel row. hasMore reports whether it was present.
func Trim[T any](rows []T, perPage int) (items []T, hasMore bool) {
	if len(rows) > perPage {
		return rows[:perPage], true
	}
	return rows, false
}
