package view

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Sternrassler/nrs-views/pkg/pagination"
	"github.com/Sternrassler/nrs-views/pkg/properties"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultItemsPerPage matches the wallet's default table size.
const DefaultItemsPerPage = 15

// ErrStaleRender is returned when a newer Load started before this one finished.
var ErrStaleRender = errors.New("stale render discarded")

// PageFetcher fetches one page of property rows. *properties.Fetcher implements it.
type PageFetcher interface {
	Fetch(ctx context.Context, direction properties.Direction, pageNumber, itemsPerPage int) (properties.Page, error)
}

// PropertiesPage is the template model of the properties table.
type PropertiesPage struct {
	Direction    properties.Direction
	Header       string
	Items        []properties.PropertyViewModel
	HasMore      bool
	IsEmpty      bool
	ErrorMessage string
	PageNumber   int
}

// HasPrev reports whether a previous page exists.
func (p PropertiesPage) HasPrev() bool {
	return p.PageNumber > 1
}

// NextPage is the page number of the next page.
func (p PropertiesPage) NextPage() int {
	return p.PageNumber + 1
}

// PrevPage is the page number of the previous page.
func (p PropertiesPage) PrevPage() int {
	return p.PageNumber - 1
}

// State is a snapshot of the controller's pagination state.
type State struct {
	Direction  properties.Direction
	PageNumber int
	HasMore    bool
}

// Controller drives the properties table of one viewer.
type Controller struct {
	fetcher PageFetcher
	perPage int
	logger  zerolog.Logger

	mu         sync.Mutex
	direction  properties.Direction
	pageNumber int
	hasMore    bool
	generation uint64
}

// NewController creates a controller showing outgoing properties, page 1.
func NewController(fetcher PageFetcher, itemsPerPage int) *Controller {
	if itemsPerPage <= 0 {
		itemsPerPage = DefaultItemsPerPage
	}
	return &Controller{
		fetcher:    fetcher,
		perPage:    itemsPerPage,
		logger:     log.With().Str("component", "view").Logger(),
		direction:  properties.Outgoing,
		pageNumber: 1,
	}
}

// State returns the current pagination state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Direction: c.direction, PageNumber: c.pageNumber, HasMore: c.hasMore}
}

// Load fetches pageNumber of direction and commits it as the current state.
// A fetch failure still yields a page in error state together with the error.
// Invalid input is rejected before any state changes.
func (c *Controller) Load(ctx context.Context, direction properties.Direction, pageNumber int) (PropertiesPage, error) {
	if direction != properties.Incoming && direction != properties.Outgoing {
		return PropertiesPage{}, fmt.Errorf("%w: %q", properties.ErrInvalidDirection, direction)
	}
	if _, err := pagination.NewWindow(pageNumber, c.perPage); err != nil {
		return PropertiesPage{}, err
	}

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	page, err := c.fetcher.Fetch(ctx, direction, pageNumber, c.perPage)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.logger.Debug().
			Str("direction", string(direction)).
			Int("page", pageNumber).
			Msg("Discarding stale properties response")
		return PropertiesPage{}, ErrStaleRender
	}

	view := PropertiesPage{
		Direction:  direction,
		Header:     properties.HeaderLabel(direction),
		PageNumber: pageNumber,
	}

	if err != nil {
		var reqErr *properties.RequestError
		if !errors.As(err, &reqErr) {
			return view, err
		}
		c.direction = direction
		c.pageNumber = pageNumber
		c.hasMore = false
		view.ErrorMessage = reqErr.Error()
		return view, err
	}

	c.direction = direction
	c.pageNumber = pageNumber
	c.hasMore = page.HasMore

	view.Items = page.Items
	view.HasMore = page.HasMore
	view.IsEmpty = page.IsEmpty()
	return view, nil
}

// Reload fetches the current page again.
func (c *Controller) Reload(ctx context.Context) (PropertiesPage, error) {
	s := c.State()
	return c.Load(ctx, s.Direction, s.PageNumber)
}

// SwitchDirection shows direction starting at page 1.
func (c *Controller) SwitchDirection(ctx context.Context, direction properties.Direction) (PropertiesPage, error) {
	return c.Load(ctx, direction, 1)
}

// Next moves one page forward if the current page reported more rows.
func (c *Controller) Next(ctx context.Context) (PropertiesPage, error) {
	s := c.State()
	if !s.HasMore {
		return c.Load(ctx, s.Direction, s.PageNumber)
	}
	return c.Load(ctx, s.Direction, s.PageNumber+1)
}

// Prev moves one page back, stopping at page 1.
func (c *Controller) Prev(ctx context.Context) (PropertiesPage, error) {
	s := c.State()
	return c.Load(ctx, s.Direction, max(s.PageNumber-1, 1))
}
