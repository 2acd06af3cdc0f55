package properties

import (
	"context"
	"errors"
	"fmt"
	"html"
	"html/template"
	"time"

	"github.com/Sternrassler/nrs-views/pkg/nodeapi"
	"github.com/Sternrassler/nrs-views/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nrs_properties_fetch_total",
		Help: "Total account property page fetches by direction and result",
	}, []string{"direction", "result"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nrs_properties_fetch_duration_seconds",
		Help:    "Account property page fetch duration in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	}, []string{"direction"})
)

// Source returns raw property rows for a query. *nodeapi.API implements it.
type Source interface {
	GetAccountProperties(ctx context.Context, q nodeapi.PropertiesQuery) ([]nodeapi.PropertyRecord, error)
}

// Fetcher fetches property pages for one viewer.
type Fetcher struct {
	source Source
	viewer Viewer
	logger zerolog.Logger
}

// NewFetcher creates a Fetcher for viewer.
func NewFetcher(source Source, viewer Viewer) *Fetcher {
	return &Fetcher{
		source: source,
		viewer: viewer,
		logger: log.With().Str("component", "properties").Str("account", viewer.Identifier()).Logger(),
	}
}

// Viewer returns the account the fetcher serves.
func (f *Fetcher) Viewer() Viewer {
	return f.viewer
}

// Fetch requests page pageNumber with itemsPerPage rows in direction.
func (f *Fetcher) Fetch(ctx context.Context, direction Direction, pageNumber, itemsPerPage int) (Page, error) {
	if direction != Incoming && direction != Outgoing {
		return Page{}, fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}
	window, err := pagination.NewWindow(pageNumber, itemsPerPage)
	if err != nil {
		return Page{}, err
	}

	records, err := f.fetchWindow(ctx, direction, window)
	if err != nil {
		f.logger.Warn().
			Err(err).
			Str("direction", string(direction)).
			Int("page", pageNumber).
			Msg("Property fetch failed")
		return Page{}, &RequestError{Direction: direction, Page: pageNumber, Err: err}
	}

	records, hasMore := pagination.Trim(records, itemsPerPage)

	items := make([]PropertyViewModel, 0, len(records))
	for _, r := range records {
		items = append(items, f.project(r, direction))
	}

	f.logger.Debug().
		Str("direction", string(direction)).
		Int("page", pageNumber).
		Int("items_per_page", itemsPerPage).
		Int("first_index", window.FirstIndex).
		Int("last_index", window.LastIndex).
		Int("items", len(items)).
		Bool("has_more", hasMore).
		Msg("Property page fetched")

	return Page{
		Direction:  direction,
		PageNumber: pageNumber,
		PerPage:    itemsPerPage,
		Items:      items,
		HasMore:    hasMore,
	}, nil
}

// FetchAll walks every page of direction, e.g. for export.
func (f *Fetcher) FetchAll(ctx context.Context, direction Direction, cfg pagination.Config) ([]PropertyViewModel, error) {
	if direction != Incoming && direction != Outgoing {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}

	items, err := pagination.CollectAll(ctx, cfg, func(ctx context.Context, w pagination.Window) ([]PropertyViewModel, error) {
		records, err := f.fetchWindow(ctx, direction, w)
		if err != nil {
			return nil, &RequestError{Direction: direction, Page: w.Page, Err: err}
		}
		page := make([]PropertyViewModel, 0, len(records))
		for _, r := range records {
			page = append(page, f.project(r, direction))
		}
		return page, nil
	})

	var reqErr *RequestError
	if err != nil && !errors.As(err, &reqErr) {
		err = &RequestError{Direction: direction, Err: err}
	}
	return items, err
}

// fetchWindow issues one node request and records its metrics.
func (f *Fetcher) fetchWindow(ctx context.Context, direction Direction, w pagination.Window) ([]nodeapi.PropertyRecord, error) {
	start := time.Now()
	records, err := f.source.GetAccountProperties(ctx, f.query(direction, w))
	fetchDuration.WithLabelValues(string(direction)).Observe(time.Since(start).Seconds())

	result := "ok"
	if err != nil {
		result = "error"
	}
	fetchTotal.WithLabelValues(string(direction), result).Inc()
	return records, err
}

func (f *Fetcher) query(direction Direction, w pagination.Window) nodeapi.PropertiesQuery {
	q := nodeapi.PropertiesQuery{
		FirstIndex: w.FirstIndex,
		LastIndex:  w.LastIndex,
	}
	if direction == Incoming {
		q.Recipient = f.viewer.Identifier()
	} else {
		q.Setter = f.viewer.Identifier()
	}
	return q
}

// project maps one raw record to its row view model.
func (f *Fetcher) project(r nodeapi.PropertyRecord, direction Direction) PropertyViewModel {
	vm := PropertyViewModel{
		Property: template.HTML(html.EscapeString(r.Property)),
		Value:    template.HTML(html.EscapeString(r.Value)),
		Record:   r,
	}

	if direction == Incoming {
		vm.Account = AccountLink{
			Account:   r.Setter,
			AccountRS: r.SetterRS,
			IsSelf:    f.viewer.Is(r.Setter, r.SetterRS),
		}
		vm.Delete = ActionIntent{
			Kind:      ActionDelete,
			Modal:     ModalDeleteProperty,
			Setter:    r.SetterRS,
			Recipient: f.viewer.Identifier(),
			Property:  r.Property,
		}
		return vm
	}

	vm.Account = AccountLink{
		Account:   r.Recipient,
		AccountRS: r.RecipientRS,
		IsSelf:    f.viewer.Is(r.Recipient, r.RecipientRS),
	}
	vm.Update = &ActionIntent{
		Kind:      ActionUpdate,
		Modal:     ModalSetProperty,
		Recipient: r.RecipientRS,
		Property:  r.Property,
		Value:     r.Value,
	}
	vm.Delete = ActionIntent{
		Kind:      ActionDelete,
		Modal:     ModalDeleteProperty,
		Setter:    f.viewer.Identifier(),
		Recipient: r.RecipientRS,
		Property:  r.Property,
	}
	return vm
}
