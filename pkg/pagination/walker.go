package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds page walk configuration.
type Config struct {
	// PerPage is the number of items per page (the node receives PerPage+1).
	PerPage int

	// MaxPages stops the walk after this many pages. Zero means no limit.
	MaxPages int

	// Timeout per page fetch
	Timeout time.Duration
}

// DefaultConfig returns the default walk configuration.
func DefaultConfig() Config {
	return Config{
		PerPage:  15,
		MaxPages: 1000,
		Timeout:  15 * time.Second,
	}
}

// PageFunc fetches the raw rows of one window, sentinel included.
type PageFunc[T any] func(ctx context.Context, w Window) ([]T, error)

// Walk fetches pages in order and hands each trimmed page to visit until a
// page without sentinel arrives, MaxPages is reached or visit returns an error.
func Walk[T any](ctx context.Context, cfg Config, fetch PageFunc[T], visit func(w Window, items []T) error) error {
	def := DefaultConfig()
	if cfg.PerPage <= 0 {
		cfg.PerPage = def.PerPage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	w, err := NewWindow(1, cfg.PerPage)
	if err != nil {
		return err
	}

	start := time.Now()
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("walk stopped at page %d: %w", w.Page, err)
		}

		pageCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		rows, err := fetch(pageCtx, w)
		cancel()
		if err != nil {
			log.Warn().
				Err(err).
				Int("page", w.Page).
				Msg("Page fetch failed")
			return fmt.Errorf("fetch page %d: %w", w.Page, err)
		}

		items, hasMore := Trim(rows, w.PerPage)

		log.Debug().
			Int("page", w.Page).
			Int("first_index", w.FirstIndex).
			Int("last_index", w.LastIndex).
			Int("items", len(items)).
			Bool("has_more", hasMore).
			Msg("Page fetched")

		if err := visit(w, items); err != nil {
			return err
		}

		if !hasMore {
			break
		}
		if cfg.MaxPages > 0 && w.Page >= cfg.MaxPages {
			log.Warn().
				Int("max_pages", cfg.MaxPages).
				Msg("Page walk stopped at page limit")
			break
		}
		w = w.Next()
	}

	log.Info().
		Int("pages", w.Page).
		Dur("duration", time.Since(start)).
		Msg("Page walk complete")

	return nil
}

// CollectAll walks every page and returns the concatenated items. On error
// the items collected so far are returned with it.
func CollectAll[T any](ctx context.Context, cfg Config, fetch PageFunc[T]) ([]T, error) {
	var all []T
	err := Walk(ctx, cfg, fetch, func(_ Window, items []T) error {
		all = append(all, items...)
		return nil
	})
	return all, err
}
