package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/nrs-views/pkg/accountdetails"
	"github.com/Sternrassler/nrs-views/pkg/client"
	"github.com/Sternrassler/nrs-views/pkg/metrics"
	"github.com/Sternrassler/nrs-views/pkg/nodeapi"
	"github.com/Sternrassler/nrs-views/pkg/properties"
	"github.com/Sternrassler/nrs-views/pkg/view"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

const requestTimeout = 30 * time.Second

// server holds the HTTP handlers of the views.
type server struct {
	api       *nodeapi.API
	renderer  *view.Renderer
	wallet    properties.Viewer
	publicKey string
	perPage   int

	ready      func(ctx context.Context) error
	invalidate func(ctx context.Context, requestType string) error
}

func (s *server) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(metrics.Middleware)

	router.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	router.HandleFunc("/ready", s.readyHandler).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	accounts := router.PathPrefix("/accounts/{account}").Subrouter()
	accounts.HandleFunc("/properties", s.propertiesHandler).Methods(http.MethodGet)
	accounts.HandleFunc("/details", s.detailsHandler).Methods(http.MethodGet)

	router.HandleFunc("/modals/set-property", s.setPropertyModalHandler).Methods(http.MethodGet)
	router.HandleFunc("/modals/delete-property", s.deletePropertyModalHandler).Methods(http.MethodGet)
	router.HandleFunc("/forms/set-property", s.setPropertyFormHandler).Methods(http.MethodPost)

	return router
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (s *server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.Warn().Err(err).Msg("Readiness check failed")
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (s *server) propertiesHandler(w http.ResponseWriter, r *http.Request) {
	viewer := s.viewer(mux.Vars(r)["account"])

	direction, err := properties.ParseDirection(r.URL.Query().Get("type"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pageNumber := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		pageNumber, err = strconv.Atoi(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid page %q", raw), http.StatusBadRequest)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	controller := view.NewController(properties.NewFetcher(s.api, viewer), s.perPage)
	page, err := controller.Load(ctx, direction, pageNumber)

	status := http.StatusOK
	if err != nil {
		var reqErr *properties.RequestError
		if !errors.As(err, &reqErr) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		status = http.StatusBadGateway
	}

	s.writeHTML(w, status, func(w http.ResponseWriter) error {
		return s.renderer.RenderProperties(w, page)
	})
}

func (s *server) detailsHandler(w http.ResponseWriter, r *http.Request) {
	viewer := s.viewer(mux.Vars(r)["account"])
	local := accountdetails.Local{Account: viewer.Account, AccountRS: viewer.AccountRS}
	if s.isWallet(viewer) {
		local.PublicKey = s.publicKey
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	details, err := accountdetails.NewLoader(s.api).Load(ctx, local, r.URL.Query().Get("tab"))
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, client.ErrBudgetExhausted) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, "account details unavailable", status)
		return
	}

	s.writeHTML(w, http.StatusOK, func(w http.ResponseWriter) error {
		return s.renderer.RenderAccountDetails(w, details)
	})
}

func (s *server) setPropertyModalHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	form := view.PrefillSetProperty(q.Get("recipient"), q.Get("property"), q.Get("value"))

	s.writeHTML(w, http.StatusOK, func(w http.ResponseWriter) error {
		return s.renderer.RenderSetPropertyModal(w, form)
	})
}

func (s *server) deletePropertyModalHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	form := view.PrefillDeleteProperty(q.Get("setter"), q.Get("recipient"), q.Get("property"))

	s.writeHTML(w, http.StatusOK, func(w http.ResponseWriter) error {
		return s.renderer.RenderDeletePropertyModal(w, form)
	})
}

func (s *server) setPropertyFormHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	req := view.NormalizeSetProperty(view.SetPropertyRequest{
		Recipient: r.PostForm.Get("recipient"),
		Property:  r.PostForm.Get("property"),
		Value:     r.PostForm.Get("value"),
	}, s.wallet)

	if req.Property == "" {
		http.Error(w, "property is required", http.StatusBadRequest)
		return
	}

	if s.invalidate != nil {
		if err := s.invalidate(r.Context(), nodeapi.RequestGetAccountProperties); err != nil {
			log.Warn().Err(err).Msg("Failed to invalidate property cache")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"data": req}); err != nil {
		log.Error().Err(err).Msg("Failed to write response")
	}
}

// viewer resolves the path account, reusing the wallet's identifiers when
// the path names the wallet itself.
func (s *server) viewer(account string) properties.Viewer {
	v := viewerFor(account)
	if s.isWallet(v) {
		return s.wallet
	}
	return v
}

func (s *server) isWallet(v properties.Viewer) bool {
	return s.wallet.Is(v.Account, v.AccountRS)
}

func (s *server) writeHTML(w http.ResponseWriter, status int, render func(http.ResponseWriter) error) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := render(w); err != nil {
		log.Error().Err(err).Msg("Failed to render view")
	}
}
