package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"gastos/internal/core"
	"gastos/internal/storage"
)

// entryRoutes mounts list/create/stats/get/update/delete for one kind of
// ledger entry.
func (s *Server) entryRoutes(kind core.EntryKind) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/", s.handleListEntries(kind))
		r.Post("/", s.handleCreateEntry(kind))
		r.Get("/stats", s.handleMonthStats(kind))
		r.Get("/{entryID}", s.handleGetEntry(kind))
		r.Put("/{entryID}", s.handleUpdateEntry(kind))
		r.Delete("/{entryID}", s.handleDeleteEntry(kind))
	}
}

func (s *Server) handleListEntries(kind core.EntryKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := storage.EntryFilter{
			UserID:       chi.URLParam(r, "userID"),
			Kind:         kind,
			CreditCardID: r.URL.Query().Get("credit_card_id"),
			CategoryID:   r.URL.Query().Get("category"),
		}
		var err error
		if f.From, err = queryDate(r, "from"); err != nil {
			handleServiceError(w, r, err)
			return
		}
		if f.To, err = queryDate(r, "to"); err != nil {
			handleServiceError(w, r, err)
			return
		}
		if f.Limit, err = queryInt(r, "limit", 100); err != nil {
			handleServiceError(w, r, err)
			return
		}

		entries, err := s.svc.Ledger.ListEntries(r.Context(), f)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		out := make([]entryResponse, 0, len(entries))
		for _, e := range entries {
			out = append(out, newEntryResponse(e))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) handleCreateEntry(kind core.EntryKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /"+string(kind))
		defer span.End()

		var req entryRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, r, err)
			return
		}
		e, err := s.svc.Ledger.CreateEntry(ctx, req.toEntry(chi.URLParam(r, "userID"), kind))
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, newEntryResponse(e))
	}
}

func (s *Server) handleGetEntry(kind core.EntryKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := s.svc.Ledger.GetEntry(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "entryID"))
		if err == nil && e.Kind != kind {
			err = &core.ErrNotFound{Resource: string(kind), ID: e.ID}
		}
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newEntryResponse(e))
	}
}

func (s *Server) handleUpdateEntry(kind core.EntryKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /"+string(kind))
		defer span.End()

		var req entryRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, r, err)
			return
		}
		e := req.toEntry(chi.URLParam(r, "userID"), kind)
		e.ID = chi.URLParam(r, "entryID")
		e, err := s.svc.Ledger.UpdateEntry(ctx, e)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newEntryResponse(e))
	}
}

func (s *Server) handleDeleteEntry(kind core.EntryKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /"+string(kind))
		defer span.End()

		userID, id := chi.URLParam(r, "userID"), chi.URLParam(r, "entryID")
		e, err := s.svc.Ledger.GetEntry(ctx, userID, id)
		if err == nil && e.Kind != kind {
			err = &core.ErrNotFound{Resource: string(kind), ID: id}
		}
		if err == nil {
			err = s.svc.Ledger.DeleteEntry(ctx, userID, id)
		}
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleMonthStats(kind core.EntryKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		year, month, err := parseYearMonth(r)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		st, err := s.svc.Stats.MonthStats(r.Context(), chi.URLParam(r, "userID"), kind, year, month)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newStatsResponse(st))
	}
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.svc.Stats.Settings(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSettingsResponse(settings))
}

func (s *Server) handleUpdateExchangeRate(w http.ResponseWriter, r *http.Request) {
	var req exchangeRateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	rate, err := decimal.NewFromString(req.ExchangeRate)
	if err != nil {
		handleServiceError(w, r, &core.ErrValidation{Field: "exchange_rate", Message: "must be a decimal number", Err: err})
		return
	}
	settings, err := s.svc.Stats.UpdateExchangeRate(r.Context(), chi.URLParam(r, "userID"), rate)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSettingsResponse(settings))
}
