package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"gastos/internal/core"
)

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	activeOnly, err := queryBool(r, "active", false)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	defs, err := s.svc.Recurring.List(r.Context(), chi.URLParam(r, "userID"), activeOnly)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	out := make([]recurringResponse, 0, len(defs))
	for _, rt := range defs {
		out = append(out, newRecurringResponse(rt))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	rt, err := s.svc.Recurring.Create(r.Context(), req.toCore(chi.URLParam(r, "userID")))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newRecurringResponse(rt))
}

func (s *Server) handleGetRecurring(w http.ResponseWriter, r *http.Request) {
	rt, err := s.svc.Recurring.Get(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "recurringID"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRecurringResponse(rt))
}

func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	rt := req.toCore(chi.URLParam(r, "userID"))
	rt.ID = chi.URLParam(r, "recurringID")
	rt, err := s.svc.Recurring.Update(r.Context(), rt)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRecurringResponse(rt))
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Recurring.Delete(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "recurringID")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetRecurringActive(w http.ResponseWriter, r *http.Request) {
	var req activeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	rt, err := s.svc.Recurring.SetActive(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "recurringID"), req.Active)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRecurringResponse(rt))
}

// handleProcessRecurring runs the scheduler for one user. ?today= overrides
// the as-of date for catch-up runs.
func (s *Server) handleProcessRecurring(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "POST /recurring/process")
	defer span.End()

	lookback, err := queryInt(r, "lookback_months", 0)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	today, err := queryDate(r, "today")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if today.IsZero() {
		today = core.Today()
	}

	res, err := s.svc.Processor.ProcessUser(ctx, chi.URLParam(r, "userID"), today, lookback)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, processResponse{ProcessResult: res, Today: today.String()})
}

func (s *Server) handleListInstallments(w http.ResponseWriter, r *http.Request) {
	activeOnly, err := queryBool(r, "active", true)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	list, err := s.svc.Installments.List(r.Context(), chi.URLParam(r, "userID"), activeOnly)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	out := make([]installmentResponse, 0, len(list))
	for _, in := range list {
		out = append(out, newInstallmentResponse(in))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateInstallment(w http.ResponseWriter, r *http.Request) {
	var req installmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	in, err := s.svc.Installments.Create(r.Context(), core.Installment{
		UserID:             chi.URLParam(r, "userID"),
		CreditCardID:       req.CreditCardID,
		Description:        sanitizeInput(req.Description),
		TotalAmount:        req.TotalAmount,
		Currency:           req.Currency,
		TotalInstallments:  req.TotalInstallments,
		CurrentInstallment: req.CurrentInstallment,
		StartDate:          req.StartDate,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newInstallmentResponse(in))
}
