package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"gastos/internal/core"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Budgets.List(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	out := make([]budgetResponse, 0, len(list))
	for _, b := range list {
		out = append(out, newBudgetResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	b, err := s.svc.Budgets.Create(r.Context(), req.toCore(chi.URLParam(r, "userID")))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newBudgetResponse(b))
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.Budgets.Get(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "budgetID"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBudgetResponse(b))
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	b := req.toCore(chi.URLParam(r, "userID"))
	b.ID = chi.URLParam(r, "budgetID")
	b, err := s.svc.Budgets.Update(r.Context(), b)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBudgetResponse(b))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Budgets.Delete(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "budgetID")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleBudgetStatus reports spending against every budget for the period
// containing ?today= (default: the current date).
func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	today, err := queryDate(r, "today")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if today.IsZero() {
		today = core.Today()
	}
	status, err := s.svc.Budgets.Status(r.Context(), chi.URLParam(r, "userID"), today)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	out := make([]budgetStatusResponse, 0, len(status))
	for _, st := range status {
		out = append(out, budgetStatusResponse{
			Budget:    newBudgetResponse(st.Budget),
			From:      st.From,
			To:        st.To,
			Spent:     st.Spent,
			Remaining: st.Remaining,
			Exceeded:  st.Exceeded(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}
