package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gastos/internal/core"
)

func (s *Server) handleListCreditCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.svc.Accounts.ListCreditCards(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	out := make([]creditCardResponse, 0, len(cards))
	for _, c := range cards {
		out = append(out, newCreditCardResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCreditCard(w http.ResponseWriter, r *http.Request) {
	var req creditCardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	c, err := s.svc.Accounts.CreateCreditCard(r.Context(), core.CreditCard{
		UserID:         chi.URLParam(r, "userID"),
		Name:           sanitizeInput(req.Name),
		LastFourDigits: req.LastFourDigits,
		Limit:          req.Limit,
		Currency:       req.Currency,
		CutOffDay:      req.CutOffDay,
		PaymentDay:     req.PaymentDay,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCreditCardResponse(c))
}

func (s *Server) handleGetCreditCard(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.Accounts.GetCreditCard(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "cardID"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCreditCardResponse(c))
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.svc.Ledger.ListPayments(r.Context(), chi.URLParam(r, "userID"), r.URL.Query().Get("credit_card_id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	out := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, newPaymentResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) decodePayment(w http.ResponseWriter, r *http.Request) (core.CreditCardPayment, error) {
	var req paymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return core.CreditCardPayment{}, err
	}
	return core.CreditCardPayment{
		UserID:        chi.URLParam(r, "userID"),
		CreditCardID:  req.CreditCardID,
		BankAccountID: req.BankAccountID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Date:          req.Date,
	}, nil
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "POST /credit-card-payments")
	defer span.End()

	p, err := s.decodePayment(w, r)
	if err == nil {
		p, err = s.svc.Ledger.CreatePayment(ctx, p)
	}
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newPaymentResponse(p))
}

func (s *Server) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "PUT /credit-card-payments")
	defer span.End()

	p, err := s.decodePayment(w, r)
	if err == nil {
		p.ID = chi.URLParam(r, "paymentID")
		p, err = s.svc.Ledger.UpdatePayment(ctx, p)
	}
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPaymentResponse(p))
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "DELETE /credit-card-payments")
	defer span.End()

	if err := s.svc.Ledger.DeletePayment(ctx, chi.URLParam(r, "userID"), chi.URLParam(r, "paymentID")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListBankAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.svc.Accounts.ListBankAccounts(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	out := make([]bankAccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, newBankAccountResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateBankAccount(w http.ResponseWriter, r *http.Request) {
	var req bankAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	a := core.BankAccount{
		UserID:           chi.URLParam(r, "userID"),
		Name:             sanitizeInput(req.Name),
		LastFourDigits:   req.LastFourDigits,
		Balance:          req.Balance.Money,
		Currency:         req.Currency,
		SubtractExpenses: true,
		AddIncomes:       true,
	}
	if req.SubtractExpenses != nil {
		a.SubtractExpenses = *req.SubtractExpenses
	}
	if req.AddIncomes != nil {
		a.AddIncomes = *req.AddIncomes
	}
	a, err := s.svc.Accounts.CreateBankAccount(r.Context(), a)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newBankAccountResponse(a))
}

// handleGetBalance computes the balance as of ?today= (defaults to the
// current date).
func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "GET /bank-accounts/{accountID}/balance")
	defer span.End()

	today, err := queryDate(r, "today")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if today.IsZero() {
		today = core.Today()
	}
	bal, err := s.svc.Accounts.ComputeBalance(ctx, chi.URLParam(r, "userID"), chi.URLParam(r, "accountID"), today)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBalanceResponse(bal))
}

func (s *Server) handleDeduct(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	a, err := s.svc.Accounts.Deduct(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "accountID"), req.Amount)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBankAccountResponse(a))
}

func (s *Server) handleResetBalance(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	a, err := s.svc.Accounts.ResetBalance(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "accountID"), req.Balance.Money, time.Now().UTC())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBankAccountResponse(a))
}
