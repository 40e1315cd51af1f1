package http

import (
	"time"

	"github.com/shopspring/decimal"

	"gastos/internal/core"
	"gastos/internal/services"
)

type entryRequest struct {
	Amount        core.Money    `json:"amount"`
	Currency      core.Currency `json:"currency"`
	CategoryID    string        `json:"category_id"`
	Description   string        `json:"description"`
	Date          core.Date     `json:"date"`
	CreditCardID  string        `json:"credit_card_id,omitempty"`
	BankAccountID string        `json:"bank_account_id,omitempty"`
}

func (req entryRequest) toEntry(userID string, kind core.EntryKind) core.LedgerEntry {
	return core.LedgerEntry{
		UserID:        userID,
		Kind:          kind,
		Amount:        req.Amount,
		Currency:      req.Currency,
		CategoryID:    sanitizeInput(req.CategoryID),
		Description:   sanitizeInput(req.Description),
		Date:          req.Date,
		CreditCardID:  req.CreditCardID,
		BankAccountID: req.BankAccountID,
	}
}

type entryResponse struct {
	ID            string         `json:"id"`
	Kind          core.EntryKind `json:"kind"`
	Amount        core.Money     `json:"amount"`
	Currency      core.Currency  `json:"currency"`
	CategoryID    string         `json:"category_id"`
	Description   string         `json:"description"`
	Date          core.Date      `json:"date"`
	CreditCardID  string         `json:"credit_card_id,omitempty"`
	BankAccountID string         `json:"bank_account_id,omitempty"`
	RecurringID   string         `json:"recurring_id,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

func newEntryResponse(e core.LedgerEntry) entryResponse {
	return entryResponse{
		ID:            e.ID,
		Kind:          e.Kind,
		Amount:        e.Amount,
		Currency:      e.Currency,
		CategoryID:    e.CategoryID,
		Description:   e.Description,
		Date:          e.Date,
		CreditCardID:  e.CreditCardID,
		BankAccountID: e.BankAccountID,
		RecurringID:   e.RecurringID,
		CreatedAt:     e.CreatedAt,
	}
}

type paymentRequest struct {
	CreditCardID  string        `json:"credit_card_id"`
	BankAccountID string        `json:"bank_account_id,omitempty"`
	Amount        core.Money    `json:"amount"`
	Currency      core.Currency `json:"currency"`
	Date          core.Date     `json:"date"`
}

type paymentResponse struct {
	ID            string        `json:"id"`
	CreditCardID  string        `json:"credit_card_id"`
	BankAccountID string        `json:"bank_account_id,omitempty"`
	Amount        core.Money    `json:"amount"`
	Currency      core.Currency `json:"currency"`
	Date          core.Date     `json:"date"`
	CreatedAt     time.Time     `json:"created_at"`
}

func newPaymentResponse(p core.CreditCardPayment) paymentResponse {
	return paymentResponse{
		ID:            p.ID,
		CreditCardID:  p.CreditCardID,
		BankAccountID: p.BankAccountID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Date:          p.Date,
		CreatedAt:     p.CreatedAt,
	}
}

type creditCardRequest struct {
	Name           string        `json:"name"`
	LastFourDigits string        `json:"last_four_digits"`
	Limit          core.Money    `json:"limit"`
	Currency       core.Currency `json:"currency"`
	CutOffDay      int           `json:"cut_off_day"`
	PaymentDay     int           `json:"payment_day"`
}

type creditCardResponse struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	LastFourDigits string        `json:"last_four_digits,omitempty"`
	Limit          core.Money    `json:"limit"`
	Currency       core.Currency `json:"currency"`
	UsedPEN        core.Money    `json:"used_pen"`
	UsedUSD        core.Money    `json:"used_usd"`
	Available      core.Money    `json:"available"`
	CutOffDay      int           `json:"cut_off_day"`
	PaymentDay     int           `json:"payment_day"`
}

func newCreditCardResponse(c core.CreditCard) creditCardResponse {
	return creditCardResponse{
		ID:             c.ID,
		Name:           c.Name,
		LastFourDigits: c.LastFourDigits,
		Limit:          c.Limit,
		Currency:       c.Currency,
		UsedPEN:        c.Usage.PEN,
		UsedUSD:        c.Usage.USD,
		Available:      c.Available(),
		CutOffDay:      c.CutOffDay,
		PaymentDay:     c.PaymentDay,
	}
}

// signedAmount accepts zero and negative balances, which core.Money's own
// decoding rejects.
type signedAmount struct {
	core.Money
}

func (s *signedAmount) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	s.Money = core.MoneyFromDecimal(d)
	return nil
}

type bankAccountRequest struct {
	Name             string        `json:"name"`
	LastFourDigits   string        `json:"last_four_digits"`
	Balance          signedAmount  `json:"balance"`
	Currency         core.Currency `json:"currency"`
	SubtractExpenses *bool         `json:"subtract_expenses"`
	AddIncomes       *bool         `json:"add_incomes"`
}

type bankAccountResponse struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	LastFourDigits   string        `json:"last_four_digits,omitempty"`
	Balance          core.Money    `json:"balance"`
	Currency         core.Currency `json:"currency"`
	SubtractExpenses bool          `json:"subtract_expenses"`
	AddIncomes       bool          `json:"add_incomes"`
	BalanceResetAt   *time.Time    `json:"balance_reset_at,omitempty"`
}

func newBankAccountResponse(a core.BankAccount) bankAccountResponse {
	return bankAccountResponse{
		ID:               a.ID,
		Name:             a.Name,
		LastFourDigits:   a.LastFourDigits,
		Balance:          a.Balance,
		Currency:         a.Currency,
		SubtractExpenses: a.SubtractExpenses,
		AddIncomes:       a.AddIncomes,
		BalanceResetAt:   a.BalanceResetAt,
	}
}

type balanceResponse struct {
	AccountID            string        `json:"account_id"`
	Currency             core.Currency `json:"currency"`
	StoredBalance        core.Money    `json:"stored_balance"`
	LinkedExpenses       core.Money    `json:"linked_expenses"`
	LinkedIncomes        core.Money    `json:"linked_incomes"`
	PendingFixedExpenses core.Money    `json:"pending_fixed_expenses"`
	PendingFixedIncomes  core.Money    `json:"pending_fixed_incomes"`
	ComputedBalance      core.Money    `json:"computed_balance"`
}

func newBalanceResponse(b core.BankBalance) balanceResponse {
	return balanceResponse{
		AccountID:            b.AccountID,
		Currency:             b.Currency,
		StoredBalance:        b.Stored,
		LinkedExpenses:       b.LinkedExpenses,
		LinkedIncomes:        b.LinkedIncomes,
		PendingFixedExpenses: b.PendingFixedExpenses,
		PendingFixedIncomes:  b.PendingFixedIncomes,
		ComputedBalance:      b.Computed,
	}
}

type amountRequest struct {
	Amount core.Money `json:"amount"`
}

type resetRequest struct {
	Balance signedAmount `json:"balance"`
}

type recurringRequest struct {
	Kind          core.EntryKind `json:"kind"`
	Name          string         `json:"name"`
	Amount        core.Money     `json:"amount"`
	Currency      core.Currency  `json:"currency"`
	DayOfMonth    int            `json:"day_of_month"`
	CategoryID    string         `json:"category_id"`
	CreditCardID  string         `json:"credit_card_id,omitempty"`
	BankAccountID string         `json:"bank_account_id,omitempty"`
}

func (req recurringRequest) toCore(userID string) core.RecurringTransaction {
	return core.RecurringTransaction{
		UserID:        userID,
		Kind:          req.Kind,
		Name:          sanitizeInput(req.Name),
		Amount:        req.Amount,
		Currency:      req.Currency,
		DayOfMonth:    req.DayOfMonth,
		CategoryID:    sanitizeInput(req.CategoryID),
		CreditCardID:  req.CreditCardID,
		BankAccountID: req.BankAccountID,
	}
}

type recurringResponse struct {
	ID                string         `json:"id"`
	Kind              core.EntryKind `json:"kind"`
	Name              string         `json:"name"`
	Amount            core.Money     `json:"amount"`
	Currency          core.Currency  `json:"currency"`
	DayOfMonth        int            `json:"day_of_month"`
	CategoryID        string         `json:"category_id"`
	CreditCardID      string         `json:"credit_card_id,omitempty"`
	BankAccountID     string         `json:"bank_account_id,omitempty"`
	Active            bool           `json:"active"`
	CreatedAt         time.Time      `json:"created_at"`
	LastProcessedDate *core.Date     `json:"last_processed_date"`
}

func newRecurringResponse(rt core.RecurringTransaction) recurringResponse {
	return recurringResponse{
		ID:                rt.ID,
		Kind:              rt.Kind,
		Name:              rt.Name,
		Amount:            rt.Amount,
		Currency:          rt.Currency,
		DayOfMonth:        rt.DayOfMonth,
		CategoryID:        rt.CategoryID,
		CreditCardID:      rt.CreditCardID,
		BankAccountID:     rt.BankAccountID,
		Active:            rt.Active,
		CreatedAt:         rt.CreatedAt,
		LastProcessedDate: rt.LastProcessedDate,
	}
}

type activeRequest struct {
	Active bool `json:"active"`
}

type processResponse struct {
	services.ProcessResult
	Today string `json:"today"`
}

type installmentRequest struct {
	CreditCardID       string        `json:"credit_card_id"`
	Description        string        `json:"description"`
	TotalAmount        core.Money    `json:"total_amount"`
	Currency           core.Currency `json:"currency"`
	TotalInstallments  int           `json:"total_installments"`
	CurrentInstallment int           `json:"current_installment"`
	StartDate          core.Date     `json:"start_date"`
}

type installmentResponse struct {
	ID                 string        `json:"id"`
	CreditCardID       string        `json:"credit_card_id"`
	Description        string        `json:"description"`
	TotalAmount        core.Money    `json:"total_amount"`
	Currency           core.Currency `json:"currency"`
	TotalInstallments  int           `json:"total_installments"`
	CurrentInstallment int           `json:"current_installment"`
	MonthlyAmount      core.Money    `json:"monthly_amount"`
	RemainingAmount    core.Money    `json:"remaining_amount"`
	StartDate          core.Date     `json:"start_date"`
	Active             bool          `json:"active"`
}

func newInstallmentResponse(in core.Installment) installmentResponse {
	return installmentResponse{
		ID:                 in.ID,
		CreditCardID:       in.CreditCardID,
		Description:        in.Description,
		TotalAmount:        in.TotalAmount,
		Currency:           in.Currency,
		TotalInstallments:  in.TotalInstallments,
		CurrentInstallment: in.CurrentInstallment,
		MonthlyAmount:      in.MonthlyAmount(),
		RemainingAmount:    in.RemainingAmount(),
		StartDate:          in.StartDate,
		Active:             in.Active,
	}
}

type categoryAmountResponse struct {
	CategoryID string        `json:"category_id"`
	Currency   core.Currency `json:"currency"`
	Amount     core.Money    `json:"amount"`
}

type statsResponse struct {
	Year       int                          `json:"year"`
	Month      int                          `json:"month"`
	Count      int                          `json:"count"`
	Totals     map[core.Currency]core.Money `json:"totals"`
	TotalInPEN core.Money                   `json:"total_in_pen"`
	ByCategory []categoryAmountResponse     `json:"by_category"`
}

func newStatsResponse(st core.MonthStats) statsResponse {
	out := statsResponse{
		Year:       st.Year,
		Month:      st.Month,
		Count:      st.Count,
		Totals:     st.Totals,
		TotalInPEN: st.TotalInPEN,
		ByCategory: make([]categoryAmountResponse, 0, len(st.ByCategory)),
	}
	for _, ca := range st.ByCategory {
		out.ByCategory = append(out.ByCategory, categoryAmountResponse{CategoryID: ca.CategoryID, Currency: ca.Currency, Amount: ca.Amount})
	}
	return out
}

type settingsResponse struct {
	UserID       string `json:"user_id"`
	ExchangeRate string `json:"exchange_rate"`
}

func newSettingsResponse(s core.UserSettings) settingsResponse {
	return settingsResponse{UserID: s.UserID, ExchangeRate: s.ExchangeRate.StringFixed(4)}
}

type exchangeRateRequest struct {
	ExchangeRate string `json:"exchange_rate"`
}

type budgetRequest struct {
	CategoryID string            `json:"category_id"`
	Amount     core.Money        `json:"amount"`
	Period     core.BudgetPeriod `json:"period"`
	StartDate  core.Date         `json:"start_date"`
}

func (req budgetRequest) toCore(userID string) core.Budget {
	return core.Budget{
		UserID:     userID,
		CategoryID: sanitizeInput(req.CategoryID),
		Amount:     req.Amount,
		Period:     req.Period,
		StartDate:  req.StartDate,
	}
}

type budgetResponse struct {
	ID         string            `json:"id"`
	CategoryID string            `json:"category_id"`
	Amount     core.Money        `json:"amount"`
	Period     core.BudgetPeriod `json:"period"`
	StartDate  core.Date         `json:"start_date"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func newBudgetResponse(b core.Budget) budgetResponse {
	return budgetResponse{
		ID:         b.ID,
		CategoryID: b.CategoryID,
		Amount:     b.Amount,
		Period:     b.Period,
		StartDate:  b.StartDate,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

type budgetStatusResponse struct {
	Budget    budgetResponse `json:"budget"`
	From      core.Date      `json:"from"`
	To        core.Date      `json:"to"`
	Spent     core.Money     `json:"spent"`
	Remaining core.Money     `json:"remaining"`
	Exceeded  bool           `json:"exceeded"`
}
