package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"gastos/internal/cache"
	"gastos/internal/core"
	"gastos/internal/storage"
)

const (
	settingsCacheSize = 1024
	settingsCacheTTL  = 5 * time.Minute
)

// StatsService reads per-month summaries and user settings. Settings are
// cached per user; updates through this service replace the cached copy.
type StatsService struct {
	repo     *storage.Repository
	settings *cache.LRU[string, core.UserSettings]
}

func NewStatsService(repo *storage.Repository) *StatsService {
	return &StatsService{
		repo:     repo,
		settings: cache.NewLRU[string, core.UserSettings](settingsCacheSize, settingsCacheTTL),
	}
}

// MonthStats sums the user's entries of kind dated inside year/month.
func (s *StatsService) MonthStats(ctx context.Context, userID string, kind core.EntryKind, year, month int) (core.MonthStats, error) {
	if month < 1 || month > 12 {
		return core.MonthStats{}, &core.ErrValidation{Field: "month", Message: fmt.Sprintf("month %d out of range", month)}
	}
	if err := kind.Validate(); err != nil {
		return core.MonthStats{}, core.Invalid("kind", err)
	}

	from := core.NewDate(year, month, 1)
	to := core.NewDate(year, month, core.DaysInMonth(year, month))
	byCategory, count, err := s.repo.CategorySums(ctx, userID, kind, from, to)
	if err != nil {
		return core.MonthStats{}, err
	}
	settings, err := s.Settings(ctx, userID)
	if err != nil {
		return core.MonthStats{}, err
	}
	return core.NewMonthStats(year, month, count, byCategory, settings), nil
}

func (s *StatsService) Settings(ctx context.Context, userID string) (core.UserSettings, error) {
	if cached, ok := s.settings.Get(userID); ok {
		return cached, nil
	}
	settings, err := s.repo.GetSettings(ctx, userID)
	if err != nil {
		return core.UserSettings{}, err
	}
	s.settings.Set(userID, settings)
	return settings, nil
}

func (s *StatsService) UpdateExchangeRate(ctx context.Context, userID string, rate decimal.Decimal) (core.UserSettings, error) {
	settings := core.UserSettings{UserID: userID, ExchangeRate: rate}
	if err := settings.Validate(); err != nil {
		return core.UserSettings{}, core.Invalid("exchange_rate", err)
	}
	if err := s.repo.UpdateExchangeRate(ctx, userID, rate); err != nil {
		s.settings.Delete(userID)
		return core.UserSettings{}, err
	}
	s.settings.Set(userID, settings)
	return settings, nil
}
