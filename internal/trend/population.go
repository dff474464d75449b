package trend

import (
	"sort"

	"InstabilitySentinel/internal/model"
)

// AllTrends returns every computable country trend, largest 7-day change first.
func (e *Engine) AllTrends() []model.CountryTrend {
	e.mu.RLock()
	defer e.mu.RUnlock()

	now := e.now()
	trends := make([]model.CountryTrend, 0, len(e.scores))
	for code := range e.scores {
		if t, ok := e.trendLocked(code, now); ok {
			trends = append(trends, *t)
		}
	}
	sortTrends(trends, func(a, b *model.CountryTrend) bool { return a.Change7d > b.Change7d })
	return trends
}

// MostRising returns up to limit rising countries, largest 7-day change first.
func (e *Engine) MostRising(limit int) []model.CountryTrend {
	rising := filterTrends(e.AllTrends(), model.Rising)
	sortTrends(rising, func(a, b *model.CountryTrend) bool { return a.Change7d > b.Change7d })
	return truncate(rising, limit)
}

// MostFalling returns up to limit falling countries, largest 7-day drop first.
func (e *Engine) MostFalling(limit int) []model.CountryTrend {
	falling := filterTrends(e.AllTrends(), model.Falling)
	sortTrends(falling, func(a, b *model.CountryTrend) bool { return a.Change7d < b.Change7d })
	return truncate(falling, limit)
}

// MostVolatile returns up to limit countries of any classification by volatility.
func (e *Engine) MostVolatile(limit int) []model.CountryTrend {
	trends := e.AllTrends()
	sortTrends(trends, func(a, b *model.CountryTrend) bool { return a.Volatility > b.Volatility })
	return truncate(trends, limit)
}

// sortTrends orders by less, breaking ties by code so results are deterministic.
func sortTrends(trends []model.CountryTrend, less func(a, b *model.CountryTrend) bool) {
	sort.SliceStable(trends, func(i, j int) bool {
		a, b := &trends[i], &trends[j]
		if less(a, b) {
			return true
		}
		if less(b, a) {
			return false
		}
		return a.Code < b.Code
	})
}

func filterTrends(trends []model.CountryTrend, d model.Direction) []model.CountryTrend {
	out := trends[:0]
	for _, t := range trends {
		if t.Trend == d {
			out = append(out, t)
		}
	}
	return out
}

func truncate(trends []model.CountryTrend, limit int) []model.CountryTrend {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(trends) > limit {
		return trends[:limit]
	}
	return trends
}
