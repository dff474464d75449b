package trend

import (
	"time"

	"InstabilitySentinel/internal/calculator"
	"InstabilitySentinel/internal/model"
)

const (
	day = 24 * time.Hour

	// Country trend: additive threshold on the 7-day change.
	changeThreshold = 5.0

	// Component trend: ratio against the 7-day mean.
	risingRatio  = 1.2
	fallingRatio = 0.8
)

// Trend computes the country trend for code. It reports false when fewer
// than MinSamples observations are retained.
func (e *Engine) Trend(code string) (*model.CountryTrend, bool) {
	code = NormalizeCode(code)

	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.trendLocked(code, e.now())
}

func (e *Engine) trendLocked(code string, now time.Time) (*model.CountryTrend, bool) {
	h := e.scores[code].retained(now.Add(-Retention))
	if len(h) < MinSamples {
		return nil, false
	}

	latest := h.last()
	current := latest.value
	baseline := func(horizon time.Duration) float64 {
		if s, ok := h.latestBefore(now.Add(-horizon)); ok {
			return s.value
		}
		return current
	}
	score24h := baseline(day)
	score7d := baseline(7 * day)
	score30d := baseline(30 * day)

	t := &model.CountryTrend{
		Code:         code,
		Name:         e.countryName(code),
		CurrentScore: current,
		Score24hAgo:  score24h,
		Score7dAgo:   score7d,
		Score30dAgo:  score30d,
		Change24h:    calculator.RoundTenth(current - score24h),
		Change7d:     calculator.RoundTenth(current - score7d),
		Change30d:    calculator.RoundTenth(current - score30d),
		LastUpdated:  latest.at,
	}
	t.Trend = classifyChange(t.Change7d)

	vol, err := calculator.CalculateStdDev(h.valuesAfter(now.Add(-7 * day)))
	if err != nil {
		vol = 0
	}
	t.Volatility = calculator.RoundTenth(vol)

	return t, true
}

func classifyChange(change7d float64) model.Direction {
	switch {
	case change7d > changeThreshold:
		return model.Rising
	case change7d < -changeThreshold:
		return model.Falling
	default:
		return model.Stable
	}
}

// ComponentTrend computes the trend of one named component for code.
// The baselines are window means, unlike the point-in-time baselines of Trend.
func (e *Engine) ComponentTrend(code, component string) (*model.ComponentTrend, bool) {
	code = NormalizeCode(code)

	e.mu.RLock()
	defer e.mu.RUnlock()

	now := e.now()
	h := e.components[componentKey{code: code, component: component}].retained(now.Add(-Retention))
	if len(h) < MinSamples {
		return nil, false
	}

	current := h.last().value
	baseline7d := calculator.CalculateGuardedMean(h.valuesAfter(now.Add(-7 * day)))
	baseline30d := calculator.CalculateGuardedMean(h.values())

	return &model.ComponentTrend{
		Code:         code,
		Component:    component,
		CurrentValue: calculator.RoundTenth(current),
		Baseline7d:   calculator.RoundTenth(baseline7d),
		Baseline30d:  calculator.RoundTenth(baseline30d),
		Trend:        classifyRatio(current, baseline7d),
	}, true
}

func classifyRatio(current, baseline float64) model.Direction {
	switch {
	case current > baseline*risingRatio:
		return model.Rising
	case current < baseline*fallingRatio:
		return model.Falling
	default:
		return model.Stable
	}
}
