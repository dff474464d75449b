package trend

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InstabilitySentinel/internal/model"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeClock is a settable clock for deterministic windows.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func newTestEngine(t *testing.T) (*Engine, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: baseTime}
	return NewEngine(WithClock(clock.Now)), clock
}

func obs(code string, at time.Time, score float64) *model.Observation {
	return &model.Observation{CountryCode: code, Timestamp: at, Score: score}
}

func TestRecord_Validation(t *testing.T) {
	e, _ := newTestEngine(t)

	tests := []struct {
		name string
		obs  *model.Observation
	}{
		{"nil", nil},
		{"empty code", obs("  ", baseTime, 10)},
		{"NaN score", obs("UA", baseTime, math.NaN())},
		{"infinite score", obs("UA", baseTime, math.Inf(1))},
		{"empty component", &model.Observation{CountryCode: "UA", Timestamp: baseTime, Score: 1, Components: map[string]float64{"": 1}}},
		{"NaN component", &model.Observation{CountryCode: "UA", Timestamp: baseTime, Score: 1, Components: map[string]float64{"unrest": math.NaN()}}},
		{"future timestamp", obs("UA", baseTime.Add(40*day), 99)},
		{"just ahead of clock", obs("UA", baseTime.Add(time.Nanosecond), 99)},
	}
	for _, tt := range tests {
		err := e.Record(tt.obs)
		assert.Truef(t, errors.Is(err, ErrInvalidObservation), "%s: expected ErrInvalidObservation, got %v", tt.name, err)
	}
	assert.Equal(t, 0, e.CountTrackedCountries(), "rejected observations must not be stored")
}

func TestRecord_NormalizesCodeAndStampsTime(t *testing.T) {
	e, _ := newTestEngine(t)

	require.NoError(t, e.Record(&model.Observation{CountryCode: " ua ", Score: 10}))
	require.NoError(t, e.Record(&model.Observation{CountryCode: "Ua", Score: 20}))
	require.NoError(t, e.Record(&model.Observation{CountryCode: "UA", Score: 30}))

	assert.Equal(t, 1, e.CountTrackedCountries())
	tr, ok := e.Trend("ua")
	require.True(t, ok)
	assert.Equal(t, "UA", tr.Code)
	assert.Equal(t, "Ukraine", tr.Name)
	assert.Equal(t, 30.0, tr.CurrentScore)
	assert.Equal(t, baseTime, tr.LastUpdated)
}

func TestRecord_PrunesPastRetention(t *testing.T) {
	e, clock := newTestEngine(t)

	require.NoError(t, e.Record(obs("SY", baseTime.Add(-31*day), 90)))
	require.NoError(t, e.Record(obs("SY", baseTime.Add(-29*day), 80)))
	require.NoError(t, e.Record(obs("SY", baseTime.Add(-Retention), 70)))
	require.NoError(t, e.Record(obs("SY", baseTime, 60)))

	e.mu.RLock()
	h := e.scores["SY"]
	e.mu.RUnlock()
	require.Len(t, h, 3, "observation older than 30 days should have been dropped")
	for _, s := range h {
		assert.False(t, s.at.Before(baseTime.Add(-Retention)))
	}

	// Between writes, expired samples must not be visible to readers.
	clock.Set(baseTime.Add(2 * day))
	_, ok := e.Trend("SY")
	assert.False(t, ok, "only one sample is still inside the window")
	assert.Equal(t, 1, e.CountTrackedCountries())

	clock.Set(baseTime.Add(31 * day))
	assert.Equal(t, 0, e.CountTrackedCountries())
}

func TestRecord_FutureSampleDoesNotBecomeCurrent(t *testing.T) {
	e, _ := newTestEngine(t)

	require.NoError(t, e.Record(obs("UA", baseTime.Add(-2*day), 10)))
	require.NoError(t, e.Record(obs("UA", baseTime.Add(-1*day), 10)))
	err := e.Record(obs("UA", baseTime.Add(40*day), 99))
	require.ErrorIs(t, err, ErrInvalidObservation)
	require.NoError(t, e.Record(obs("UA", baseTime, 12)))

	tr, ok := e.Trend("UA")
	require.True(t, ok)
	assert.Equal(t, 12.0, tr.CurrentScore)
	assert.Equal(t, baseTime, tr.LastUpdated)

	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, s := range e.scores["UA"] {
		assert.False(t, s.at.After(baseTime), "stored sample ahead of the clock")
	}
}

func TestRecord_OutOfOrderKeepsTimeOrder(t *testing.T) {
	e, _ := newTestEngine(t)

	require.NoError(t, e.Record(obs("IR", baseTime, 30)))
	require.NoError(t, e.Record(obs("IR", baseTime.Add(-2*day), 10)))
	require.NoError(t, e.Record(obs("IR", baseTime.Add(-1*day), 20)))
	require.NoError(t, e.Record(obs("IR", baseTime.Add(-1*day), 21)))

	e.mu.RLock()
	h := e.scores["IR"]
	e.mu.RUnlock()
	require.Len(t, h, 4)
	for i := 1; i < len(h); i++ {
		assert.False(t, h[i].at.Before(h[i-1].at), "history must be in non-decreasing time order")
	}
	assert.Equal(t, []float64{10, 20, 21, 30}, h.values(), "duplicate timestamps are independent samples")
}

func TestTrend_InsufficientHistory(t *testing.T) {
	e, _ := newTestEngine(t)

	_, ok := e.Trend("PL")
	assert.False(t, ok, "no history")

	for i := 0; i < 2; i++ {
		require.NoError(t, e.Record(obs("PL", baseTime.Add(time.Duration(i-2)*time.Hour), 10)))
		_, ok = e.Trend("PL")
		assert.Falsef(t, ok, "%d observations should not produce a trend", i+1)
	}

	require.NoError(t, e.Record(obs("PL", baseTime, 10)))
	_, ok = e.Trend("PL")
	assert.True(t, ok, "third observation should produce a trend")
}

func TestTrend_UkraineScenario(t *testing.T) {
	e, _ := newTestEngine(t)

	// Two days apart, most recent at now. The sample at -8d is the most
	// recent one strictly older than the 7-day cutoff.
	scores := []float64{40, 45, 50, 55, 65}
	for i, s := range scores {
		at := baseTime.Add(-time.Duration(2*(len(scores)-1-i)) * day)
		if i == 0 {
			at = baseTime.Add(-8 * day)
		}
		require.NoError(t, e.Record(obs("UA", at, s)))
	}

	tr, ok := e.Trend("UA")
	require.True(t, ok)
	assert.Equal(t, 65.0, tr.CurrentScore)
	assert.Equal(t, 40.0, tr.Score7dAgo)
	assert.Equal(t, 25.0, tr.Change7d)
	assert.Equal(t, 55.0, tr.Score24hAgo)
	assert.Equal(t, 10.0, tr.Change24h)
	assert.Equal(t, 65.0, tr.Score30dAgo, "nothing older than 30 days is retained")
	assert.Equal(t, 0.0, tr.Change30d)
	assert.Equal(t, model.Rising, tr.Trend)
	// Window after -7d holds 45, 50, 55, 65: population sd = 7.395...
	assert.Equal(t, 7.4, tr.Volatility)
}

func TestTrend_BaselineStrictlyOlderThanCutoff(t *testing.T) {
	e, _ := newTestEngine(t)

	require.NoError(t, e.Record(obs("TW", baseTime.Add(-10*day), 20)))
	require.NoError(t, e.Record(obs("TW", baseTime.Add(-7*day), 30))) // exactly at cutoff
	require.NoError(t, e.Record(obs("TW", baseTime, 40)))

	tr, ok := e.Trend("TW")
	require.True(t, ok)
	assert.Equal(t, 20.0, tr.Score7dAgo, "a sample exactly at the cutoff is not older than it")
	assert.Equal(t, 20.0, tr.Change7d)
}

func TestTrend_BaselineFallback(t *testing.T) {
	e, _ := newTestEngine(t)

	for i, s := range []float64{10, 50, 90} {
		require.NoError(t, e.Record(obs("KP", baseTime.Add(-time.Duration(3-i)*time.Hour), s)))
	}

	tr, ok := e.Trend("KP")
	require.True(t, ok)
	assert.Equal(t, tr.CurrentScore, tr.Score7dAgo)
	assert.Equal(t, 0.0, tr.Change7d)
	assert.Equal(t, 0.0, tr.Change24h)
	assert.Equal(t, model.Stable, tr.Trend)
}

func TestTrend_EmptyVolatilityWindow(t *testing.T) {
	e, _ := newTestEngine(t)

	// All samples are inside retention but older than the 7-day window.
	for i, s := range []float64{30, 60, 45} {
		require.NoError(t, e.Record(obs("MM", baseTime.Add(-time.Duration(20-i)*day), s)))
	}

	tr, ok := e.Trend("MM")
	require.True(t, ok, "three retained samples produce a trend")
	assert.False(t, math.IsNaN(tr.Volatility))
	assert.False(t, math.IsInf(tr.Volatility, 0))
	assert.Equal(t, 0.0, tr.Volatility)
	assert.Equal(t, 45.0, tr.CurrentScore)
	assert.Equal(t, 0.0, tr.Change7d, "the latest sample is itself the 7-day baseline")
	assert.Equal(t, model.Stable, tr.Trend)
}

func TestTrend_ZeroScoreBaselineIsKept(t *testing.T) {
	e, _ := newTestEngine(t)

	require.NoError(t, e.Record(obs("DE", baseTime.Add(-8*day), 0)))
	require.NoError(t, e.Record(obs("DE", baseTime.Add(-1*time.Hour), 8)))
	require.NoError(t, e.Record(obs("DE", baseTime, 8)))

	tr, ok := e.Trend("DE")
	require.True(t, ok)
	assert.Equal(t, 0.0, tr.Score7dAgo)
	assert.Equal(t, 8.0, tr.Change7d)
	assert.Equal(t, model.Rising, tr.Trend)
}

func TestTrend_ThresholdBoundaries(t *testing.T) {
	tests := []struct {
		current float64
		change  float64
		want    model.Direction
	}{
		{55, 5.0, model.Stable},
		{55.1, 5.1, model.Rising},
		{45, -5.0, model.Stable},
		{44.9, -5.1, model.Falling},
	}
	for _, tt := range tests {
		e, _ := newTestEngine(t)
		require.NoError(t, e.Record(obs("FR", baseTime.Add(-8*day), 50)))
		require.NoError(t, e.Record(obs("FR", baseTime.Add(-3*day), 50)))
		require.NoError(t, e.Record(obs("FR", baseTime, tt.current)))

		tr, ok := e.Trend("FR")
		require.True(t, ok)
		assert.Equalf(t, tt.change, tr.Change7d, "current %.1f", tt.current)
		assert.Equalf(t, tt.want, tr.Trend, "change %.1f", tt.change)
	}
}

func TestTrend_RoundsDeltas(t *testing.T) {
	e, _ := newTestEngine(t)

	require.NoError(t, e.Record(obs("IN", baseTime.Add(-8*day), 10)))
	require.NoError(t, e.Record(obs("IN", baseTime.Add(-2*day), 16.5)))
	require.NoError(t, e.Record(obs("IN", baseTime, 13.26)))

	tr, ok := e.Trend("IN")
	require.True(t, ok)
	assert.Equal(t, 3.3, tr.Change7d, "3.26 rounds to 3.3")
	assert.Equal(t, -3.2, tr.Change24h, "-3.24 rounds to -3.2")
}

func TestTrend_IdempotentRead(t *testing.T) {
	e, _ := newTestEngine(t)
	for i, s := range []float64{30, 42, 37, 51} {
		require.NoError(t, e.Record(obs("YE", baseTime.Add(-time.Duration(4-i)*36*time.Hour), s)))
	}

	first, ok := e.Trend("YE")
	require.True(t, ok)
	second, ok := e.Trend("YE")
	require.True(t, ok)
	assert.Equal(t, first, second)
}

func TestClear(t *testing.T) {
	e, _ := newTestEngine(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, e.Record(&model.Observation{
			CountryCode: "MM",
			Timestamp:   baseTime.Add(-time.Duration(i) * time.Hour),
			Score:       40,
			Components:  map[string]float64{"unrest": 12},
		}))
	}
	require.Equal(t, 1, e.CountTrackedCountries())

	e.Clear()

	assert.Equal(t, 0, e.CountTrackedCountries())
	assert.Empty(t, e.AllTrends())
	assert.Empty(t, e.Components("MM"))
	_, ok := e.ComponentTrend("MM", "unrest")
	assert.False(t, ok)
}

func TestWithNames_FallsBackToCode(t *testing.T) {
	clock := &fakeClock{t: baseTime}
	e := NewEngine(WithClock(clock.Now), WithNames(StaticNames{"KH": "Kingdom of Cambodia"}))
	for _, code := range []string{"KH", "UA"} {
		for i := 0; i < 3; i++ {
			require.NoError(t, e.Record(obs(code, baseTime.Add(-time.Duration(i)*time.Hour), 10)))
		}
	}

	kh, _ := e.Trend("KH")
	assert.Equal(t, "Kingdom of Cambodia", kh.Name)
	ua, _ := e.Trend("UA")
	assert.Equal(t, "UA", ua.Name, "codes missing from the lookup echo the code")
}

func TestRestore_SkipsInvalid(t *testing.T) {
	e, _ := newTestEngine(t)
	n := e.Restore([]model.Observation{
		{CountryCode: "TR", Timestamp: baseTime.Add(-2 * time.Hour), Score: 10},
		{CountryCode: "", Timestamp: baseTime.Add(-time.Hour), Score: 10},
		{CountryCode: "TR", Timestamp: baseTime.Add(-time.Hour), Score: math.NaN()},
		{CountryCode: "TR", Timestamp: baseTime, Score: 12},
	})
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, e.CountTrackedCountries())
}

func TestEngine_ConcurrentRecordAndRead(t *testing.T) {
	e, _ := newTestEngine(t)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				code := []string{"UA", "RU", "CN", "US"}[w%4]
				_ = e.Record(obs(code, baseTime.Add(-time.Duration(i)*time.Minute), float64(i)))
				e.AllTrends()
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 4, e.CountTrackedCountries())
	for _, code := range []string{"UA", "RU", "CN", "US"} {
		e.mu.RLock()
		assert.Len(t, e.scores[code], 100)
		e.mu.RUnlock()
	}
}
