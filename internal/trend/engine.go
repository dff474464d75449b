// Package trend keeps bounded per-country instability histories and derives
// rolling trend analytics from them.
package trend

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"InstabilitySentinel/internal/model"
)

const (
	// Retention is how far back histories reach.
	Retention = 30 * 24 * time.Hour

	// MinSamples is the smallest history a trend is computed from.
	MinSamples = 3

	// DefaultLimit applies to ranking queries called with limit <= 0.
	DefaultLimit = 10
)

// ErrInvalidObservation is returned by Record for input the engine refuses to store.
var ErrInvalidObservation = errors.New("invalid observation")

// Engine owns all country and component histories. It is safe for concurrent use.
type Engine struct {
	mu         sync.RWMutex
	scores     map[string]history
	components map[componentKey]history

	names NameLookup
	now   func() time.Time
}

type componentKey struct {
	code      string
	component string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithNames replaces the default country name table.
func WithNames(names NameLookup) Option {
	return func(e *Engine) { e.names = names }
}

// NewEngine creates an empty Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		scores:     make(map[string]history),
		components: make(map[componentKey]history),
		names:      DefaultNames,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the engine clock reading. Callers that select data by
// retention should use it so they agree with the engine's window.
func (e *Engine) Now() time.Time {
	return e.now()
}

// NormalizeCode trims and upper-cases a country code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate reports why obs cannot be recorded, or nil.
func Validate(obs *model.Observation) error {
	if obs == nil {
		return fmt.Errorf("%w: nil observation", ErrInvalidObservation)
	}
	if NormalizeCode(obs.CountryCode) == "" {
		return fmt.Errorf("%w: empty country code", ErrInvalidObservation)
	}
	if math.IsNaN(obs.Score) || math.IsInf(obs.Score, 0) {
		return fmt.Errorf("%w: %s: non-finite score", ErrInvalidObservation, obs.CountryCode)
	}
	for name, v := range obs.Components {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: %s: empty component name", ErrInvalidObservation, obs.CountryCode)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s: non-finite %s value", ErrInvalidObservation, obs.CountryCode, name)
		}
	}
	return nil
}

// Record appends obs to its country's history and to one component history
// per entry in obs.Components, then prunes those histories to the retention
// window. A zero Timestamp is stamped with the engine clock; a timestamp
// ahead of the clock is rejected.
func (e *Engine) Record(obs *model.Observation) error {
	if err := Validate(obs); err != nil {
		return err
	}

	code := NormalizeCode(obs.CountryCode)
	now := e.now()
	at := obs.Timestamp
	if at.IsZero() {
		at = now
	}
	if at.After(now) {
		return fmt.Errorf("%w: %s: timestamp %s is ahead of clock %s",
			ErrInvalidObservation, code, at.Format(time.RFC3339), now.Format(time.RFC3339))
	}
	cutoff := now.Add(-Retention)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.store(code, e.scores[code].insert(sample{at: at, value: obs.Score}).prune(cutoff))
	for name, v := range obs.Components {
		key := componentKey{code: code, component: name}
		e.storeComponent(key, e.components[key].insert(sample{at: at, value: v}).prune(cutoff))
	}
	return nil
}

// Restore records a batch of previously persisted observations, skipping
// any that fail validation. It returns the number accepted.
func (e *Engine) Restore(observations []model.Observation) int {
	n := 0
	for i := range observations {
		if err := e.Record(&observations[i]); err == nil {
			n++
		}
	}
	return n
}

func (e *Engine) store(code string, h history) {
	if len(h) == 0 {
		delete(e.scores, code)
		return
	}
	e.scores[code] = h
}

func (e *Engine) storeComponent(key componentKey, h history) {
	if len(h) == 0 {
		delete(e.components, key)
		return
	}
	e.components[key] = h
}

// Clear erases every history, leaving the engine as if freshly created.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scores = make(map[string]history)
	e.components = make(map[componentKey]history)
}

// CountTrackedCountries returns the number of codes with retained history.
func (e *Engine) CountTrackedCountries() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	cutoff := e.now().Add(-Retention)
	n := 0
	for _, h := range e.scores {
		if len(h.retained(cutoff)) > 0 {
			n++
		}
	}
	return n
}

// Components lists the component names tracked for code, sorted.
func (e *Engine) Components(code string) []string {
	code = NormalizeCode(code)

	e.mu.RLock()
	defer e.mu.RUnlock()

	cutoff := e.now().Add(-Retention)
	var names []string
	for key, h := range e.components {
		if key.code == code && len(h.retained(cutoff)) > 0 {
			names = append(names, key.component)
		}
	}
	sort.Strings(names)
	return names
}

func (e *Engine) countryName(code string) string {
	if e.names != nil {
		if name, ok := e.names.CountryName(code); ok {
			return name
		}
	}
	return code
}
