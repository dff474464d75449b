package collector

import "InstabilitySentinel/internal/model"

// Source supplies the latest per-country instability scores.
type Source interface {
	FetchScores() ([]model.CountryScore, error)
	Name() string
}
