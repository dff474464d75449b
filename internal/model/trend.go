package model

import "time"

// Direction is the discretized trend classification.
type Direction string

const (
	Rising  Direction = "rising"
	Falling Direction = "falling"
	Stable  Direction = "stable"
)

// CountryTrend is derived from a country's history on every query.
type CountryTrend struct {
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	CurrentScore float64   `json:"current_score"`
	Score24hAgo  float64   `json:"score_24h_ago"`
	Score7dAgo   float64   `json:"score_7d_ago"`
	Score30dAgo  float64   `json:"score_30d_ago"`
	Change24h    float64   `json:"change_24h"`
	Change7d     float64   `json:"change_7d"`
	Change30d    float64   `json:"change_30d"`
	Trend        Direction `json:"trend"`
	Volatility   float64   `json:"volatility"`
	LastUpdated  time.Time `json:"last_updated"`
}

// ComponentTrend is the per-component view of a country's history.
type ComponentTrend struct {
	Code         string    `json:"code"`
	Component    string    `json:"component"`
	CurrentValue float64   `json:"current_value"`
	Baseline7d   float64   `json:"baseline_7d"`
	Baseline30d  float64   `json:"baseline_30d"`
	Trend        Direction `json:"trend"`
}
