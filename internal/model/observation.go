package model

import "time"

// CountryScore is the shape supplied by the external instability-score producer.
type CountryScore struct {
	Code       string             `yaml:"code" json:"code"`
	Score      float64            `yaml:"score" json:"score"`
	Components map[string]float64 `yaml:"components,omitempty" json:"components,omitempty"`
}

// Observation is one sample of a country's instability state.
type Observation struct {
	CountryCode string             `json:"country_code"`
	Timestamp   time.Time          `json:"timestamp"`
	Score       float64            `json:"score"`
	Components  map[string]float64 `json:"components,omitempty"`
}
