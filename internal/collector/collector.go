package collector

import (
	"fmt"
	"time"

	"InstabilitySentinel/internal/model"
	"InstabilitySentinel/internal/trend"
)

// MockSource returns fixed scores for development and testing.
type MockSource struct {
	Scores []model.CountryScore
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) FetchScores() ([]model.CountryScore, error) {
	if m.Scores != nil {
		return m.Scores, nil
	}
	return []model.CountryScore{{
		Code:  "UA",
		Score: 65,
		Components: map[string]float64{
			"unrest":      45,
			"security":    78,
			"information": 52,
		},
	}}, nil
}

// Collector turns a batch of producer scores into observations.
type Collector struct {
	Source Source
	Now    func() time.Time
}

// NewCollector creates a new Collector.
func NewCollector(source Source) *Collector {
	return &Collector{Source: source, Now: time.Now}
}

// Collect fetches one batch and stamps every observation with the same time.
// Validation is left to the engine.
func (c *Collector) Collect() ([]model.Observation, error) {
	scores, err := c.Source.FetchScores()
	if err != nil {
		return nil, fmt.Errorf("fetch scores from %s: %w", c.Source.Name(), err)
	}

	now := c.Now()
	out := make([]model.Observation, 0, len(scores))
	for _, s := range scores {
		out = append(out, model.Observation{
			CountryCode: trend.NormalizeCode(s.Code),
			Timestamp:   now,
			Score:       s.Score,
			Components:  s.Components,
		})
	}
	return out, nil
}
