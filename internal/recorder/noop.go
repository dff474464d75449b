package recorder

import (
	"time"

	"InstabilitySentinel/internal/model"
)

// NoopRecorder is a no-op implementation used when no store is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordObservation(_ *model.Observation) error { return nil }
func (n *NoopRecorder) LoadObservations(_ time.Time) ([]model.Observation, error) {
	return nil, nil
}
func (n *NoopRecorder) Prune(_ time.Time) (int64, error) { return 0, nil }
func (n *NoopRecorder) Close() error                    { return nil }
