package recorder

import (
	"errors"
	"time"

	"InstabilitySentinel/internal/model"
)

// MultiRecorder fans writes out to several recorders. Reads come from the
// first one, which is treated as the primary store.
type MultiRecorder struct {
	recorders []Recorder
}

func NewMultiRecorder(recorders ...Recorder) *MultiRecorder {
	return &MultiRecorder{recorders: recorders}
}

func (m *MultiRecorder) RecordObservation(obs *model.Observation) error {
	var errs []error
	for _, r := range m.recorders {
		if err := r.RecordObservation(obs); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiRecorder) LoadObservations(since time.Time) ([]model.Observation, error) {
	if len(m.recorders) == 0 {
		return nil, nil
	}
	return m.recorders[0].LoadObservations(since)
}

func (m *MultiRecorder) Prune(before time.Time) (int64, error) {
	var (
		errs  []error
		first int64
	)
	for i, r := range m.recorders {
		n, err := r.Prune(before)
		if err != nil {
			errs = append(errs, err)
		}
		if i == 0 {
			first = n
		}
	}
	return first, errors.Join(errs...)
}

func (m *MultiRecorder) Close() error {
	var errs []error
	for _, r := range m.recorders {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
