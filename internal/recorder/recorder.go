package recorder

import (
	"time"

	"InstabilitySentinel/internal/model"
)

// Recorder persists observations so history survives restarts.
// Implementations must be safe for concurrent use.
type Recorder interface {
	RecordObservation(obs *model.Observation) error
	// LoadObservations returns observations with Timestamp >= since, oldest first.
	LoadObservations(since time.Time) ([]model.Observation, error)
	// Prune deletes observations older than before and reports how many went.
	Prune(before time.Time) (int64, error)
	Close() error
}
