package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the timer record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// ErrCorrupt is returned when the stored timer value cannot be parsed.
var ErrCorrupt = errors.New("storage: record is not a valid elapsed-seconds value")

// RecordID is the fixed identifier of the single timer record. There is
// exactly one timer per installation; supporting several would need a new
// key scheme rather than reusing this one.
const RecordID = 1

// SchemaVersion is the current layout version of the transactional stores.
const SchemaVersion = 1

// Store persists the elapsed-seconds counter of the streak timer.
type Store interface {
	// Load returns the persisted elapsed seconds, ErrNotFound when nothing
	// has been saved yet, or ErrCorrupt when the stored value is unusable.
	Load(ctx context.Context) (int64, error)
	// Save upserts the elapsed seconds.
	Save(ctx context.Context, seconds int64) error
	Close() error
}

// Record is the persisted shape used by the transactional stores.
type Record struct {
	ID   int   `json:"id"`
	Time int64 `json:"time"`
}
