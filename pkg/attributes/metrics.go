package attributes

import "time"

// Metrics receives attribute view measurements. A nil Metrics disables
// collection.
type Metrics interface {
	// ObserveOperation records one get, set or remove and its result:
	// "hit", "miss", "ok", "invalid" or "error".
	ObserveOperation(op, result string, d time.Duration)

	// RecordNameTableWrite counts a persisted name table.
	RecordNameTableWrite()

	// RecordFlush records a close: mutators run and mutators that failed.
	RecordFlush(flushed, failed int)
}

const (
	resultHit     = "hit"
	resultMiss    = "miss"
	resultOK      = "ok"
	resultInvalid = "invalid"
	resultError   = "error"
)
