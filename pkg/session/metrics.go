package session

// Metrics observes session lifecycle events. A nil Metrics disables
// collection.
type Metrics interface {
	RecordCreated()
	RecordInvalidated()
	RecordExpired(n int)
	RecordClosed(discarded bool, err error)
	SetActive(n int)
}
