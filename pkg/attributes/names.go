package attributes

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/marmos91/dittosession/internal/logger"
	"github.com/marmos91/dittosession/pkg/store"
)

// Names is the attribute index of one session: a concurrent name -> id
// map and the sequence ids are drawn from. One instance is shared by all
// views of the session on this node.
//
// Ids are never reused. Removing a name abandons its id and re-adding the
// name allocates a new, larger one.
type Names struct {
	sessionID string
	sequence  atomic.Int32
	ids       sync.Map // string -> int32

	// persistMu serializes writes of the name table. Snapshots are taken
	// under it, so a later write always carries a superset of earlier ones.
	persistMu sync.Mutex
}

// NewNames creates the index of sessionID from a persisted record, which
// may be nil for a new session.
func NewNames(sessionID string, record *store.NameRecord) *Names {
	n := &Names{sessionID: sessionID}
	if record == nil {
		return n
	}

	sequence := record.Sequence
	for name, id := range record.Names {
		n.ids.Store(name, id)
		sequence = max(sequence, id)
	}
	n.sequence.Store(sequence)
	return n
}

// LoadNames reads the name table of sessionID. A session without a stored
// table gets an empty index.
func LoadNames(ctx context.Context, table *store.NameTable, sessionID string) (*Names, error) {
	record, err := table.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return NewNames(sessionID, record), nil
}

// SessionID returns the session the index belongs to.
func (n *Names) SessionID() string { return n.sessionID }

// Sequence returns the highest id allocated so far.
func (n *Names) Sequence() int32 { return n.sequence.Load() }

// Lookup returns the id of name.
func (n *Names) Lookup(name string) (int32, bool) {
	v, ok := n.ids.Load(name)
	if !ok {
		return 0, false
	}
	return v.(int32), true
}

// Allocate returns the id of name, allocating the next id when the name is
// unknown. added reports whether the id is newer than the sequence observed
// before the call, in which case the caller must persist the table.
//
// When two views add names concurrently, the one that drew the higher id
// persists a table holding both names. An id drawn by a caller that lost
// the race for the same name is abandoned.
func (n *Names) Allocate(name string) (id int32, added bool) {
	current := n.sequence.Load()
	if v, ok := n.ids.Load(name); ok {
		id = v.(int32)
		return id, id > current
	}

	candidate := n.sequence.Add(1)
	actual, _ := n.ids.LoadOrStore(name, candidate)
	id = actual.(int32)
	return id, id > current
}

// Remove deletes name from the index and returns its former id.
func (n *Names) Remove(name string) (int32, bool) {
	v, ok := n.ids.LoadAndDelete(name)
	if !ok {
		return 0, false
	}
	return v.(int32), true
}

// Restore maps name back to id after a removal that could not be
// persisted. It reports false when the name was added again meanwhile.
func (n *Names) Restore(name string, id int32) bool {
	_, loaded := n.ids.LoadOrStore(name, id)
	return !loaded
}

// Names returns the attribute names in sorted order.
func (n *Names) Names() []string {
	var names []string
	n.ids.Range(func(k, _ any) bool {
		names = append(names, k.(string))
		return true
	})
	slices.Sort(names)
	return names
}

// Len returns the number of names.
func (n *Names) Len() int {
	count := 0
	n.ids.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

// Record returns a snapshot of the index in its persisted form.
func (n *Names) Record() *store.NameRecord {
	record := &store.NameRecord{Names: make(map[string]int32)}
	n.ids.Range(func(k, v any) bool {
		record.Names[k.(string)] = v.(int32)
		return true
	})
	// Read after the map so the sequence covers every id in the snapshot.
	record.Sequence = n.sequence.Load()
	return record
}

// Persist writes the current snapshot to table.
func (n *Names) Persist(ctx context.Context, table *store.NameTable) error {
	n.persistMu.Lock()
	defer n.persistMu.Unlock()

	record := n.Record()
	if err := table.Store(ctx, n.sessionID, record); err != nil {
		return err
	}

	logger.DebugCtx(ctx, "Persisted attribute names",
		logger.KeySessionID, n.sessionID,
		logger.KeyCount, len(record.Names),
		"sequence", record.Sequence)
	return nil
}
