package session

import (
	"context"
	"slices"
	"strings"

	sesserrors "github.com/marmos91/dittosession/pkg/session/errors"
	"github.com/marmos91/dittosession/pkg/store"
)

// Info describes the stored state of a session without decoding values.
type Info struct {
	ID         string          `json:"id"`
	Metadata   store.Metadata  `json:"metadata"`
	Expired    bool            `json:"expired"`
	Active     bool            `json:"active"`
	Sequence   int32           `json:"sequence"`
	Attributes []AttributeInfo `json:"attributes"`
}

// AttributeInfo describes one attribute entry.
type AttributeInfo struct {
	Name string `json:"name"`
	ID   int32  `json:"id"`
	Size int    `json:"size"`
}

// Inspect returns the stored state of session id, sorted by attribute id.
// Unlike FindSession it reports a missing session as a not found error and
// does not remove expired sessions.
func (m *Manager) Inspect(ctx context.Context, id string) (*Info, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	if !ValidIdentifier(id) {
		return nil, sesserrors.NewNotFoundError(id, "session")
	}

	meta, exists, err := store.NewMetadataTable(m.backend).Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, sesserrors.NewNotFoundError(id, "session")
	}

	info := &Info{
		ID:       id,
		Metadata: meta,
		Expired:  meta.IsExpired(m.config.Now()),
		Active:   m.registry.active(id),
	}

	record, err := store.NewNameTable(m.backend).Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if record != nil {
		info.Sequence = record.Sequence
		cache := store.NewAttributeCache(m.backend)
		for name, aid := range record.Names {
			data, err := cache.Get(ctx, store.AttributeKey{SessionID: id, AttributeID: aid})
			if err != nil {
				return nil, err
			}
			info.Attributes = append(info.Attributes, AttributeInfo{Name: name, ID: aid, Size: len(data)})
		}
	}
	slices.SortFunc(info.Attributes, func(a, b AttributeInfo) int {
		if a.ID != b.ID {
			return int(a.ID - b.ID)
		}
		return strings.Compare(a.Name, b.Name)
	})
	return info, nil
}

// ListSessions returns the ids of all stored sessions in key order.
func (m *Manager) ListSessions(ctx context.Context) ([]string, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	var ids []string
	err := m.backend.Scan(ctx, store.PrefixMetadata, func(key string, _ []byte) error {
		if id, ok := store.SessionIDFromMetadataKey(key); ok {
			ids = append(ids, id)
		}
		return nil
	})
	return ids, err
}
