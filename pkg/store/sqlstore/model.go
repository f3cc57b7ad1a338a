package sqlstore

import "time"

// Entry is one key of the session namespace.
type Entry struct {
	Key       string `gorm:"column:entry_key;primaryKey;size:512"`
	Value     []byte `gorm:"column:value;not null"`
	UpdatedAt time.Time
}

// TableName implements gorm's Tabler.
func (Entry) TableName() string { return "session_kv" }
