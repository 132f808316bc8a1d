package database

import (
	"time"

	"github.com/google/uuid"
)

// DomainRecord represents a row in the domains table: one exported
// database file.
type DomainRecord struct {
	DomainID   uuid.UUID
	DomainName string
	SourceFile string
	HighestUSN int64
}

// ChangeRecord represents a row in the attribute_changes table.
// It tracks individual attribute modifications between versions.
type ChangeRecord struct {
	ObjectID      uuid.UUID
	USNChanged    int64
	AttributeName string
	OldValue      []byte // JSON
	NewValue      []byte // JSON
	Timestamp     time.Time
}
