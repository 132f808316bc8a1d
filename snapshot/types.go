package snapshot

import (
	"time"

	"f0oster/ntdsinspect/activedirectory/secdesc"
	"f0oster/ntdsinspect/diff"

	"github.com/google/uuid"
)

// Snapshot represents a point-in-time state of a directory object.
// It contains all necessary information for storage and comparison.
type Snapshot struct {
	// ObjectGUID uniquely identifies the object across database copies
	ObjectGUID uuid.UUID

	// ObjectType is the type definition name (e.g. "Person", "deletedObject")
	ObjectType string

	DN string

	// IsDeleted indicates the object is a tombstone
	IsDeleted bool

	// USNChanged is the update sequence number of this version, 0 if absent
	USNChanged int64

	// Attributes contains the display form of every decoded attribute.
	// The security descriptor is stored as SDDL under nTSecurityDescriptor.
	Attributes map[string][]string

	// Descriptor is kept for structural comparison and is not persisted
	Descriptor *secdesc.SecurityDescriptor

	Timestamp time.Time
}

// Status of an object across two snapshot sets.
type Status string

const (
	StatusAdded    Status = "added"
	StatusRemoved  Status = "removed"
	StatusModified Status = "modified"
)

// ObjectChange is one object that differs between two snapshot sets.
type ObjectChange struct {
	ObjectGUID uuid.UUID              `json:"object_guid"`
	DN         string                 `json:"distinguished_name"`
	ObjectType string                 `json:"object_type"`
	Status     Status                 `json:"status"`
	Changes    []diff.AttributeChange `json:"changes,omitempty"`
	Descriptor *secdesc.Diff          `json:"security_descriptor,omitempty"`
}
