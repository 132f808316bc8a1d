package cache

import (
	"errors"
	"fmt"
)

// RootSentinel is the parent id carried by the top of the tree.
const RootSentinel int32 = 0

// RecordPointer addresses one row of one table.
type RecordPointer struct {
	Table string
	Row   int
}

func (p RecordPointer) String() string {
	return fmt.Sprintf("%s#%d", p.Table, p.Row)
}

// IndexEntry is the per-record metadata kept in memory. Full rows are
// fetched again through Pointer when needed.
type IndexEntry struct {
	Pointer  RecordPointer
	RecordID int32
	ParentID int32

	TypeID  int32
	HasType bool

	RID    uint32
	HasRID bool

	DeletedFrom    int32
	HasDeletedFrom bool

	// Partial is set when an optional key failed to decode.
	Partial bool
}

var ErrNoRoot = errors.New("no record with the root sentinel parent")

type DuplicateRecordIDError struct {
	RecordID int32
	First    RecordPointer
	Second   RecordPointer
}

func (e *DuplicateRecordIDError) Error() string {
	return fmt.Sprintf("duplicate record id %d at %s and %s", e.RecordID, e.First, e.Second)
}

type DanglingLinkTargetError struct {
	Source int32
	Target int32
}

func (e *DanglingLinkTargetError) Error() string {
	return fmt.Sprintf("link from record %d points to unindexed record %d", e.Source, e.Target)
}
