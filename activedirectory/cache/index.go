package cache

import (
	"f0oster/ntdsinspect/activedirectory/schema"
	"f0oster/ntdsinspect/activedirectory/transformers"
	"f0oster/ntdsinspect/esedb"

	"go.uber.org/zap"
)

const deletedObjectsName = "Deleted Objects"

// Index is built by one pass over the data table and is read-only
// afterwards.
type Index struct {
	entries     []IndexEntry
	byID        map[int32]int
	children    map[int32][]int
	byType      map[int32][]int
	byRID       map[uint32][]int
	deletedFrom []int

	deletedContainers []int32
	skipped           int
	partial           int

	tree *Tree
}

// Build scans table once. A row whose record id or parent id cannot be
// decoded is skipped; a duplicate record id aborts the build.
func Build(table esedb.Table, s *schema.Schema, logger *zap.Logger) (*Index, error) {
	sugar := logger.Sugar()
	cols := s.Columns

	idx := &Index{
		entries:  make([]IndexEntry, 0, table.RowCount()),
		byID:     make(map[int32]int, table.RowCount()),
		children: make(map[int32][]int),
		byType:   make(map[int32][]int),
		byRID:    make(map[uint32][]int),
	}

	err := esedb.ForEachRow(table, func(n int, row esedb.Row) error {
		ptr := RecordPointer{Table: table.Name(), Row: n}

		id, err := transformers.Required(schema.Read(cols, row, schema.DsRecordID, transformers.Int32))
		if err != nil {
			sugar.Warnw("skipping record without usable record id", "pointer", ptr.String(), "error", err)
			idx.skipped++
			return nil
		}
		parent, err := transformers.Required(schema.Read(cols, row, schema.DsParentRecordID, transformers.Int32))
		if err != nil {
			sugar.Warnw("skipping record without usable parent id", "pointer", ptr.String(), "recordId", id, "error", err)
			idx.skipped++
			return nil
		}
		if first, ok := idx.byID[id]; ok {
			return &DuplicateRecordIDError{RecordID: id, First: idx.entries[first].Pointer, Second: ptr}
		}

		entry := IndexEntry{Pointer: ptr, RecordID: id, ParentID: parent}

		if typeID, err := schema.Read(cols, row, schema.AttObjectCategory, transformers.Int32); err != nil {
			sugar.Debugw("object category unreadable", "recordId", id, "error", err)
			entry.Partial = true
		} else if typeID != nil {
			entry.TypeID, entry.HasType = *typeID, true
		}

		if sid, err := schema.Read(cols, row, schema.AttObjectSid, transformers.SID); err != nil {
			sugar.Debugw("objectSid unreadable", "recordId", id, "error", err)
			entry.Partial = true
		} else if sid != nil {
			entry.RID, entry.HasRID = sid.RID()
		}

		if from, err := schema.Read(cols, row, schema.AttLastKnownParent, transformers.Int32); err != nil {
			sugar.Debugw("lastKnownParent unreadable", "recordId", id, "error", err)
			entry.Partial = true
		} else if from != nil {
			entry.DeletedFrom, entry.HasDeletedFrom = *from, true
		}

		if name, err := schema.Read(cols, row, schema.AttRdn, transformers.Text); err != nil {
			entry.Partial = true
		} else if name != nil && *name == deletedObjectsName {
			idx.deletedContainers = append(idx.deletedContainers, id)
		}

		idx.insert(entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	idx.tree, err = buildTree(idx)
	if err != nil {
		return nil, err
	}

	sugar.Infow("record index built",
		"records", len(idx.entries),
		"skipped", idx.skipped,
		"partial", idx.partial,
		"orphans", len(idx.tree.Orphans),
		"unreachable", len(idx.tree.Unreachable),
	)
	for _, id := range idx.tree.Orphans {
		sugar.Warnw("orphaned record", "recordId", id)
	}
	return idx, nil
}

func (idx *Index) insert(entry IndexEntry) {
	i := len(idx.entries)
	idx.entries = append(idx.entries, entry)
	idx.byID[entry.RecordID] = i
	idx.children[entry.ParentID] = append(idx.children[entry.ParentID], i)
	if entry.HasType {
		idx.byType[entry.TypeID] = append(idx.byType[entry.TypeID], i)
	}
	if entry.HasRID {
		idx.byRID[entry.RID] = append(idx.byRID[entry.RID], i)
	}
	if entry.HasDeletedFrom {
		idx.deletedFrom = append(idx.deletedFrom, i)
	}
	if entry.Partial {
		idx.partial++
	}
}

func (idx *Index) collect(positions []int) []IndexEntry {
	out := make([]IndexEntry, len(positions))
	for i, p := range positions {
		out[i] = idx.entries[p]
	}
	return out
}

func (idx *Index) Len() int { return len(idx.entries) }

// Skipped counts rows dropped because an essential key failed to decode.
func (idx *Index) Skipped() int { return idx.skipped }

// Partial counts entries indexed without one of their optional keys.
func (idx *Index) Partial() int { return idx.partial }

// Entries returns every entry in table order.
func (idx *Index) Entries() []IndexEntry {
	return idx.entries
}

func (idx *Index) Lookup(id int32) (IndexEntry, bool) {
	i, ok := idx.byID[id]
	if !ok {
		return IndexEntry{}, false
	}
	return idx.entries[i], true
}

// ChildrenOf returns the entries whose stored parent id is id.
func (idx *Index) ChildrenOf(id int32) []IndexEntry {
	return idx.collect(idx.children[id])
}

// EntriesOfType returns the entries carrying any of typeIDs, grouped by
// type in argument order.
func (idx *Index) EntriesOfType(typeIDs ...int32) []IndexEntry {
	var out []IndexEntry
	seen := make(map[int32]bool, len(typeIDs))
	for _, t := range typeIDs {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, idx.collect(idx.byType[t])...)
	}
	return out
}

func (idx *Index) ByRID(rid uint32) []IndexEntry {
	return idx.collect(idx.byRID[rid])
}

// WithDeletedFrom returns the entries that carry a lastKnownParent.
func (idx *Index) WithDeletedFrom() []IndexEntry {
	return idx.collect(idx.deletedFrom)
}

// DeletedObjectsContainers lists the record ids of every "Deleted Objects"
// container, in table order.
func (idx *Index) DeletedObjectsContainers() []int32 {
	return idx.deletedContainers
}

func (idx *Index) Tree() *Tree {
	return idx.tree
}
