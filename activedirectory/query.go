package activedirectory

import (
	"fmt"

	"f0oster/ntdsinspect/activedirectory/cache"
	"f0oster/ntdsinspect/activedirectory/schema"
)

// listTyped decodes every record of type t and hands it to fn. A record
// that fails to decode is logged and counted, and the listing goes on; an
// error returned by fn stops it.
func listTyped[T any](in *Instance, t ObjectType, decode func(*Record) (T, error), fn func(T) error) (skipped int, err error) {
	typeID, ok := in.TypeID(t)
	if !ok {
		return 0, &schema.MissingTypeError{Name: t.String()}
	}
	for _, e := range in.Index.EntriesOfType(typeID) {
		rec, err := in.Record(e)
		if err != nil {
			in.sugar.Warnw("skipping record", "recordId", e.RecordID, "type", t, "error", err)
			skipped++
			continue
		}
		obj, err := decode(rec)
		if err != nil {
			in.sugar.Warnw("skipping record", "recordId", e.RecordID, "type", t, "error", err)
			skipped++
			continue
		}
		if err := fn(obj); err != nil {
			return skipped, err
		}
	}
	if skipped > 0 {
		in.sugar.Infow("listing finished with skipped records", "type", t, "skipped", skipped)
	}
	return skipped, nil
}

// Count returns how many records carry type t.
func (in *Instance) Count(t ObjectType) int {
	typeID, ok := in.TypeID(t)
	if !ok {
		return 0
	}
	return len(in.Index.EntriesOfType(typeID))
}

// ListPersons streams every user. showAll additionally fills
// Object.Attributes with every non-empty column.
func (in *Instance) ListPersons(showAll bool, fn func(*Person) error) (int, error) {
	return listTyped(in, ObjectPerson, func(rec *Record) (*Person, error) {
		return in.decodePerson(rec, showAll)
	}, fn)
}

func (in *Instance) ListGroups(showAll bool, fn func(*Group) error) (int, error) {
	return listTyped(in, ObjectGroup, func(rec *Record) (*Group, error) {
		return in.decodeGroup(rec, showAll)
	}, fn)
}

func (in *Instance) ListComputers(showAll bool, fn func(*Computer) error) (int, error) {
	return listTyped(in, ObjectComputer, func(rec *Record) (*Computer, error) {
		return in.decodeComputer(rec, showAll)
	}, fn)
}

// Types lists every type definition with the number of records using it.
func (in *Instance) Types() []TypeInfo {
	defs := in.Schema.Types()
	out := make([]TypeInfo, 0, len(defs))
	for _, def := range defs {
		out = append(out, TypeInfo{
			Name:     def.Name,
			RecordID: def.RecordID,
			Objects:  len(in.Index.EntriesOfType(def.RecordID)),
		})
	}
	return out
}

// TreeEntry is one container of the rendered tree.
type TreeEntry struct {
	RecordID int32        `json:"record_id"`
	Name     string       `json:"name"`
	Children []*TreeEntry `json:"children,omitempty"`
}

// TreeView returns the hierarchy below the root down to maxDepth levels.
// A maxDepth of 0 returns the root alone.
func (in *Instance) TreeView(maxDepth int) (*TreeEntry, error) {
	if maxDepth < 0 {
		return nil, fmt.Errorf("invalid tree depth %d", maxDepth)
	}
	// Walk is depth first, so the parent of a node at depth d is the last
	// entry seen at depth d-1.
	var open []*TreeEntry
	err := in.Index.Tree().Walk(maxDepth, func(node cache.TreeNode, depth int) error {
		entry, err := in.treeEntry(node.RecordID)
		if err != nil {
			return err
		}
		open = append(open[:depth], entry)
		if depth > 0 {
			parent := open[depth-1]
			parent.Children = append(parent.Children, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return open[0], nil
}

func (in *Instance) treeEntry(id int32) (*TreeEntry, error) {
	rec, ok, err := in.RecordByID(id)
	if err != nil {
		return nil, err
	}
	entry := &TreeEntry{RecordID: id, Name: fmt.Sprintf("record %d", id)}
	if ok {
		if name := rec.Text(schema.AttRdn); name != "" {
			entry.Name = name
		}
	}
	return entry, nil
}
