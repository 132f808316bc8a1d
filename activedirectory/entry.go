package activedirectory

import (
	"errors"
	"fmt"
	"strings"

	"f0oster/ntdsinspect/activedirectory/cache"
	"f0oster/ntdsinspect/activedirectory/ldaphelpers"
	"f0oster/ntdsinspect/activedirectory/schema"
	"f0oster/ntdsinspect/activedirectory/secdesc"
	"f0oster/ntdsinspect/activedirectory/transformers"
)

// Entry is the full decoded content of one record.
type Entry struct {
	RecordID           int32
	ParentID           int32
	DN                 string
	TypeName           string
	Attributes         []Attribute
	SecurityDescriptor *secdesc.SecurityDescriptor
}

func (in *Instance) rdnOf(rec *Record) (ldaphelpers.RDN, error) {
	f := &fieldReader{rec: rec}
	name := field(f, schema.AttRdn, transformers.Value.AsText)
	rdnType := field(f, schema.DsRdnType, transformers.Value.AsInt32)
	if f.err == nil && name == nil {
		f.err = fmt.Errorf("%s: %w", schema.AttRdn, transformers.ErrValueIsMissing)
	}
	if f.err != nil {
		return ldaphelpers.RDN{}, fmt.Errorf("record %d: %w", rec.Entry.RecordID, f.err)
	}
	var t int32
	if rdnType != nil {
		t = *rdnType
	}
	return ldaphelpers.RDN{Attribute: ldaphelpers.RDNAttribute(t), Value: *name}, nil
}

// DistinguishedName names id by the records on its path from the root. The
// root record itself is not part of any name and yields "".
func (in *Instance) DistinguishedName(id int32) (string, error) {
	path, ok := in.Index.Tree().Path(id)
	if !ok {
		if _, indexed := in.Index.Lookup(id); !indexed {
			return "", fmt.Errorf("record %d is not indexed", id)
		}
		return "", fmt.Errorf("record %d is detached from the root", id)
	}

	rdns := make([]ldaphelpers.RDN, 0, len(path))
	for i := len(path) - 1; i > 0; i-- {
		e, _ := in.Index.Lookup(path[i])
		rec, err := in.Record(e)
		if err != nil {
			return "", err
		}
		rdn, err := in.rdnOf(rec)
		if err != nil {
			return "", err
		}
		rdns = append(rdns, rdn)
	}
	return ldaphelpers.BuildDN(rdns), nil
}

func (in *Instance) entryOf(e cache.IndexEntry) (*Entry, error) {
	rec, err := in.Record(e)
	if err != nil {
		return nil, err
	}
	entry := &Entry{RecordID: e.RecordID, ParentID: e.ParentID, Attributes: rec.Attributes()}
	if def, ok := in.Schema.TypeByID(e.TypeID); ok && e.HasType {
		entry.TypeName = def.Name
	}
	if entry.DN, err = in.DistinguishedName(e.RecordID); err != nil {
		in.sugar.Debugw("no distinguished name", "recordId", e.RecordID, "error", err)
	}
	if entry.SecurityDescriptor, err = in.Descriptor(rec); err != nil {
		in.sugar.Warnw("failed to decode nTSecurityDescriptor", "recordId", e.RecordID, "error", err)
	}
	return entry, nil
}

// EntryByID returns the record with the given id, or nil when there is none.
func (in *Instance) EntryByID(id int32) (*Entry, error) {
	e, ok := in.Index.Lookup(id)
	if !ok {
		return nil, nil
	}
	return in.entryOf(e)
}

// EntryByRID returns the first record whose SID ends in rid, or nil.
func (in *Instance) EntryByRID(rid uint32) (*Entry, error) {
	matches := in.Index.ByRID(rid)
	if len(matches) == 0 {
		return nil, nil
	}
	if len(matches) > 1 {
		in.sugar.Infow("several records share the RID, showing the first", "rid", rid, "matches", len(matches))
	}
	return in.entryOf(matches[0])
}

// EntryByDN follows the naming components of dn down from the root, or
// returns nil when a component has no matching child.
func (in *Instance) EntryByDN(dn string) (*Entry, error) {
	rdns, err := ldaphelpers.ParseDN(dn)
	if err != nil {
		return nil, err
	}
	tree := in.Index.Tree()
	pos := 0
	for i := len(rdns) - 1; i >= 0; i-- {
		next, err := in.childNamed(tree.Node(pos), rdns[i])
		if err != nil {
			return nil, err
		}
		if next < 0 {
			return nil, nil
		}
		pos = next
	}
	node := tree.Node(pos)
	e, _ := in.Index.Lookup(node.RecordID)
	return in.entryOf(e)
}

func (in *Instance) childNamed(parent cache.TreeNode, want ldaphelpers.RDN) (int, error) {
	tree := in.Index.Tree()
	for _, pos := range parent.Children {
		child := tree.Node(pos)
		rec, ok, err := in.RecordByID(child.RecordID)
		if err != nil {
			return -1, err
		}
		if !ok {
			continue
		}
		rdn, err := in.rdnOf(rec)
		if err != nil {
			in.sugar.Debugw("skipping child without name", "recordId", child.RecordID, "error", err)
			continue
		}
		if rdn.Matches(want.Attribute, want.Value) {
			return pos, nil
		}
	}
	return -1, nil
}

// DomainDN names the domain naming context: the longest chain of DC named
// records below the root.
func (in *Instance) DomainDN() (string, error) {
	tree := in.Index.Tree()
	pos, domain := 0, int32(0)
	for {
		next := -1
		for _, c := range tree.Node(pos).Children {
			rec, ok, err := in.RecordByID(tree.Node(c).RecordID)
			if err != nil || !ok {
				continue
			}
			if rdn, err := in.rdnOf(rec); err == nil && strings.EqualFold(rdn.Attribute, "DC") {
				next = c
				break
			}
		}
		if next < 0 {
			break
		}
		pos, domain = next, tree.Node(next).RecordID
	}
	if domain == 0 {
		return "", errors.New("no domain component below the root")
	}
	return in.DistinguishedName(domain)
}
