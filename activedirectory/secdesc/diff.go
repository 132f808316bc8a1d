package secdesc

import (
	"fmt"

	"f0oster/ntdsinspect/activedirectory/formatters"
)

// SIDResolver maps a SID string to a display name.
type SIDResolver interface {
	ResolveSID(sid string) (string, bool)
}

// Diff is the difference between two security descriptors.
type Diff struct {
	OwnerChanged   bool     `json:"owner_changed"`
	OldOwner       *SIDInfo `json:"old_owner,omitempty"`
	NewOwner       *SIDInfo `json:"new_owner,omitempty"`
	GroupChanged   bool     `json:"group_changed"`
	OldGroup       *SIDInfo `json:"old_group,omitempty"`
	NewGroup       *SIDInfo `json:"new_group,omitempty"`
	ControlChanged bool     `json:"control_changed"`
	OldControl     uint16   `json:"old_control,omitempty"`
	NewControl     uint16   `json:"new_control,omitempty"`
	DACL           *ACLDiff `json:"dacl_diff,omitempty"`
	HasChanges     bool     `json:"has_changes"`
}

type SIDInfo struct {
	Raw          string `json:"raw"`
	ResolvedName string `json:"resolved_name,omitempty"`
}

type ACLDiff struct {
	RevisionChanged bool       `json:"revision_changed"`
	OldRevision     uint8      `json:"old_revision,omitempty"`
	NewRevision     uint8      `json:"new_revision,omitempty"`
	OldACEs         []ACEState `json:"old_aces,omitempty"`
	NewACEs         []ACEState `json:"new_aces,omitempty"`
}

// ACEStatus is one of unchanged, added, removed or moved.
type ACEStatus string

const (
	ACEUnchanged ACEStatus = "unchanged"
	ACEAdded     ACEStatus = "added"
	ACERemoved   ACEStatus = "removed"
	ACEMoved     ACEStatus = "moved"
)

type ACEState struct {
	Position  int       `json:"position"`
	ACE       *ACEInfo  `json:"ace"`
	Status    ACEStatus `json:"status"`
	MovedTo   int       `json:"moved_to,omitempty"`
	MovedFrom int       `json:"moved_from,omitempty"`
}

// ACEInfo is an ACE prepared for display.
type ACEInfo struct {
	TypeName                string   `json:"type_name"`
	TypeCode                uint8    `json:"type_code"`
	Flags                   uint8    `json:"flags"`
	SID                     *SIDInfo `json:"sid"`
	Mask                    uint32   `json:"mask"`
	MaskFlags               []string `json:"mask_flags"`
	ObjectTypeGUID          string   `json:"object_type_guid,omitempty"`
	InheritedObjectTypeGUID string   `json:"inherited_object_type_guid,omitempty"`
}

// Changed reports whether any ACE was added, removed or moved.
func (d *ACLDiff) Changed() bool {
	if d == nil {
		return false
	}
	if d.RevisionChanged {
		return true
	}
	for _, list := range [][]ACEState{d.OldACEs, d.NewACEs} {
		for _, s := range list {
			if s.Status != ACEUnchanged {
				return true
			}
		}
	}
	return false
}

// Compare computes the difference between two descriptors. Either side may
// be nil.
func Compare(oldSD, newSD *SecurityDescriptor, resolver SIDResolver) *Diff {
	if oldSD == nil && newSD == nil {
		return &Diff{}
	}

	if oldSD == nil {
		return &Diff{
			HasChanges:   true,
			OwnerChanged: true,
			NewOwner:     sidToInfo(newSD.Owner, resolver),
			GroupChanged: true,
			NewGroup:     sidToInfo(newSD.Group, resolver),
			DACL:         compareACL(nil, newSD.DACL, resolver),
		}
	}
	if newSD == nil {
		return &Diff{
			HasChanges:   true,
			OwnerChanged: true,
			OldOwner:     sidToInfo(oldSD.Owner, resolver),
			GroupChanged: true,
			OldGroup:     sidToInfo(oldSD.Group, resolver),
			DACL:         compareACL(oldSD.DACL, nil, resolver),
		}
	}

	d := &Diff{
		OwnerChanged:   sidString(oldSD.Owner) != sidString(newSD.Owner),
		GroupChanged:   sidString(oldSD.Group) != sidString(newSD.Group),
		ControlChanged: oldSD.Control != newSD.Control,
	}
	if d.OwnerChanged {
		d.OldOwner = sidToInfo(oldSD.Owner, resolver)
		d.NewOwner = sidToInfo(newSD.Owner, resolver)
	}
	if d.GroupChanged {
		d.OldGroup = sidToInfo(oldSD.Group, resolver)
		d.NewGroup = sidToInfo(newSD.Group, resolver)
	}
	if d.ControlChanged {
		d.OldControl = oldSD.Control
		d.NewControl = newSD.Control
	}
	if oldSD.DACL != nil || newSD.DACL != nil {
		d.DACL = compareACL(oldSD.DACL, newSD.DACL, resolver)
	}
	d.HasChanges = d.OwnerChanged || d.GroupChanged || d.ControlChanged || d.DACL.Changed()
	return d
}

func sidString(sid *formatters.SID) string {
	if sid == nil {
		return ""
	}
	return sid.String()
}

func sidToInfo(sid *formatters.SID, resolver SIDResolver) *SIDInfo {
	if sid == nil {
		return nil
	}
	info := &SIDInfo{Raw: sid.String()}
	if resolver != nil {
		if name, ok := resolver.ResolveSID(info.Raw); ok {
			info.ResolvedName = name
		}
	}
	return info
}

func compareACL(oldACL, newACL *ACL, resolver SIDResolver) *ACLDiff {
	d := &ACLDiff{
		OldACEs: make([]ACEState, 0),
		NewACEs: make([]ACEState, 0),
	}

	var oldACEs, newACEs []ACE
	if oldACL != nil {
		oldACEs = oldACL.ACEs
		d.OldRevision = oldACL.Revision
	}
	if newACL != nil {
		newACEs = newACL.ACEs
		d.NewRevision = newACL.Revision
	}
	d.RevisionChanged = oldACL == nil || newACL == nil || oldACL.Revision != newACL.Revision

	oldPositions := positions(oldACEs)
	newPositions := positions(newACEs)

	for i, ace := range oldACEs {
		state := ACEState{Position: i, ACE: aceToInfo(ace, resolver), Status: ACEUnchanged}
		if newPos, ok := newPositions[aceKey(ace)]; !ok {
			state.Status = ACERemoved
		} else if newPos != i {
			state.Status = ACEMoved
			state.MovedTo = newPos
		}
		d.OldACEs = append(d.OldACEs, state)
	}
	for i, ace := range newACEs {
		state := ACEState{Position: i, ACE: aceToInfo(ace, resolver), Status: ACEUnchanged}
		if oldPos, ok := oldPositions[aceKey(ace)]; !ok {
			state.Status = ACEAdded
		} else if oldPos != i {
			state.Status = ACEMoved
			state.MovedFrom = oldPos
		}
		d.NewACEs = append(d.NewACEs, state)
	}
	return d
}

func positions(aces []ACE) map[string]int {
	m := make(map[string]int, len(aces))
	for i, ace := range aces {
		if _, seen := m[aceKey(ace)]; !seen {
			m[aceKey(ace)] = i
		}
	}
	return m
}

func aceKey(ace ACE) string {
	objectType, inherited := "", ""
	if ace.ObjectType != nil {
		objectType = ace.ObjectType.String()
	}
	if ace.InheritedObjectType != nil {
		inherited = ace.InheritedObjectType.String()
	}
	return fmt.Sprintf("%d:%d:%s:%d:%s:%s",
		ace.Type,
		ace.Flags,
		ace.Trustee.String(),
		ace.Mask,
		objectType,
		inherited,
	)
}

func aceToInfo(ace ACE, resolver SIDResolver) *ACEInfo {
	info := &ACEInfo{
		TypeName:  ace.TypeName(),
		TypeCode:  ace.Type,
		Flags:     ace.Flags,
		SID:       sidToInfo(&ace.Trustee, resolver),
		Mask:      ace.Mask,
		MaskFlags: MaskFlags(ace.Mask),
	}
	if ace.ObjectType != nil {
		info.ObjectTypeGUID = ace.ObjectType.String()
	}
	if ace.InheritedObjectType != nil {
		info.InheritedObjectTypeGUID = ace.InheritedObjectType.String()
	}
	return info
}
