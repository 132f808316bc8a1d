package snapshot

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"f0oster/ntdsinspect/activedirectory"
	"f0oster/ntdsinspect/activedirectory/schema"
	"f0oster/ntdsinspect/activedirectory/secdesc"
	"f0oster/ntdsinspect/diff"

	"github.com/google/uuid"
)

// ObjectTypeDeleted is used for tombstones that lost their object category.
const ObjectTypeDeleted = "deletedObject"

var descriptorAttribute = schema.AttNTSecurityDescriptor.String()

// Service handles snapshot creation and comparison for directory objects.
type Service struct {
	now func() time.Time
}

func NewService() *Service {
	return &Service{now: time.Now}
}

// CreateSnapshot converts an ActiveDirectoryObject into a Snapshot. The
// object must carry an objectGUID, which is the snapshot identity.
func (s *Service) CreateSnapshot(obj *activedirectory.ActiveDirectoryObject) (*Snapshot, error) {
	if obj == nil {
		return nil, fmt.Errorf("cannot create snapshot from nil object")
	}
	if obj.ObjectGUID == uuid.Nil {
		return nil, fmt.Errorf("record %d (DN: %s) has no objectGUID", obj.RecordID, obj.DN)
	}

	var usnChanged int64
	if v, ok := obj.GetNormalizedAttribute(schema.AttUSNChanged.String()); ok {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse uSNChanged value '%s': %w", v, err)
		}
		usnChanged = parsed
	}

	isDeleted := false
	if v, ok := obj.GetNormalizedAttribute(schema.AttIsDeleted.String()); ok && v != "0" {
		isDeleted = true
	}

	attributes := make(map[string][]string, len(obj.AttributeValues))
	for name, v := range obj.AttributeValues {
		if v.IsAbsent() {
			continue
		}
		attributes[name] = []string{v.String()}
	}
	// the sd_table key is meaningless across files, the descriptor is not
	delete(attributes, descriptorAttribute)
	if obj.NTSecurityDescriptor != nil {
		attributes[descriptorAttribute] = []string{obj.NTSecurityDescriptor.SDDL()}
	}

	return &Snapshot{
		ObjectGUID: obj.ObjectGUID,
		ObjectType: extractObjectType(obj, isDeleted),
		DN:         obj.DN,
		IsDeleted:  isDeleted,
		USNChanged: usnChanged,
		Attributes: attributes,
		Descriptor: obj.NTSecurityDescriptor,
		Timestamp:  s.now(),
	}, nil
}

// CompareSnapshots compares two attribute maps and returns the changes.
func (s *Service) CompareSnapshots(oldAttributes, newAttributes map[string][]string) []diff.AttributeChange {
	return diff.FindChanges(oldAttributes, newAttributes)
}

// CompareSets matches two snapshot sets by objectGUID and reports every
// object that was added, removed or modified, ordered by DN.
func (s *Service) CompareSets(oldSet, newSet []*Snapshot, resolver secdesc.SIDResolver) []ObjectChange {
	oldByGUID := make(map[uuid.UUID]*Snapshot, len(oldSet))
	for _, snap := range oldSet {
		oldByGUID[snap.ObjectGUID] = snap
	}

	var changes []ObjectChange
	seen := make(map[uuid.UUID]bool, len(newSet))
	for _, cur := range newSet {
		seen[cur.ObjectGUID] = true
		prev, ok := oldByGUID[cur.ObjectGUID]
		if !ok {
			changes = append(changes, objectChange(cur, StatusAdded))
			continue
		}

		attrs := s.CompareSnapshots(prev.Attributes, cur.Attributes)
		var sd *secdesc.Diff
		if d := secdesc.Compare(prev.Descriptor, cur.Descriptor, resolver); d.HasChanges {
			sd = d
		}
		if len(attrs) == 0 && sd == nil {
			continue
		}
		change := objectChange(cur, StatusModified)
		change.Changes = attrs
		change.Descriptor = sd
		changes = append(changes, change)
	}
	for _, prev := range oldSet {
		if !seen[prev.ObjectGUID] {
			changes = append(changes, objectChange(prev, StatusRemoved))
		}
	}

	sort.SliceStable(changes, func(i, j int) bool { return changes[i].DN < changes[j].DN })
	return changes
}

func objectChange(snap *Snapshot, status Status) ObjectChange {
	return ObjectChange{
		ObjectGUID: snap.ObjectGUID,
		DN:         snap.DN,
		ObjectType: snap.ObjectType,
		Status:     status,
	}
}

// extractObjectType prefers the type definition name. Tombstones that lost
// their objectCategory are reported as deletedObject.
func extractObjectType(obj *activedirectory.ActiveDirectoryObject, isDeleted bool) string {
	if obj.TypeName != "" {
		return obj.TypeName
	}
	if isDeleted {
		return ObjectTypeDeleted
	}
	return "unknown"
}
