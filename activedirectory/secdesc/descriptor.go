package secdesc

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"f0oster/ntdsinspect/activedirectory/formatters"
	"f0oster/ntdsinspect/activedirectory/transformers"

	"github.com/google/uuid"
)

// Control bits of the descriptor header.
const (
	ControlOwnerDefaulted    uint16 = 0x0001
	ControlGroupDefaulted    uint16 = 0x0002
	ControlDACLPresent       uint16 = 0x0004
	ControlDACLDefaulted     uint16 = 0x0008
	ControlSACLPresent       uint16 = 0x0010
	ControlSACLDefaulted     uint16 = 0x0020
	ControlDACLAutoInherited uint16 = 0x0400
	ControlSACLAutoInherited uint16 = 0x0800
	ControlDACLProtected     uint16 = 0x1000
	ControlSACLProtected     uint16 = 0x2000
	ControlSelfRelative      uint16 = 0x8000
)

const (
	descriptorRevision = 1
	headerSize         = 20
	aclHeaderSize      = 8
	aceHeaderSize      = 4

	objectTypePresent          = 0x1
	inheritedObjectTypePresent = 0x2
)

// SecurityDescriptor is a decoded self-relative descriptor.
type SecurityDescriptor struct {
	ID       int64
	Revision uint8
	Control  uint16
	Owner    *formatters.SID
	Group    *formatters.SID
	DACL     *ACL
	SACL     *ACL
}

type ACL struct {
	Revision uint8
	ACEs     []ACE
}

// ACE is one access control entry. ObjectType and InheritedObjectType are
// only set for the object ACE variants that carry them.
type ACE struct {
	Type                uint8
	Flags               uint8
	Mask                uint32
	Trustee             formatters.SID
	ObjectType          *uuid.UUID
	InheritedObjectType *uuid.UUID
}

func (a ACE) TypeName() string {
	return aceTypeName(a.Type)
}

func (a ACE) IsObjectACE() bool {
	return objectLayout[a.Type]
}

// DescriptorDecodeError keeps the failing blob so it can be inspected
// outside the tool.
type DescriptorDecodeError struct {
	ID     int64
	Blob   string
	Reason string
	Err    error
}

func (e *DescriptorDecodeError) Error() string {
	msg := fmt.Sprintf("failed to decode security descriptor %d: %s", e.ID, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DescriptorDecodeError) Unwrap() error {
	return e.Err
}

// ACE types sharing the mask+SID body.
var basicLayout = map[uint8]bool{
	0x00: true, 0x01: true, 0x02: true, 0x03: true,
	0x09: true, 0x0A: true, 0x0D: true, 0x11: true,
}

// ACE types with the object flags and optional GUIDs before the SID.
var objectLayout = map[uint8]bool{
	0x05: true, 0x06: true, 0x07: true, 0x08: true,
	0x0B: true, 0x0C: true, 0x0F: true, 0x10: true,
}

type decoder struct {
	id   int64
	blob []byte
}

func (d *decoder) fail(reason string, err error) error {
	return &DescriptorDecodeError{
		ID:     d.id,
		Blob:   base64.StdEncoding.EncodeToString(d.blob),
		Reason: reason,
		Err:    err,
	}
}

// Parse decodes a self-relative security descriptor.
func Parse(id int64, blob []byte) (*SecurityDescriptor, error) {
	d := &decoder{id: id, blob: blob}

	if len(blob) < headerSize {
		return nil, d.fail(fmt.Sprintf("header needs %d bytes, have %d", headerSize, len(blob)), nil)
	}
	if blob[0] != descriptorRevision {
		return nil, d.fail(fmt.Sprintf("unsupported revision %d", blob[0]), nil)
	}

	sd := &SecurityDescriptor{
		ID:       id,
		Revision: blob[0],
		Control:  binary.LittleEndian.Uint16(blob[2:4]),
	}
	ownerOffset := binary.LittleEndian.Uint32(blob[4:8])
	groupOffset := binary.LittleEndian.Uint32(blob[8:12])
	saclOffset := binary.LittleEndian.Uint32(blob[12:16])
	daclOffset := binary.LittleEndian.Uint32(blob[16:20])

	var err error
	if sd.Owner, err = d.sidAt(ownerOffset, "owner"); err != nil {
		return nil, err
	}
	if sd.Group, err = d.sidAt(groupOffset, "group"); err != nil {
		return nil, err
	}
	if sd.Control&ControlSACLPresent != 0 {
		if sd.SACL, err = d.aclAt(saclOffset, "SACL"); err != nil {
			return nil, err
		}
	}
	if sd.Control&ControlDACLPresent != 0 {
		if sd.DACL, err = d.aclAt(daclOffset, "DACL"); err != nil {
			return nil, err
		}
	}
	return sd, nil
}

func (d *decoder) sidAt(offset uint32, what string) (*formatters.SID, error) {
	if offset == 0 {
		return nil, nil
	}
	if int(offset) >= len(d.blob) {
		return nil, d.fail(fmt.Sprintf("%s offset %d out of range", what, offset), nil)
	}
	sid, err := formatters.DecodeSID(d.blob[offset:])
	if err != nil {
		return nil, d.fail(what+" SID", err)
	}
	return &sid, nil
}

func (d *decoder) aclAt(offset uint32, what string) (*ACL, error) {
	// a present-but-null ACL
	if offset == 0 {
		return nil, nil
	}
	start := int(offset)
	if start+aclHeaderSize > len(d.blob) {
		return nil, d.fail(fmt.Sprintf("%s header at %d out of range", what, offset), nil)
	}
	hdr := d.blob[start:]
	revision := hdr[0]
	if revision != 2 && revision != 4 {
		return nil, d.fail(fmt.Sprintf("unsupported %s revision %d", what, revision), nil)
	}
	size := int(binary.LittleEndian.Uint16(hdr[2:4]))
	count := int(binary.LittleEndian.Uint16(hdr[4:6]))
	if size < aclHeaderSize || start+size > len(d.blob) {
		return nil, d.fail(fmt.Sprintf("%s size %d exceeds descriptor", what, size), nil)
	}

	acl := &ACL{Revision: revision, ACEs: make([]ACE, 0, count)}
	body := d.blob[start+aclHeaderSize : start+size]
	pos := 0
	for i := 0; i < count; i++ {
		ace, n, err := d.readACE(body[pos:], what, i)
		if err != nil {
			return nil, err
		}
		acl.ACEs = append(acl.ACEs, ace)
		pos += n
	}
	return acl, nil
}

func (d *decoder) readACE(b []byte, what string, index int) (ACE, int, error) {
	where := fmt.Sprintf("%s ACE %d", what, index)
	if len(b) < aceHeaderSize {
		return ACE{}, 0, d.fail(where+" truncated", nil)
	}
	ace := ACE{Type: b[0], Flags: b[1]}
	size := int(binary.LittleEndian.Uint16(b[2:4]))
	if size < aceHeaderSize+4 || size > len(b) {
		return ACE{}, 0, d.fail(fmt.Sprintf("%s has invalid size %d", where, size), nil)
	}
	body := b[aceHeaderSize:size]
	ace.Mask = binary.LittleEndian.Uint32(body[0:4])
	rest := body[4:]

	switch {
	case basicLayout[ace.Type]:
	case objectLayout[ace.Type]:
		if len(rest) < 4 {
			return ACE{}, 0, d.fail(where+" object flags truncated", nil)
		}
		flags := binary.LittleEndian.Uint32(rest[0:4])
		rest = rest[4:]
		var err error
		if flags&objectTypePresent != 0 {
			if ace.ObjectType, rest, err = readGUID(rest); err != nil {
				return ACE{}, 0, d.fail(where+" object type", err)
			}
		}
		if flags&inheritedObjectTypePresent != 0 {
			if ace.InheritedObjectType, rest, err = readGUID(rest); err != nil {
				return ACE{}, 0, d.fail(where+" inherited object type", err)
			}
		}
	default:
		return ACE{}, 0, d.fail(fmt.Sprintf("%s has unsupported type 0x%02x", where, ace.Type), nil)
	}

	sid, err := formatters.DecodeSID(rest)
	if err != nil {
		return ACE{}, 0, d.fail(where+" trustee", err)
	}
	ace.Trustee = sid
	return ace, size, nil
}

func readGUID(b []byte) (*uuid.UUID, []byte, error) {
	if len(b) < 16 {
		return nil, b, fmt.Errorf("need 16 bytes, have %d", len(b))
	}
	u, err := transformers.ADGuidToUUID(b[:16])
	if err != nil {
		return nil, b, err
	}
	return &u, b[16:], nil
}

func aceTypeName(aceType uint8) string {
	names := map[uint8]string{
		0x00: "ACCESS_ALLOWED_ACE",
		0x01: "ACCESS_DENIED_ACE",
		0x02: "SYSTEM_AUDIT_ACE",
		0x03: "SYSTEM_ALARM_ACE",
		0x05: "ACCESS_ALLOWED_OBJECT_ACE",
		0x06: "ACCESS_DENIED_OBJECT_ACE",
		0x07: "SYSTEM_AUDIT_OBJECT_ACE",
		0x08: "SYSTEM_ALARM_OBJECT_ACE",
		0x09: "ACCESS_ALLOWED_CALLBACK_ACE",
		0x0A: "ACCESS_DENIED_CALLBACK_ACE",
		0x0B: "ACCESS_ALLOWED_CALLBACK_OBJECT_ACE",
		0x0C: "ACCESS_DENIED_CALLBACK_OBJECT_ACE",
		0x0D: "SYSTEM_AUDIT_CALLBACK_ACE",
		0x0F: "SYSTEM_AUDIT_CALLBACK_OBJECT_ACE",
		0x10: "SYSTEM_ALARM_CALLBACK_OBJECT_ACE",
		0x11: "SYSTEM_MANDATORY_LABEL_ACE",
	}
	if name, ok := names[aceType]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN_ACE_TYPE_%02x", aceType)
}
