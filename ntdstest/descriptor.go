package ntdstest

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// ACE encodes an access control entry. Object types 0x05-0x08 take the
// optional GUIDs; pass uuid.Nil to leave one out.
func ACE(aceType, flags uint8, mask uint32, trustee []byte, objectType, inheritedObjectType uuid.UUID) []byte {
	body := binary.LittleEndian.AppendUint32(nil, mask)
	if aceType >= 0x05 && aceType <= 0x08 {
		var present uint32
		var guids []byte
		if objectType != uuid.Nil {
			present |= 0x1
			guids = append(guids, ADGUID(objectType)...)
		}
		if inheritedObjectType != uuid.Nil {
			present |= 0x2
			guids = append(guids, ADGUID(inheritedObjectType)...)
		}
		body = binary.LittleEndian.AppendUint32(body, present)
		body = append(body, guids...)
	}
	body = append(body, trustee...)

	ace := []byte{aceType, flags}
	ace = binary.LittleEndian.AppendUint16(ace, uint16(4+len(body)))
	return append(ace, body...)
}

func ACL(revision uint8, aces ...[]byte) []byte {
	size := 8
	for _, a := range aces {
		size += len(a)
	}
	acl := []byte{revision, 0}
	acl = binary.LittleEndian.AppendUint16(acl, uint16(size))
	acl = binary.LittleEndian.AppendUint16(acl, uint16(len(aces)))
	acl = append(acl, 0, 0)
	for _, a := range aces {
		acl = append(acl, a...)
	}
	return acl
}

// SecurityDescriptor encodes a self-relative descriptor. A nil part gets a
// zero offset.
func SecurityDescriptor(control uint16, owner, group, sacl, dacl []byte) []byte {
	sd := make([]byte, 20)
	sd[0] = 1
	binary.LittleEndian.PutUint16(sd[2:4], control)
	place := func(at int, part []byte) {
		if part == nil {
			return
		}
		binary.LittleEndian.PutUint32(sd[at:at+4], uint32(len(sd)))
		sd = append(sd, part...)
	}
	place(4, owner)
	place(8, group)
	place(12, sacl)
	place(16, dacl)
	return sd
}

// ADGUID returns the on-disk byte order of u.
func ADGUID(u uuid.UUID) []byte {
	b := make([]byte, 16)
	copy(b, u[:])
	b[0], b[1], b[2], b[3] = b[3], b[2], b[1], b[0]
	b[4], b[5] = b[5], b[4]
	b[6], b[7] = b[7], b[6]
	return b
}
