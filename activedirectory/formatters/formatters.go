package formatters

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrSIDTooShort       = errors.New("invalid SID: too short")
	ErrSIDSubAuthorities = errors.New("invalid SID: insufficient length for sub-authorities")
)

// SID is a decoded security identifier.
type SID struct {
	Revision       uint8
	Authority      uint64
	SubAuthorities []uint32
}

// RID returns the final sub-authority. ok is false for a SID without any.
func (s SID) RID() (rid uint32, ok bool) {
	if len(s.SubAuthorities) == 0 {
		return 0, false
	}
	return s.SubAuthorities[len(s.SubAuthorities)-1], true
}

func (s SID) String() string {
	var sidBuffer bytes.Buffer
	sidBuffer.WriteString(fmt.Sprintf("S-%d-%d", s.Revision, s.Authority))
	for _, subAuthority := range s.SubAuthorities {
		sidBuffer.WriteString(fmt.Sprintf("-%d", subAuthority))
	}
	return sidBuffer.String()
}

// Len is the encoded size in bytes.
func (s SID) Len() int {
	return 8 + 4*len(s.SubAuthorities)
}

// DecodeSID decodes a SID in the standard Windows layout, where every
// sub-authority is little-endian. This is the layout used inside security
// descriptors.
func DecodeSID(sidBytes []byte) (SID, error) {
	return decodeSID(sidBytes, false)
}

// DecodeNTDSSID decodes a SID as stored in the objectSid column of the
// directory data table. The database keeps the RID big-endian so that
// index order follows RID order; all other sub-authorities are little-endian.
func DecodeNTDSSID(sidBytes []byte) (SID, error) {
	return decodeSID(sidBytes, true)
}

func decodeSID(sidBytes []byte, ridBigEndian bool) (SID, error) {
	// Minimum SID length is 8 bytes: revision (1), sub-authority count (1), authority (6)
	if len(sidBytes) < 8 {
		return SID{}, ErrSIDTooShort
	}

	revision := sidBytes[0]
	subAuthorityCount := int(sidBytes[1])

	// 48-bit big-endian authority
	authority := binary.BigEndian.Uint64(append([]byte{0, 0}, sidBytes[2:8]...))

	expectedLength := 8 + (subAuthorityCount * 4)
	if len(sidBytes) < expectedLength {
		return SID{}, fmt.Errorf("%w: need %d bytes, have %d", ErrSIDSubAuthorities, expectedLength, len(sidBytes))
	}

	subAuthorities := make([]uint32, 0, subAuthorityCount)
	offset := 8
	for i := 0; i < subAuthorityCount; i++ {
		chunk := sidBytes[offset : offset+4]
		if ridBigEndian && i == subAuthorityCount-1 {
			subAuthorities = append(subAuthorities, binary.BigEndian.Uint32(chunk))
		} else {
			subAuthorities = append(subAuthorities, binary.LittleEndian.Uint32(chunk))
		}
		offset += 4
	}

	return SID{
		Revision:       revision,
		Authority:      authority,
		SubAuthorities: subAuthorities,
	}, nil
}

// ConvertSIDToString formats a standard-layout SID as S-R-A-S1-...-Sn.
func ConvertSIDToString(sidBytes []byte) (string, error) {
	sid, err := DecodeSID(sidBytes)
	if err != nil {
		return "", err
	}
	return sid.String(), nil
}

// ConvertNTDSSIDToString formats an objectSid column value.
func ConvertNTDSSIDToString(sidBytes []byte) (string, error) {
	sid, err := DecodeNTDSSID(sidBytes)
	if err != nil {
		return "", err
	}
	return sid.String(), nil
}
