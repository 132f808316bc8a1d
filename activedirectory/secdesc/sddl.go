package secdesc

import (
	"fmt"
	"strings"

	"f0oster/ntdsinspect/activedirectory/formatters"
)

var sddlACETypes = map[uint8]string{
	0x00: "A",
	0x01: "D",
	0x02: "AU",
	0x03: "AL",
	0x05: "OA",
	0x06: "OD",
	0x07: "OU",
	0x08: "OL",
	0x09: "XA",
	0x0A: "XD",
	0x0B: "ZA",
	0x0D: "XU",
	0x11: "ML",
}

var sddlACEFlags = []struct {
	bit  uint8
	abbr string
}{
	{0x01, "OI"},
	{0x02, "CI"},
	{0x04, "NP"},
	{0x08, "IO"},
	{0x10, "ID"},
	{0x40, "SA"},
	{0x80, "FA"},
}

type accessRight struct {
	bit  uint32
	abbr string
	name string
}

// Directory service rights in the order SDDL writes them.
var accessRights = []accessRight{
	{0x00000001, "CC", "CREATE_CHILD"},
	{0x00000002, "DC", "DELETE_CHILD"},
	{0x00000004, "LC", "LIST_CHILDREN"},
	{0x00000008, "SW", "SELF_WRITE"},
	{0x00000010, "RP", "READ_PROPERTY"},
	{0x00000020, "WP", "WRITE_PROPERTY"},
	{0x00000040, "DT", "DELETE_TREE"},
	{0x00000080, "LO", "LIST_OBJECT"},
	{0x00000100, "CR", "CONTROL_ACCESS"},
	{0x00010000, "SD", "DELETE"},
	{0x00020000, "RC", "READ_CONTROL"},
	{0x00040000, "WD", "WRITE_DAC"},
	{0x00080000, "WO", "WRITE_OWNER"},
	{0x10000000, "GA", "GENERIC_ALL"},
	{0x20000000, "GX", "GENERIC_EXECUTE"},
	{0x40000000, "GW", "GENERIC_WRITE"},
	{0x80000000, "GR", "GENERIC_READ"},
}

var wellKnownSIDs = map[string]string{
	"S-1-1-0":      "WD",
	"S-1-3-0":      "CO",
	"S-1-3-1":      "CG",
	"S-1-5-7":      "AN",
	"S-1-5-9":      "ED",
	"S-1-5-10":     "PS",
	"S-1-5-11":     "AU",
	"S-1-5-18":     "SY",
	"S-1-5-32-544": "BA",
	"S-1-5-32-545": "BU",
	"S-1-5-32-548": "AO",
	"S-1-5-32-549": "SO",
	"S-1-5-32-550": "PO",
	"S-1-5-32-551": "BO",
	"S-1-5-32-554": "RU",
}

// MaskFlags names the rights set in mask. Bits without a name are
// reported as a single hex remainder.
func MaskFlags(mask uint32) []string {
	var names []string
	rest := mask
	for _, r := range accessRights {
		if mask&r.bit != 0 {
			names = append(names, r.name)
			rest &^= r.bit
		}
	}
	if rest != 0 {
		names = append(names, fmt.Sprintf("0x%x", rest))
	}
	return names
}

func sddlRights(mask uint32) string {
	var b strings.Builder
	rest := mask
	for _, r := range accessRights {
		if mask&r.bit != 0 {
			b.WriteString(r.abbr)
			rest &^= r.bit
		}
	}
	if rest != 0 || mask == 0 {
		return fmt.Sprintf("0x%x", mask)
	}
	return b.String()
}

func sddlSID(sid formatters.SID) string {
	s := sid.String()
	if abbr, ok := wellKnownSIDs[s]; ok {
		return abbr
	}
	return s
}

func (a ACE) SDDL() string {
	typ, ok := sddlACETypes[a.Type]
	if !ok {
		typ = fmt.Sprintf("0x%x", a.Type)
	}
	var flags strings.Builder
	for _, f := range sddlACEFlags {
		if a.Flags&f.bit != 0 {
			flags.WriteString(f.abbr)
		}
	}
	objectType, inherited := "", ""
	if a.ObjectType != nil {
		objectType = a.ObjectType.String()
	}
	if a.InheritedObjectType != nil {
		inherited = a.InheritedObjectType.String()
	}
	return fmt.Sprintf("(%s;%s;%s;%s;%s;%s)", typ, flags.String(), sddlRights(a.Mask), objectType, inherited, sddlSID(a.Trustee))
}

func aclSDDL(b *strings.Builder, prefix string, acl *ACL, protected, autoInherited bool) {
	b.WriteString(prefix)
	if protected {
		b.WriteString("P")
	}
	if autoInherited {
		b.WriteString("AI")
	}
	if acl == nil {
		b.WriteString("NO_ACCESS_CONTROL")
		return
	}
	for _, ace := range acl.ACEs {
		b.WriteString(ace.SDDL())
	}
}

// SDDL renders the descriptor in Security Descriptor Definition Language.
func (sd *SecurityDescriptor) SDDL() string {
	var b strings.Builder
	if sd.Owner != nil {
		b.WriteString("O:" + sddlSID(*sd.Owner))
	}
	if sd.Group != nil {
		b.WriteString("G:" + sddlSID(*sd.Group))
	}
	if sd.Control&ControlDACLPresent != 0 {
		aclSDDL(&b, "D:", sd.DACL, sd.Control&ControlDACLProtected != 0, sd.Control&ControlDACLAutoInherited != 0)
	}
	if sd.Control&ControlSACLPresent != 0 {
		aclSDDL(&b, "S:", sd.SACL, sd.Control&ControlSACLProtected != 0, sd.Control&ControlSACLAutoInherited != 0)
	}
	return b.String()
}
