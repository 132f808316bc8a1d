package ldaphelpers

import (
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// attributeID values the directory stores in RDNtyp_col.
var rdnAttributes = map[int32]string{
	3:       "CN",
	6:       "C",
	7:       "L",
	8:       "ST",
	10:      "O",
	11:      "OU",
	1376281: "DC",
}

const defaultRDNAttribute = "CN"

// RDNAttribute names the naming attribute for an RDNtyp_col value. Unknown
// or absent types fall back to CN.
func RDNAttribute(rdnType int32) string {
	if name, ok := rdnAttributes[rdnType]; ok {
		return name
	}
	return defaultRDNAttribute
}

// RDN is one naming component.
type RDN struct {
	Attribute string
	Value     string
}

func (r RDN) String() string {
	return r.Attribute + "=" + EscapeValue(r.Value)
}

// Matches compares attribute and value case-insensitively, as the
// directory does.
func (r RDN) Matches(attribute, value string) bool {
	return strings.EqualFold(r.Attribute, attribute) && strings.EqualFold(r.Value, value)
}

// EscapeValue escapes an attribute value per RFC 4514.
func EscapeValue(v string) string {
	if v == "" {
		return v
	}
	var b strings.Builder
	for i, r := range v {
		switch {
		case strings.ContainsRune(`,+"\<>;=`, r):
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '#' && i == 0:
			b.WriteString(`\#`)
		case r == ' ' && (i == 0 || i == len(v)-1):
			b.WriteString(`\ `)
		case r == 0:
			b.WriteString(`\00`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// BuildDN joins rdns, leaf first.
func BuildDN(rdns []RDN) string {
	parts := make([]string, len(rdns))
	for i, r := range rdns {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}

// ParseDN splits a distinguished name into RDNs, leaf first. Multi-valued
// RDNs are rejected since the directory never names objects that way.
func ParseDN(dn string) ([]RDN, error) {
	parsed, err := ldap.ParseDN(dn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DN %q: %w", dn, err)
	}
	if len(parsed.RDNs) == 0 {
		return nil, fmt.Errorf("failed to parse DN %q: empty", dn)
	}
	rdns := make([]RDN, 0, len(parsed.RDNs))
	for _, rdn := range parsed.RDNs {
		if len(rdn.Attributes) != 1 {
			return nil, fmt.Errorf("failed to parse DN %q: multi-valued RDN", dn)
		}
		rdns = append(rdns, RDN{Attribute: rdn.Attributes[0].Type, Value: rdn.Attributes[0].Value})
	}
	return rdns, nil
}
