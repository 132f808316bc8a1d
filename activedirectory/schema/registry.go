package schema

import (
	"fmt"

	"f0oster/ntdsinspect/activedirectory/transformers"
)

// FieldType describes how the values of one column are decoded.
type FieldType struct {
	Kind       transformers.DecoderKind
	SyntaxName string
}

// Registry maps data table columns to decoders. Attribute columns are named
// ATT<letter><attid>; the letter encodes the attribute syntax 2.5.5.<n>,
// with 'b' being 2.5.5.1. Reserved columns and attributes whose storage
// needs more than their syntax implies are registered as overrides.
type Registry struct {
	typeMap        map[string]*FieldType // syntax OID → field type
	attributeHooks map[string]*FieldType // column name → field type
}

func NewRegistry() *Registry {
	r := &Registry{
		typeMap:        make(map[string]*FieldType),
		attributeHooks: make(map[string]*FieldType),
	}
	r.init()
	return r
}

func (r *Registry) Register(attributeSyntax string, kind transformers.DecoderKind, syntaxName string) {
	r.typeMap[attributeSyntax] = &FieldType{
		Kind:       kind,
		SyntaxName: syntaxName,
	}
}

func (r *Registry) OverrideAttribute(column string, fieldType *FieldType) {
	r.attributeHooks[column] = fieldType
}

func (r *Registry) Lookup(column string) (*FieldType, error) {
	if ft, ok := r.attributeHooks[column]; ok {
		return ft, nil
	}
	syntax, ok := SyntaxOf(column)
	if ok {
		if ft, ok := r.typeMap[syntax]; ok {
			return ft, nil
		}
	}
	return nil, fmt.Errorf("no type mapping for column=%s syntax=%s", column, syntax)
}

// KindOf returns the decoder for a known attribute.
func (r *Registry) KindOf(id AttributeID) (transformers.DecoderKind, error) {
	ft, err := r.Lookup(id.Column())
	if err != nil {
		return 0, err
	}
	return ft.Kind, nil
}

// SyntaxOf derives the attribute syntax OID from an ATT column name.
func SyntaxOf(column string) (string, bool) {
	if len(column) < 5 || column[:3] != "ATT" {
		return "", false
	}
	letter := column[3]
	if letter < 'b' || letter > 'r' {
		return "", false
	}
	return fmt.Sprintf("2.5.5.%d", letter-'a'), true
}

func (r *Registry) registerSchemaSyntax() {
	r.Register("2.5.5.1", transformers.DecodeInteger, "Object(DS-DN)")
	r.Register("2.5.5.2", transformers.DecodeInteger, "String(Object-Identifier)")
	r.Register("2.5.5.3", transformers.DecodeText, "String(Case-Sensitive)")
	r.Register("2.5.5.4", transformers.DecodeText, "String(Teletex)")
	r.Register("2.5.5.5", transformers.DecodeText, "String(Printable)/String(IA5)")
	r.Register("2.5.5.6", transformers.DecodeText, "String(Numeric)")
	r.Register("2.5.5.7", transformers.DecodeBinary, "Object(DN-Binary)")
	r.Register("2.5.5.8", transformers.DecodeInteger, "Boolean")
	r.Register("2.5.5.9", transformers.DecodeInteger, "Integer/Enumeration")
	r.Register("2.5.5.10", transformers.DecodeBinary, "String(Octet)")
	r.Register("2.5.5.11", transformers.DecodeDatabaseTime, "String(Generalized-Time)")
	r.Register("2.5.5.12", transformers.DecodeText, "String(Unicode)")
	r.Register("2.5.5.13", transformers.DecodeBinary, "Object(Presentation-Address)")
	r.Register("2.5.5.14", transformers.DecodeBinary, "Object(DN-String)")
	r.Register("2.5.5.15", transformers.DecodeDescriptorID, "String(NT-Sec-Desc)")
	r.Register("2.5.5.16", transformers.DecodeLargeInteger, "Large Integer")
	r.Register("2.5.5.17", transformers.DecodeSID, "String(Sid)")
}

func (r *Registry) registerAttributeOverrides() {
	reserved := &FieldType{Kind: transformers.DecodeInteger, SyntaxName: "Reserved"}
	r.OverrideAttribute(DsRecordID.Column(), reserved)
	r.OverrideAttribute(DsParentRecordID.Column(), reserved)
	r.OverrideAttribute(DsRdnType.Column(), reserved)
	r.OverrideAttribute(DsAncestors.Column(), &FieldType{Kind: transformers.DecodeBinary, SyntaxName: "Reserved"})
	r.OverrideAttribute(DsRecordTime.Column(), &FieldType{Kind: transformers.DecodeTruncatedFiletime, SyntaxName: "Reserved"})

	r.OverrideAttribute(AttObjectGUID.Column(), &FieldType{Kind: transformers.DecodeGUID, SyntaxName: "String(Octet)"})

	filetime := &FieldType{Kind: transformers.DecodeFiletime, SyntaxName: "Large Integer (FILETIME)"}
	for _, id := range []AttributeID{AttLastLogon, AttLastLogonTimestamp, AttPwdLastSet, AttBadPwdTime} {
		r.OverrideAttribute(id.Column(), filetime)
	}
	r.OverrideAttribute(AttAccountExpires.Column(), &FieldType{Kind: transformers.DecodeExpiry, SyntaxName: "Large Integer (FILETIME)"})
}

func (r *Registry) init() {
	// See MS documentation: https://learn.microsoft.com/en-us/windows/win32/adschema/syntaxes
	r.registerSchemaSyntax()
	r.registerAttributeOverrides()
}
