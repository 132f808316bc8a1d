package activedirectory

import (
	"fmt"

	"f0oster/ntdsinspect/activedirectory/cache"
	"f0oster/ntdsinspect/activedirectory/formatters"
	"f0oster/ntdsinspect/activedirectory/schema"
	"f0oster/ntdsinspect/activedirectory/transformers"

	"github.com/google/uuid"
)

// ParseResult represents the result of decoding a single record.
// It contains either a decoded object or an error.
type ParseResult struct {
	Object   *ActiveDirectoryObject
	RecordID int32 // Always populated for error reporting
	Error    error
}

// ParseEntries decodes every entry into an ActiveDirectoryObject. All
// entries get a ParseResult, with either Object or Error populated.
func (in *Instance) ParseEntries(entries []cache.IndexEntry) []*ParseResult {
	results := make([]*ParseResult, 0, len(entries))
	for _, e := range entries {
		result := &ParseResult{RecordID: e.RecordID}
		obj, err := in.parseEntry(e)
		if err != nil {
			result.Error = err
		} else {
			result.Object = obj
		}
		results = append(results, result)
	}
	return results
}

func (in *Instance) parseEntry(e cache.IndexEntry) (*ActiveDirectoryObject, error) {
	rec, err := in.Record(e)
	if err != nil {
		return nil, err
	}
	attrs := rec.Attributes()

	obj := &ActiveDirectoryObject{
		RecordID:        e.RecordID,
		ObjectType:      in.TypeOf(e),
		AttributeValues: make(map[string]transformers.Value, len(attrs)),
	}
	for _, a := range attrs {
		if a.Err != nil {
			return nil, fmt.Errorf("record %d: failed to decode %s: %w", e.RecordID, a.Name, a.Err)
		}
		obj.AttributeValues[a.Name] = a.Value
	}
	if def, ok := in.Schema.TypeByID(e.TypeID); ok && e.HasType {
		obj.TypeName = def.Name
	}

	f := &fieldReader{rec: rec}
	guid := field(f, schema.AttObjectGUID, transformers.Value.AsGUID)
	if f.err != nil {
		return nil, fmt.Errorf("record %d: %w", e.RecordID, f.err)
	}
	obj.ObjectGUID = guidOrNil(guid)

	if obj.DN, err = in.DistinguishedName(e.RecordID); err != nil {
		in.sugar.Debugw("no distinguished name", "recordId", e.RecordID, "error", err)
	}

	// security descriptor parsing is not critical for the snapshot
	if obj.NTSecurityDescriptor, err = in.Descriptor(rec); err != nil {
		in.sugar.Warnw("failed to decode nTSecurityDescriptor", "recordId", e.RecordID, "error", err)
	}
	return obj, nil
}

// fieldReader decodes a series of attributes of one record through the
// registry and keeps the first error.
type fieldReader struct {
	rec *Record
	err error
}

func field[T any](f *fieldReader, id schema.AttributeID, as func(transformers.Value) (*T, error)) *T {
	if f.err != nil {
		return nil
	}
	v, err := f.rec.Decode(id)
	if err != nil {
		f.err = err
		return nil
	}
	out, err := as(v)
	if err != nil {
		f.err = fmt.Errorf("%s: %w", id, err)
		return nil
	}
	return out
}

func (f *fieldReader) text(id schema.AttributeID) string {
	if s := field(f, id, transformers.Value.AsText); s != nil {
		return *s
	}
	return ""
}

func (f *fieldReader) hex(id schema.AttributeID) string {
	if s := field(f, id, transformers.Value.AsHex); s != nil {
		return *s
	}
	return ""
}

func (in *Instance) decodeObject(rec *Record, showAll bool) (Object, error) {
	f := &fieldReader{rec: rec}
	o := Object{
		RecordID:   rec.Entry.RecordID,
		ParentID:   rec.Entry.ParentID,
		Name:       f.text(schema.AttRdn),
		CommonName: f.text(schema.AttCommonName),
		Created:    field(f, schema.AttWhenCreated, transformers.Value.AsTime),
		Changed:    field(f, schema.AttWhenChanged, transformers.Value.AsTime),
		USNCreated: field(f, schema.AttUSNCreated, transformers.Value.AsInt64),
		USNChanged: field(f, schema.AttUSNChanged, transformers.Value.AsInt64),
	}
	o.Description = f.text(schema.AttDescription)
	o.ObjectGUID = f.text(schema.AttObjectGUID)
	o.SID = f.text(schema.AttObjectSid)
	if deleted := field(f, schema.AttIsDeleted, transformers.Value.AsInt64); deleted != nil {
		o.IsDeleted = *deleted != 0
	}
	if f.err != nil {
		return Object{}, f.err
	}

	dn, err := in.DistinguishedName(rec.Entry.RecordID)
	if err != nil {
		in.sugar.Debugw("no distinguished name", "recordId", rec.Entry.RecordID, "error", err)
	}
	o.DN = dn

	sd, err := in.Descriptor(rec)
	if err != nil {
		in.sugar.Warnw("failed to decode nTSecurityDescriptor", "recordId", rec.Entry.RecordID, "error", err)
	} else if sd != nil {
		o.SecurityDescriptor = sd.SDDL()
	}

	if showAll {
		attrs := rec.Attributes()
		o.Attributes = make(map[string]string, len(attrs))
		for _, a := range attrs {
			o.Attributes[a.Name] = a.String()
		}
	}
	return o, nil
}

func (in *Instance) decodeAccount(rec *Record) (Account, error) {
	f := &fieldReader{rec: rec}
	a := Account{
		SAMAccountName:          f.text(schema.AttSAMAccountName),
		UserPrincipalName:       f.text(schema.AttUserPrincipalName),
		PrimaryGroupID:          field(f, schema.AttPrimaryGroupID, transformers.Value.AsInt32),
		AdminCount:              field(f, schema.AttAdminCount, transformers.Value.AsInt32),
		LogonCount:              field(f, schema.AttLogonCount, transformers.Value.AsInt32),
		BadPwdCount:             field(f, schema.AttBadPwdCount, transformers.Value.AsInt32),
		LastLogon:               field(f, schema.AttLastLogon, transformers.Value.AsTime),
		LastLogonTimestamp:      field(f, schema.AttLastLogonTimestamp, transformers.Value.AsTime),
		PasswordLastSet:         field(f, schema.AttPwdLastSet, transformers.Value.AsTime),
		BadPasswordTime:         field(f, schema.AttBadPwdTime, transformers.Value.AsTime),
		AccountExpires:          field(f, schema.AttAccountExpires, transformers.Value.AsTime),
		NTHash:                  f.hex(schema.AttNTHash),
		LMHash:                  f.hex(schema.AttLMHash),
		NTHashHistory:           f.hex(schema.AttNTHashHistory),
		LMHashHistory:           f.hex(schema.AttLMHashHistory),
		SupplementalCredentials: f.hex(schema.AttSupplementalCredentials),
	}
	if t := field(f, schema.AttSAMAccountType, transformers.Value.AsUint32); t != nil {
		a.SAMAccountType = formatters.FormatSAMAccountType(*t)
	}
	if uac := field(f, schema.AttUserAccountControl, transformers.Value.AsUint32); uac != nil {
		a.UserAccountControl = formatters.UserAccountControlFlags(*uac)
	}
	if f.err != nil {
		return Account{}, f.err
	}
	a.MemberOf = in.linkedNames(rec.Entry.RecordID, in.Links.Sources(cache.MemberLinkBase, rec.Entry.RecordID))
	return a, nil
}

// linkedNames turns linked record ids into distinguished names. Dangling
// ids are logged and left out.
func (in *Instance) linkedNames(source int32, ids []int32) []string {
	entries, errs := in.Index.ResolveTargets(source, ids)
	for _, err := range errs {
		in.sugar.Warnw("dangling link", "recordId", source, "error", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		dn, err := in.DistinguishedName(e.RecordID)
		if err != nil || dn == "" {
			dn = fmt.Sprintf("#%d", e.RecordID)
		}
		names = append(names, dn)
	}
	return names
}

func (in *Instance) decodePerson(rec *Record, showAll bool) (*Person, error) {
	obj, err := in.decodeObject(rec, showAll)
	if err != nil {
		return nil, err
	}
	account, err := in.decodeAccount(rec)
	if err != nil {
		return nil, err
	}
	f := &fieldReader{rec: rec}
	p := &Person{Object: obj, Account: account, DisplayName: f.text(schema.AttDisplayName)}
	return p, f.err
}

func (in *Instance) decodeComputer(rec *Record, showAll bool) (*Computer, error) {
	obj, err := in.decodeObject(rec, showAll)
	if err != nil {
		return nil, err
	}
	account, err := in.decodeAccount(rec)
	if err != nil {
		return nil, err
	}
	f := &fieldReader{rec: rec}
	c := &Computer{
		Object:                 obj,
		Account:                account,
		DNSHostName:            f.text(schema.AttDNSHostName),
		OperatingSystem:        f.text(schema.AttOperatingSystem),
		OperatingSystemVersion: f.text(schema.AttOperatingSystemVersion),
	}
	return c, f.err
}

func (in *Instance) decodeGroup(rec *Record, showAll bool) (*Group, error) {
	obj, err := in.decodeObject(rec, showAll)
	if err != nil {
		return nil, err
	}
	f := &fieldReader{rec: rec}
	g := &Group{Object: obj, SAMAccountName: f.text(schema.AttSAMAccountName)}
	if t := field(f, schema.AttSAMAccountType, transformers.Value.AsUint32); t != nil {
		g.SAMAccountType = formatters.FormatSAMAccountType(*t)
	}
	if f.err != nil {
		return nil, f.err
	}
	g.Members = in.linkedNames(rec.Entry.RecordID, in.Links.Targets(cache.MemberLinkBase, rec.Entry.RecordID))
	return g, nil
}

// guidOrNil is used where a missing GUID is not an error.
func guidOrNil(u *uuid.UUID) uuid.UUID {
	if u == nil {
		return uuid.Nil
	}
	return *u
}
