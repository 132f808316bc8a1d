package activedirectory

import (
	"strconv"
	"strings"
	"time"

	"f0oster/ntdsinspect/activedirectory/schema"
	"f0oster/ntdsinspect/activedirectory/secdesc"
	"f0oster/ntdsinspect/activedirectory/transformers"

	"github.com/google/uuid"
)

// ObjectType is the closed set of object kinds the engine decodes with a
// dedicated projection. Everything else is ObjectOther.
type ObjectType int

const (
	ObjectOther ObjectType = iota
	ObjectPerson
	ObjectGroup
	ObjectComputer
)

func (t ObjectType) String() string {
	switch t {
	case ObjectPerson:
		return schema.TypePerson
	case ObjectGroup:
		return schema.TypeGroup
	case ObjectComputer:
		return schema.TypeComputer
	}
	return "Other"
}

// ObjectTypeOf maps a type definition name onto ObjectType.
func ObjectTypeOf(name string) ObjectType {
	switch name {
	case schema.TypePerson:
		return ObjectPerson
	case schema.TypeGroup:
		return ObjectGroup
	case schema.TypeComputer:
		return ObjectComputer
	}
	return ObjectOther
}

// ActiveDirectoryObject is the untyped decoded form of one record, used for
// snapshots and comparisons.
type ActiveDirectoryObject struct {
	RecordID             int32
	DN                   string
	ObjectGUID           uuid.UUID
	ObjectType           ObjectType
	TypeName             string
	NTSecurityDescriptor *secdesc.SecurityDescriptor
	AttributeValues      map[string]transformers.Value
}

// GetNormalizedAttribute returns the display form of a decoded attribute.
func (o *ActiveDirectoryObject) GetNormalizedAttribute(name string) (string, bool) {
	v, ok := o.AttributeValues[name]
	if !ok || v.IsAbsent() {
		return "", false
	}
	return v.String(), true
}

// Attribute is one non-empty column of a record.
type Attribute struct {
	Column string
	Name   string
	Value  transformers.Value
	// Raw is the undecoded display form, kept when decoding failed.
	Raw string
	Err error
}

func (a Attribute) String() string {
	if a.Err != nil || a.Value.IsAbsent() {
		return a.Raw
	}
	return a.Value.String()
}

// TypeInfo describes one type definition found under the schema anchor.
type TypeInfo struct {
	Name     string `json:"name"`
	RecordID int32  `json:"record_id"`
	Objects  int    `json:"objects"`
}

func (TypeInfo) CSVHeader() []string {
	return []string{"name", "record_id", "objects"}
}

func (t TypeInfo) CSVRecord() []string {
	return []string{t.Name, strconv.Itoa(int(t.RecordID)), strconv.Itoa(t.Objects)}
}

// Object carries the fields every typed object shares.
type Object struct {
	RecordID           int32      `json:"record_id"`
	ParentID           int32      `json:"parent_id"`
	DN                 string     `json:"distinguished_name"`
	Name               string     `json:"name"`
	CommonName         string     `json:"cn"`
	ObjectGUID         string     `json:"object_guid"`
	SID                string     `json:"sid"`
	Description        string     `json:"description"`
	Created            *time.Time `json:"when_created"`
	Changed            *time.Time `json:"when_changed"`
	USNCreated         *int64     `json:"usn_created"`
	USNChanged         *int64     `json:"usn_changed"`
	IsDeleted          bool       `json:"is_deleted"`
	SecurityDescriptor string     `json:"security_descriptor"`

	// Attributes is filled only when every non-empty column is requested.
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Account holds the logon related fields of users and computers.
type Account struct {
	SAMAccountName          string     `json:"sam_account_name"`
	UserPrincipalName       string     `json:"user_principal_name"`
	SAMAccountType          string     `json:"sam_account_type"`
	UserAccountControl      []string   `json:"user_account_control"`
	PrimaryGroupID          *int32     `json:"primary_group_id"`
	AdminCount              *int32     `json:"admin_count"`
	LogonCount              *int32     `json:"logon_count"`
	BadPwdCount             *int32     `json:"bad_pwd_count"`
	LastLogon               *time.Time `json:"last_logon"`
	LastLogonTimestamp      *time.Time `json:"last_logon_timestamp"`
	PasswordLastSet         *time.Time `json:"password_last_set"`
	BadPasswordTime         *time.Time `json:"bad_password_time"`
	AccountExpires          *time.Time `json:"account_expires"`
	NTHash                  string     `json:"nt_hash"`
	LMHash                  string     `json:"lm_hash"`
	NTHashHistory           string     `json:"nt_hash_history"`
	LMHashHistory           string     `json:"lm_hash_history"`
	SupplementalCredentials string     `json:"supplemental_credentials"`
	MemberOf                []string   `json:"member_of"`
}

type Person struct {
	Object
	Account
	DisplayName string `json:"display_name"`
}

type Computer struct {
	Object
	Account
	DNSHostName            string `json:"dns_host_name"`
	OperatingSystem        string `json:"operating_system"`
	OperatingSystemVersion string `json:"operating_system_version"`
}

type Group struct {
	Object
	SAMAccountName string   `json:"sam_account_name"`
	SAMAccountType string   `json:"sam_account_type"`
	Members        []string `json:"members"`
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatInt32(v *int32) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(int(*v))
}

func formatInt64(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func objectHeader() []string {
	return []string{
		"record_id", "parent_id", "distinguished_name", "name", "cn", "object_guid", "sid",
		"description", "when_created", "when_changed", "usn_created", "usn_changed", "is_deleted",
		"security_descriptor",
	}
}

func (o *Object) csvRecord() []string {
	return []string{
		strconv.Itoa(int(o.RecordID)),
		strconv.Itoa(int(o.ParentID)),
		o.DN,
		o.Name,
		o.CommonName,
		o.ObjectGUID,
		o.SID,
		o.Description,
		formatTime(o.Created),
		formatTime(o.Changed),
		formatInt64(o.USNCreated),
		formatInt64(o.USNChanged),
		strconv.FormatBool(o.IsDeleted),
		o.SecurityDescriptor,
	}
}

func accountHeader() []string {
	return []string{
		"sam_account_name", "user_principal_name", "sam_account_type", "user_account_control",
		"primary_group_id", "admin_count", "logon_count", "bad_pwd_count",
		"last_logon", "last_logon_timestamp", "password_last_set", "bad_password_time", "account_expires",
		"nt_hash", "lm_hash", "nt_hash_history", "lm_hash_history", "supplemental_credentials", "member_of",
	}
}

func (a *Account) csvRecord() []string {
	return []string{
		a.SAMAccountName,
		a.UserPrincipalName,
		a.SAMAccountType,
		strings.Join(a.UserAccountControl, "|"),
		formatInt32(a.PrimaryGroupID),
		formatInt32(a.AdminCount),
		formatInt32(a.LogonCount),
		formatInt32(a.BadPwdCount),
		formatTime(a.LastLogon),
		formatTime(a.LastLogonTimestamp),
		formatTime(a.PasswordLastSet),
		formatTime(a.BadPasswordTime),
		formatTime(a.AccountExpires),
		a.NTHash,
		a.LMHash,
		a.NTHashHistory,
		a.LMHashHistory,
		a.SupplementalCredentials,
		strings.Join(a.MemberOf, ";"),
	}
}

func (*Person) CSVHeader() []string {
	h := append(objectHeader(), accountHeader()...)
	return append(h, "display_name")
}

func (p *Person) CSVRecord() []string {
	r := append(p.Object.csvRecord(), p.Account.csvRecord()...)
	return append(r, p.DisplayName)
}

func (*Computer) CSVHeader() []string {
	h := append(objectHeader(), accountHeader()...)
	return append(h, "dns_host_name", "operating_system", "operating_system_version")
}

func (c *Computer) CSVRecord() []string {
	r := append(c.Object.csvRecord(), c.Account.csvRecord()...)
	return append(r, c.DNSHostName, c.OperatingSystem, c.OperatingSystemVersion)
}

func (*Group) CSVHeader() []string {
	return append(objectHeader(), "sam_account_name", "sam_account_type", "members")
}

func (g *Group) CSVRecord() []string {
	return append(g.Object.csvRecord(), g.SAMAccountName, g.SAMAccountType, strings.Join(g.Members, ";"))
}
