package schema

import (
	"fmt"
	"sort"
)

// AttributeID names a directory attribute independently of the column it
// occupies in a particular file.
type AttributeID int

const (
	DsRecordID AttributeID = iota + 1
	DsParentRecordID
	DsRecordTime
	DsAncestors
	DsRdnType

	AttObjectCategory
	AttRdn
	AttCommonName
	AttObjectSid
	AttObjectGUID
	AttSAMAccountName
	AttUserPrincipalName
	AttSAMAccountType
	AttUserAccountControl
	AttLastLogon
	AttLastLogonTimestamp
	AttAccountExpires
	AttPwdLastSet
	AttBadPwdTime
	AttLogonCount
	AttBadPwdCount
	AttPrimaryGroupID
	AttAdminCount
	AttNTHash
	AttLMHash
	AttNTHashHistory
	AttLMHashHistory
	AttSupplementalCredentials
	AttNTSecurityDescriptor
	AttWhenCreated
	AttWhenChanged
	AttUSNCreated
	AttUSNChanged
	AttDescription
	AttDisplayName
	AttDNSHostName
	AttOperatingSystem
	AttOperatingSystemVersion
	AttIsDeleted
	AttLastKnownParent
)

type attributeInfo struct {
	column   string
	name     string
	required bool
}

var attributeTable = map[AttributeID]attributeInfo{
	DsRecordID:       {"DNT_col", "DNT", true},
	DsParentRecordID: {"PDNT_col", "PDNT", true},
	DsRecordTime:     {"time_col", "recordTime", true},
	DsAncestors:      {"Ancestors_col", "ancestors", true},
	DsRdnType:        {"RDNtyp_col", "rdnType", false},

	AttObjectCategory:          {"ATTb590606", "objectCategory", true},
	AttRdn:                     {"ATTm589825", "name", true},
	AttCommonName:              {"ATTm3", "cn", false},
	AttObjectSid:               {"ATTr589970", "objectSid", false},
	AttObjectGUID:              {"ATTk589826", "objectGUID", false},
	AttSAMAccountName:          {"ATTm590045", "sAMAccountName", false},
	AttUserPrincipalName:       {"ATTm590480", "userPrincipalName", false},
	AttSAMAccountType:          {"ATTj590126", "sAMAccountType", false},
	AttUserAccountControl:      {"ATTj589832", "userAccountControl", false},
	AttLastLogon:               {"ATTq589876", "lastLogon", false},
	AttLastLogonTimestamp:      {"ATTq591520", "lastLogonTimestamp", false},
	AttAccountExpires:          {"ATTq589983", "accountExpires", false},
	AttPwdLastSet:              {"ATTq589920", "pwdLastSet", false},
	AttBadPwdTime:              {"ATTq589873", "badPasswordTime", false},
	AttLogonCount:              {"ATTj589993", "logonCount", false},
	AttBadPwdCount:             {"ATTj589836", "badPwdCount", false},
	AttPrimaryGroupID:          {"ATTj589922", "primaryGroupID", false},
	AttAdminCount:              {"ATTj589974", "adminCount", false},
	AttNTHash:                  {"ATTk589914", "unicodePwd", false},
	AttLMHash:                  {"ATTk589879", "dBCSPwd", false},
	AttNTHashHistory:           {"ATTk589918", "ntPwdHistory", false},
	AttLMHashHistory:           {"ATTk589984", "lmPwdHistory", false},
	AttSupplementalCredentials: {"ATTk589949", "supplementalCredentials", false},
	AttNTSecurityDescriptor:    {"ATTp131353", "nTSecurityDescriptor", false},
	AttWhenCreated:             {"ATTl131074", "whenCreated", false},
	AttWhenChanged:             {"ATTl131075", "whenChanged", false},
	AttUSNCreated:              {"ATTq131091", "uSNCreated", false},
	AttUSNChanged:              {"ATTq131192", "uSNChanged", false},
	AttDescription:             {"ATTm13", "description", false},
	AttDisplayName:             {"ATTm131085", "displayName", false},
	AttDNSHostName:             {"ATTm590443", "dNSHostName", false},
	AttOperatingSystem:         {"ATTm590187", "operatingSystem", false},
	AttOperatingSystemVersion:  {"ATTm590188", "operatingSystemVersion", false},
	AttIsDeleted:               {"ATTi131120", "isDeleted", false},
	AttLastKnownParent:         {"ATTb590605", "lastKnownParent", false},
}

var attributesByColumn = func() map[string]AttributeID {
	m := make(map[string]AttributeID, len(attributeTable))
	for id, info := range attributeTable {
		m[info.column] = id
	}
	return m
}()

// Column is the data table column name that stores the attribute.
func (a AttributeID) Column() string {
	return attributeTable[a].column
}

// Required attributes must be present in every file.
func (a AttributeID) Required() bool {
	return attributeTable[a].required
}

func (a AttributeID) String() string {
	if info, ok := attributeTable[a]; ok {
		return info.name
	}
	return fmt.Sprintf("attribute(%d)", int(a))
}

// AttributeByColumn maps a column name back to the attribute stored in it.
func AttributeByColumn(column string) (AttributeID, bool) {
	id, ok := attributesByColumn[column]
	return id, ok
}

// AttributeIDs lists every known attribute in declaration order.
func AttributeIDs() []AttributeID {
	ids := make([]AttributeID, 0, len(attributeTable))
	for id := range attributeTable {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
