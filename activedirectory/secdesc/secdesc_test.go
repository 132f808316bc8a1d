package secdesc_test

import (
	"encoding/base64"
	"errors"
	"testing"

	"f0oster/ntdsinspect/activedirectory/formatters"
	"f0oster/ntdsinspect/activedirectory/secdesc"
	"f0oster/ntdsinspect/ntdstest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var forceChangePassword = uuid.MustParse("00299570-246d-11d0-a768-00aa006e0529")

var (
	builtinAdmins = ntdstest.SID(5, 32, 544)
	localSystem   = ntdstest.SID(5, 18)
	authenticated = ntdstest.SID(5, 11)
	domainAdmin   = ntdstest.SID(5, 21, 1, 2, 3, 500)
)

func sampleDescriptor() []byte {
	dacl := ntdstest.ACL(2,
		ntdstest.ACE(0x00, 0, 0x20094, authenticated, uuid.Nil, uuid.Nil),
		ntdstest.ACE(0x05, 0x02, 0x100, domainAdmin, forceChangePassword, uuid.Nil),
	)
	return ntdstest.SecurityDescriptor(secdesc.ControlSelfRelative|secdesc.ControlDACLPresent, builtinAdmins, localSystem, nil, dacl)
}

func TestParse(t *testing.T) {
	sd, err := secdesc.Parse(7, sampleDescriptor())
	require.NoError(t, err)

	assert.Equal(t, int64(7), sd.ID)
	require.NotNil(t, sd.Owner)
	assert.Equal(t, "S-1-5-32-544", sd.Owner.String())
	require.NotNil(t, sd.Group)
	assert.Equal(t, "S-1-5-18", sd.Group.String())
	assert.Nil(t, sd.SACL)
	require.NotNil(t, sd.DACL)
	require.Len(t, sd.DACL.ACEs, 2)

	basic := sd.DACL.ACEs[0]
	assert.Equal(t, "ACCESS_ALLOWED_ACE", basic.TypeName())
	assert.Equal(t, uint32(0x20094), basic.Mask)
	assert.Equal(t, "S-1-5-11", basic.Trustee.String())
	assert.Nil(t, basic.ObjectType)

	object := sd.DACL.ACEs[1]
	assert.True(t, object.IsObjectACE())
	assert.Equal(t, uint8(0x02), object.Flags)
	require.NotNil(t, object.ObjectType)
	assert.Equal(t, forceChangePassword, *object.ObjectType)
	assert.Nil(t, object.InheritedObjectType)
	assert.Equal(t, "S-1-5-21-1-2-3-500", object.Trustee.String())
}

func TestSDDL(t *testing.T) {
	sd, err := secdesc.Parse(1, sampleDescriptor())
	require.NoError(t, err)
	assert.Equal(t,
		"O:BAG:SYD:(A;;LCRPLORC;;;AU)(OA;CI;CR;00299570-246d-11d0-a768-00aa006e0529;;S-1-5-21-1-2-3-500)",
		sd.SDDL())
}

func TestSDDLNullDACLAndFlags(t *testing.T) {
	control := secdesc.ControlSelfRelative | secdesc.ControlDACLPresent | secdesc.ControlDACLProtected
	sd, err := secdesc.Parse(1, ntdstest.SecurityDescriptor(control, builtinAdmins, nil, nil, nil))
	require.NoError(t, err)
	assert.Nil(t, sd.Group)
	assert.Equal(t, "O:BAD:PNO_ACCESS_CONTROL", sd.SDDL())
}

func TestMaskFlags(t *testing.T) {
	assert.Equal(t, []string{"READ_PROPERTY", "READ_CONTROL"}, secdesc.MaskFlags(0x20010))
	assert.Equal(t, []string{"CONTROL_ACCESS", "0x200"}, secdesc.MaskFlags(0x300))
	assert.Nil(t, secdesc.MaskFlags(0))
}

func TestParseFailures(t *testing.T) {
	valid := sampleDescriptor()

	badRevision := append([]byte(nil), valid...)
	badRevision[0] = 2

	badACLRevision := ntdstest.SecurityDescriptor(secdesc.ControlDACLPresent, builtinAdmins, localSystem, nil,
		ntdstest.ACL(3, ntdstest.ACE(0x00, 0, 1, authenticated, uuid.Nil, uuid.Nil)))

	unsupportedACE := ntdstest.SecurityDescriptor(secdesc.ControlDACLPresent, builtinAdmins, localSystem, nil,
		ntdstest.ACL(2, ntdstest.ACE(0x13, 0, 1, authenticated, uuid.Nil, uuid.Nil)))

	tests := []struct {
		name string
		blob []byte
	}{
		{"truncated header", valid[:10]},
		{"bad revision", badRevision},
		{"bad ACL revision", badACLRevision},
		{"unsupported ACE type", unsupportedACE},
		{"ACL beyond end", valid[:len(valid)-4]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := secdesc.Parse(42, tt.blob)
			var decodeErr *secdesc.DescriptorDecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, int64(42), decodeErr.ID)
			assert.Equal(t, base64.StdEncoding.EncodeToString(tt.blob), decodeErr.Blob)
		})
	}
}

func TestParseTruncatedTrustee(t *testing.T) {
	// claims five sub-authorities but carries two
	short := ntdstest.SID(5, 21, 1)
	short[1] = 5
	blob := ntdstest.SecurityDescriptor(secdesc.ControlDACLPresent, builtinAdmins, localSystem, nil,
		ntdstest.ACL(2, ntdstest.ACE(0x00, 0, 1, short, uuid.Nil, uuid.Nil)))

	_, err := secdesc.Parse(3, blob)
	require.Error(t, err)
	assert.True(t, errors.Is(err, formatters.ErrSIDSubAuthorities))
}

func TestTable(t *testing.T) {
	b := ntdstest.NewBuilder().
		Descriptor(1, sampleDescriptor()).
		Descriptor(2, []byte{0xde, 0xad})

	table, err := secdesc.Load(b.SDTable(), 4, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())

	sd, ok, err := table.Get(1)
	require.NoError(t, err)
	require.True(t, ok)
	again, _, err := table.Get(1)
	require.NoError(t, err)
	assert.Same(t, sd, again)

	_, ok, err = table.Get(2)
	assert.True(t, ok)
	var decodeErr *secdesc.DescriptorDecodeError
	assert.ErrorAs(t, err, &decodeErr)

	sd, ok, err = table.Get(99)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, sd)
}

type names map[string]string

func (n names) ResolveSID(sid string) (string, bool) {
	name, ok := n[sid]
	return name, ok
}

func TestCompare(t *testing.T) {
	oldSD, err := secdesc.Parse(1, sampleDescriptor())
	require.NoError(t, err)

	dacl := ntdstest.ACL(2,
		ntdstest.ACE(0x05, 0x02, 0x100, domainAdmin, forceChangePassword, uuid.Nil),
		ntdstest.ACE(0x01, 0, 0x10000, authenticated, uuid.Nil, uuid.Nil),
	)
	newSD, err := secdesc.Parse(2, ntdstest.SecurityDescriptor(
		secdesc.ControlSelfRelative|secdesc.ControlDACLPresent, domainAdmin, localSystem, nil, dacl))
	require.NoError(t, err)

	diff := secdesc.Compare(oldSD, newSD, names{"S-1-5-21-1-2-3-500": "Administrator"})
	assert.True(t, diff.HasChanges)
	assert.True(t, diff.OwnerChanged)
	assert.Equal(t, "Administrator", diff.NewOwner.ResolvedName)
	assert.False(t, diff.GroupChanged)
	assert.False(t, diff.ControlChanged)

	require.NotNil(t, diff.DACL)
	require.Len(t, diff.DACL.OldACEs, 2)
	assert.Equal(t, secdesc.ACERemoved, diff.DACL.OldACEs[0].Status)
	assert.Equal(t, secdesc.ACEMoved, diff.DACL.OldACEs[1].Status)
	assert.Equal(t, 0, diff.DACL.OldACEs[1].MovedTo)
	require.Len(t, diff.DACL.NewACEs, 2)
	assert.Equal(t, secdesc.ACEMoved, diff.DACL.NewACEs[0].Status)
	assert.Equal(t, 1, diff.DACL.NewACEs[0].MovedFrom)
	assert.Equal(t, secdesc.ACEAdded, diff.DACL.NewACEs[1].Status)
	assert.Equal(t, []string{"DELETE"}, diff.DACL.NewACEs[1].ACE.MaskFlags)
}

func TestCompareIdentical(t *testing.T) {
	a, err := secdesc.Parse(1, sampleDescriptor())
	require.NoError(t, err)
	b, err := secdesc.Parse(2, sampleDescriptor())
	require.NoError(t, err)

	diff := secdesc.Compare(a, b, nil)
	assert.False(t, diff.HasChanges)
	assert.False(t, secdesc.Compare(nil, nil, nil).HasChanges)
	assert.True(t, secdesc.Compare(nil, b, nil).HasChanges)
}
