package snapshot_test

import (
	"testing"

	"f0oster/ntdsinspect/activedirectory"
	"f0oster/ntdsinspect/activedirectory/schema"
	"f0oster/ntdsinspect/diff"
	"f0oster/ntdsinspect/esedb"
	"f0oster/ntdsinspect/ntdstest"
	"f0oster/ntdsinspect/snapshot"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	aliceGUID = uuid.MustParse("6f1c2a9e-0b7d-4c3e-9a51-2d8e4f6a7b10")
	bobGUID   = uuid.MustParse("0d3b5c7e-9f11-4a2b-8c4d-6e8f0a1b2c3d")
	carolGUID = uuid.MustParse("a1b2c3d4-e5f6-4789-8abc-def012345678")
)

type person struct {
	id          int32
	name        string
	guid        uuid.UUID
	description string
	usn         int64
	sdID        int64
}

func database(t *testing.T, people []person, descriptors map[int64][]byte) *activedirectory.Instance {
	t.Helper()
	b := ntdstest.NewBuilder().Skeleton().
		Object(50, ntdstest.DomainID, "Users", ntdstest.ContainerTypeID, nil)
	for _, p := range people {
		attrs := ntdstest.Attrs{
			schema.AttObjectGUID:     esedb.Binary(ntdstest.ADGUID(p.guid)),
			schema.AttSAMAccountName: esedb.LargeText(p.name),
			schema.AttUSNChanged:     esedb.Currency(p.usn),
		}
		if p.description != "" {
			attrs[schema.AttDescription] = esedb.LargeText(p.description)
		}
		if p.sdID != 0 {
			attrs[schema.AttNTSecurityDescriptor] = esedb.I64(p.sdID)
		}
		b.Object(p.id, 50, p.name, ntdstest.PersonTypeID, attrs)
	}
	for id, blob := range descriptors {
		b.Descriptor(id, blob)
	}
	in, err := activedirectory.Open(b.Database(), activedirectory.Options{}, zap.NewNop())
	require.NoError(t, err)
	return in
}

func snapshots(t *testing.T, in *activedirectory.Instance) []*snapshot.Snapshot {
	t.Helper()
	svc := snapshot.NewService()
	var out []*snapshot.Snapshot
	for _, r := range in.ParseEntries(in.Index.EntriesOfType(ntdstest.PersonTypeID)) {
		require.NoError(t, r.Error)
		snap, err := svc.CreateSnapshot(r.Object)
		require.NoError(t, err)
		out = append(out, snap)
	}
	return out
}

func descriptor(aces ...[]byte) []byte {
	return ntdstest.SecurityDescriptor(0x8004, ntdstest.SID(5, 32, 544), nil, nil, ntdstest.ACL(2, aces...))
}

func TestCreateSnapshot(t *testing.T) {
	in := database(t, []person{{id: 200, name: "alice", guid: aliceGUID, usn: 42, sdID: 9}},
		map[int64][]byte{9: descriptor(ntdstest.ACE(0, 0, 0x10, ntdstest.SID(5, 11), uuid.Nil, uuid.Nil))})

	snaps := snapshots(t, in)
	require.Len(t, snaps, 1)
	snap := snaps[0]

	assert.Equal(t, aliceGUID, snap.ObjectGUID)
	assert.Equal(t, schema.TypePerson, snap.ObjectType)
	assert.Equal(t, "CN=alice,CN=Users,DC=example", snap.DN)
	assert.Equal(t, int64(42), snap.USNChanged)
	assert.False(t, snap.IsDeleted)
	assert.Equal(t, []string{"alice"}, snap.Attributes["sAMAccountName"])
	assert.Equal(t, []string{"O:BAD:(A;;RP;;;AU)"}, snap.Attributes["nTSecurityDescriptor"])
	require.NotNil(t, snap.Descriptor)
	assert.False(t, snap.Timestamp.IsZero())
}

func TestCreateSnapshotRequiresGUID(t *testing.T) {
	svc := snapshot.NewService()

	_, err := svc.CreateSnapshot(nil)
	assert.Error(t, err)

	_, err = svc.CreateSnapshot(&activedirectory.ActiveDirectoryObject{RecordID: 5})
	assert.Error(t, err)
}

func TestCompareSets(t *testing.T) {
	authenticated := ntdstest.ACE(0, 0, 0x10, ntdstest.SID(5, 11), uuid.Nil, uuid.Nil)
	everyone := ntdstest.ACE(0, 0, 0x20000, ntdstest.SID(1, 0), uuid.Nil, uuid.Nil)

	before := database(t, []person{
		{id: 200, name: "alice", guid: aliceGUID, description: "old", usn: 10, sdID: 1},
		{id: 201, name: "bob", guid: bobGUID, usn: 11},
	}, map[int64][]byte{1: descriptor(authenticated)})
	after := database(t, []person{
		{id: 200, name: "alice", guid: aliceGUID, description: "new", usn: 12, sdID: 1},
		{id: 202, name: "carol", guid: carolGUID, usn: 13},
	}, map[int64][]byte{1: descriptor(authenticated, everyone)})

	svc := snapshot.NewService()
	changes := svc.CompareSets(snapshots(t, before), snapshots(t, after), after)
	require.Len(t, changes, 3)

	alice := changes[0]
	assert.Equal(t, snapshot.StatusModified, alice.Status)
	assert.Equal(t, "CN=alice,CN=Users,DC=example", alice.DN)
	var names []string
	for _, c := range alice.Changes {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"description", "nTSecurityDescriptor", "uSNChanged"}, names)
	assert.Equal(t, diff.AttributeChange{Name: "description", Old: []string{"old"}, New: []string{"new"}}, alice.Changes[0])
	require.NotNil(t, alice.Descriptor)
	assert.True(t, alice.Descriptor.DACL.Changed())

	assert.Equal(t, snapshot.StatusRemoved, changes[1].Status)
	assert.Equal(t, bobGUID, changes[1].ObjectGUID)
	assert.Equal(t, snapshot.StatusAdded, changes[2].Status)
	assert.Equal(t, carolGUID, changes[2].ObjectGUID)
}

func TestCompareSetsUnchanged(t *testing.T) {
	people := []person{{id: 200, name: "alice", guid: aliceGUID, usn: 10}}
	svc := snapshot.NewService()
	changes := svc.CompareSets(snapshots(t, database(t, people, nil)), snapshots(t, database(t, people, nil)), nil)
	assert.Empty(t, changes)
}
