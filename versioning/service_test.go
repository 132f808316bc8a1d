package versioning_test

import (
	"context"
	"testing"
	"time"

	"f0oster/ntdsinspect/database"
	"f0oster/ntdsinspect/database/dbtest"
	"f0oster/ntdsinspect/snapshot"
	"f0oster/ntdsinspect/versioning"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	aliceGUID = uuid.MustParse("6f1c2a9e-0b7d-4c3e-9a51-2d8e4f6a7b10")
	bobGUID   = uuid.MustParse("0d3b5c7e-9f11-4a2b-8c4d-6e8f0a1b2c3d")
	exported  = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
)

func snap(guid uuid.UUID, dn string, usn int64, attrs map[string][]string) *snapshot.Snapshot {
	return &snapshot.Snapshot{
		ObjectGUID: guid,
		ObjectType: "Person",
		DN:         dn,
		USNChanged: usn,
		Attributes: attrs,
		Timestamp:  exported,
	}
}

func newService(pool *dbtest.Pool) *versioning.Service {
	return versioning.NewService(database.NewDBClient(pool), snapshot.NewService(),
		versioning.DomainID("DC=example"), zap.NewNop())
}

func TestProcessSnapshots(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.NewPool()
	svc := newService(pool)

	first := []*snapshot.Snapshot{
		snap(aliceGUID, "CN=alice", 10, map[string][]string{"description": {"old"}}),
		snap(bobGUID, "CN=bob", 11, map[string][]string{"cn": {"bob"}}),
	}
	summary, err := svc.ProcessSnapshots(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, versioning.Summary{Created: 2}, summary)
	assert.Len(t, pool.Versions, 2)
	assert.Equal(t, 1, pool.Commits)
	assert.Empty(t, pool.Batched)

	second := []*snapshot.Snapshot{
		snap(aliceGUID, "CN=alice", 15, map[string][]string{"description": {"new"}, "info": {"x"}}),
		snap(bobGUID, "CN=bob", 11, map[string][]string{"cn": {"bob"}}),
	}
	summary, err = svc.ProcessSnapshots(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, versioning.Summary{Updated: 1, Unchanged: 1}, summary)
	assert.Len(t, pool.Versions, 3)
	assert.Equal(t, 2, pool.Commits)

	require.Len(t, pool.Batched, 2)
	assert.Equal(t, "description", pool.Batched[0].Arguments[2])
	assert.Equal(t, []byte(`["old"]`), pool.Batched[0].Arguments[3])
	assert.Equal(t, []byte(`["new"]`), pool.Batched[0].Arguments[4])
	assert.Equal(t, "info", pool.Batched[1].Arguments[2])
	assert.Equal(t, []byte(`null`), pool.Batched[1].Arguments[3])

	usn := pool.Objects[aliceGUID]
	require.NotNil(t, usn)
	assert.Equal(t, int64(15), *usn)
}

func TestProcessSnapshotsRollsBackOnError(t *testing.T) {
	pool := dbtest.NewPool()
	pool.FailOn = database.InsertVersion
	svc := newService(pool)

	_, err := svc.ProcessSnapshots(context.Background(), []*snapshot.Snapshot{
		snap(aliceGUID, "CN=alice", 10, map[string][]string{"cn": {"alice"}}),
	})
	assert.ErrorContains(t, err, "CN=alice")
	assert.Zero(t, pool.Commits)
	assert.Equal(t, 1, pool.Rollbacks)
}

func TestProcessSnapshotsEmpty(t *testing.T) {
	pool := dbtest.NewPool()
	summary, err := newService(pool).ProcessSnapshots(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, summary)
	assert.Zero(t, pool.Commits)
}

func TestDomainID(t *testing.T) {
	assert.Equal(t, versioning.DomainID("DC=Example,DC=Test"), versioning.DomainID("dc=example,dc=test"))
	assert.NotEqual(t, versioning.DomainID("DC=example"), versioning.DomainID("DC=other"))
}
