package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/client/client"
	"github.com/dmitrijs2005/herdsync/internal/client/models"
	"github.com/dmitrijs2005/herdsync/internal/client/repositories/bovines"
	"github.com/dmitrijs2005/herdsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/herdsync/internal/client/store"
	"github.com/dmitrijs2005/herdsync/internal/client/tracker"
	"github.com/dmitrijs2005/herdsync/internal/common"
	"github.com/dmitrijs2005/herdsync/internal/logging"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	s      *store.Store
	tr     *tracker.Tracker
	eng    *Engine
	remote *fakeRemote
}

func newHarness(t *testing.T, remote *fakeRemote) *harness {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "sync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return &harness{
		s:      s,
		tr:     tracker.New(s),
		eng:    New(s, remote, logging.Discard()),
		remote: remote,
	}
}

func (h *harness) addHerd(t *testing.T, name string) *models.Herd {
	t.Helper()
	herd := &models.Herd{Name: name}
	h.tr.Created(herd)
	require.NoError(t, h.s.Herds().Insert(context.Background(), herd))
	return herd
}

func (h *harness) addBovine(t *testing.T, name string, herd *models.Herd) *models.Bovine {
	t.Helper()
	b := &models.Bovine{
		Name:         name,
		Status:       models.StatusAlive,
		Gender:       models.GenderFemale,
		HerdLocalID:  &herd.LocalID,
		HerdRemoteID: herd.RemoteID,
	}
	h.tr.Created(b)
	require.NoError(t, h.s.Bovines().Insert(context.Background(), b))
	return b
}

func (h *harness) run(t *testing.T) *Result {
	t.Helper()
	res, err := h.eng.Run(context.Background(), nil)
	require.NoError(t, err)
	return res
}

func (h *harness) herd(t *testing.T, localID int64) *models.Herd {
	t.Helper()
	got, err := h.s.Herds().Get(context.Background(), localID)
	require.NoError(t, err)
	return got
}

func (h *harness) bovine(t *testing.T, localID int64) *models.Bovine {
	t.Helper()
	got, err := h.s.Bovines().Get(context.Background(), localID)
	require.NoError(t, err)
	return got
}

// assertCascade checks that every bovine mirrors its herd's remote id.
func assertCascade(t *testing.T, s *store.Store) {
	t.Helper()
	ctx := context.Background()
	list, err := s.Bovines().List(ctx, bovines.Filter{IncludeInactive: true})
	require.NoError(t, err)
	for _, b := range list {
		if b.HerdLocalID == nil {
			continue
		}
		herd, err := s.Herds().Get(ctx, *b.HerdLocalID)
		require.NoError(t, err)
		if herd.RemoteID == nil {
			continue
		}
		require.NotNil(t, b.HerdRemoteID, "bovine %q", b.Name)
		assert.Equal(t, *herd.RemoteID, *b.HerdRemoteID, "bovine %q", b.Name)
	}
}

func TestRun_OfflineHerdIsPushedAsCreate(t *testing.T) {
	remote := newFakeRemote()
	h := newHarness(t, remote)
	north := h.addHerd(t, "North")
	assert.Equal(t, int64(1), north.LocalID)

	res := h.run(t)
	require.NoError(t, res.Err())

	require.Len(t, remote.pushes[models.EntityHerds], 1)
	assert.JSONEq(t,
		fmt.Sprintf(`[{"id":null,"clientRef":%q,"name":"North","active":true}]`, north.ClientRef),
		string(remote.pushes[models.EntityHerds][0]))
	assert.Empty(t, remote.pushes[models.EntityBovines])

	got := h.herd(t, north.LocalID)
	require.NotNil(t, got.RemoteID)
	assert.Equal(t, int64(1), *got.RemoteID)
	assert.Equal(t, models.SyncStateSynced, got.SyncState)

	n, err := h.s.Herds().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRun_BovineWaitsForHerdRemoteID(t *testing.T) {
	remote := newFakeRemote()
	h := newHarness(t, remote)
	north := h.addHerd(t, "North")
	bessie := h.addBovine(t, "Bessie", north)

	res := h.run(t)
	require.NoError(t, res.Err())

	require.Len(t, remote.pushes[models.EntityBovines], 1)
	var sent []map[string]any
	require.NoError(t, json.Unmarshal(remote.pushes[models.EntityBovines][0], &sent))
	require.Len(t, sent, 1)
	assert.EqualValues(t, 1, sent[0]["herdId"])
	assert.NotContains(t, sent[0], "herdLocalId")

	got := h.bovine(t, bessie.LocalID)
	require.NotNil(t, got.RemoteID)
	assert.Equal(t, models.SyncStateSynced, got.SyncState)
	assert.True(t, res.Entities[1].FullPull)
	assertCascade(t, h.s)
}

func TestRun_BovineDeferredWhileHerdPushFails(t *testing.T) {
	remote := newFakeRemote()
	h := newHarness(t, remote)
	north := h.addHerd(t, "North")
	bessie := h.addBovine(t, "Bessie", north)

	remote.pushErr[models.EntityHerds] = client.ErrUnavailable
	res, err := h.eng.Run(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, res.Entities, 2)
	assert.ErrorIs(t, res.Entities[0].Err, client.ErrUnavailable)
	assert.Empty(t, remote.pulls[models.EntityHerds])
	assert.Equal(t, 0, res.Entities[1].Pushed)
	assert.Equal(t, 1, res.Entities[1].Deferred)
	assert.Empty(t, remote.pushes[models.EntityBovines])
	assert.Equal(t, models.SyncStateCreated, h.bovine(t, bessie.LocalID).SyncState)

	remote.pushErr[models.EntityHerds] = nil
	res = h.run(t)
	require.NoError(t, res.Err())
	assert.Equal(t, 1, res.Entities[1].Pushed)
	assertCascade(t, h.s)
}

func TestRun_EmptyAckLearnsIdentityOnPull(t *testing.T) {
	remote := newFakeRemote()
	remote.echoIDs = false
	h := newHarness(t, remote)
	north := h.addHerd(t, "North")
	bessie := h.addBovine(t, "Bessie", north)

	res := h.run(t)
	require.NoError(t, res.Err())

	gotHerd := h.herd(t, north.LocalID)
	require.NotNil(t, gotHerd.RemoteID)
	gotBovine := h.bovine(t, bessie.LocalID)
	require.NotNil(t, gotBovine.RemoteID)
	require.NotNil(t, gotBovine.HerdRemoteID)
	assert.Equal(t, *gotHerd.RemoteID, *gotBovine.HerdRemoteID)

	n, err := h.s.Herds().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRun_TwoClientsCreateSameName(t *testing.T) {
	remote := newFakeRemote()
	a := newHarness(t, remote)
	b := newHarness(t, remote)
	southA := a.addHerd(t, "South")
	b.addHerd(t, "South")

	a.run(t)
	b.run(t)
	a.run(t)

	list, err := a.s.Herds().List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, list, 2)
	own := 0
	for _, herd := range list {
		require.NotNil(t, herd.RemoteID)
		if herd.ClientRef == southA.ClientRef {
			own++
		}
	}
	assert.Equal(t, 1, own)
	assert.Len(t, remote.herds, 2)
}

func TestRun_NaturalKeyMatchWithoutClientRefs(t *testing.T) {
	remote := newFakeRemote()
	remote.echoIDs = false
	remote.echoRefs = false
	h := newHarness(t, remote)
	south := h.addHerd(t, "South")

	h.run(t)

	list, err := h.s.Herds().List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, south.LocalID, list[0].LocalID)
	require.NotNil(t, list[0].RemoteID)
	assert.Equal(t, models.SyncStateSynced, list[0].SyncState)
}

func TestRun_EmptyStoreForcesFullPull(t *testing.T) {
	remote := newFakeRemote()
	h := newHarness(t, remote)
	ctx := context.Background()

	stale := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, metadata.SetCheckpoint(ctx, h.s.Metadata(), models.EntityHerds, stale))
	require.NoError(t, metadata.SetCheckpoint(ctx, h.s.Metadata(), models.EntityBovines, stale))

	res := h.run(t)
	require.NoError(t, res.Err())

	require.Len(t, remote.pulls[models.EntityHerds], 1)
	assert.Nil(t, remote.pulls[models.EntityHerds][0])
	assert.Nil(t, remote.pulls[models.EntityBovines][0])
	assert.True(t, res.Entities[0].FullPull)
}

func TestRun_CheckpointAdvancesToServerTime(t *testing.T) {
	remote := newFakeRemote()
	h := newHarness(t, remote)
	h.addHerd(t, "North")
	ctx := context.Background()

	h.run(t)

	got, err := metadata.GetCheckpoint(ctx, h.s.Metadata(), models.EntityHerds)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, remote.serverTime[models.EntityHerds].Equal(*got))

	h.run(t)
	require.Len(t, remote.pulls[models.EntityHerds], 2)
	require.NotNil(t, remote.pulls[models.EntityHerds][1])
	assert.True(t, got.Equal(*remote.pulls[models.EntityHerds][1]))
}

func TestRun_RetriedPushDoesNotDuplicate(t *testing.T) {
	remote := newFakeRemote()
	h := newHarness(t, remote)
	north := h.addHerd(t, "North")

	remote.loseAck[models.EntityHerds] = true
	res, err := h.eng.Run(context.Background(), nil)
	require.NoError(t, err)
	require.ErrorIs(t, res.Entities[0].Err, client.ErrUnavailable)
	assert.Equal(t, models.SyncStateCreated, h.herd(t, north.LocalID).SyncState)

	res = h.run(t)
	require.NoError(t, res.Err())

	assert.Len(t, remote.pushes[models.EntityHerds], 2)
	assert.Len(t, remote.herds, 1)
	got := h.herd(t, north.LocalID)
	require.NotNil(t, got.RemoteID)
	assert.Equal(t, int64(1), *got.RemoteID)

	n, err := h.s.Herds().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRun_RepeatedPullIsIdempotent(t *testing.T) {
	remote := newFakeRemote()
	seed := newHarness(t, remote)
	north := seed.addHerd(t, "North")
	seed.addHerd(t, "South")
	seed.run(t)
	seed.addBovine(t, "Bessie", seed.herd(t, north.LocalID))
	seed.run(t)

	h := newHarness(t, remote)
	ctx := context.Background()
	h.run(t)

	snapshot := func() ([]*models.Herd, []*models.Bovine) {
		hs, err := h.s.Herds().List(ctx, true)
		require.NoError(t, err)
		bs, err := h.s.Bovines().List(ctx, bovines.Filter{IncludeInactive: true})
		require.NoError(t, err)
		return hs, bs
	}
	herdsBefore, bovinesBefore := snapshot()
	require.Len(t, herdsBefore, 2)
	require.Len(t, bovinesBefore, 1)

	require.NoError(t, metadata.ClearCheckpoints(ctx, h.s.Metadata()))
	h.run(t)

	herdsAfter, bovinesAfter := snapshot()
	if diff := cmp.Diff(herdsBefore, herdsAfter); diff != "" {
		t.Errorf("herds changed on second pull (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(bovinesBefore, bovinesAfter); diff != "" {
		t.Errorf("bovines changed on second pull (-before +after):\n%s", diff)
	}
	assertCascade(t, h.s)
}

func TestRun_TombstoneIsRemovedAndStaysGone(t *testing.T) {
	remote := newFakeRemote()
	h := newHarness(t, remote)
	ctx := context.Background()
	north := h.addHerd(t, "North")
	h.run(t)

	got := h.herd(t, north.LocalID)
	h.tr.Deleted(got)
	require.NoError(t, h.s.Herds().Update(ctx, got))

	h.run(t)
	_, err := h.s.Herds().Get(ctx, north.LocalID)
	require.ErrorIs(t, err, common.ErrorNotFound)
	assert.False(t, remote.herd(1).Active)

	require.NoError(t, metadata.ClearCheckpoints(ctx, h.s.Metadata()))
	h.run(t)
	n, err := h.s.Herds().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRun_EditDuringPushStaysDirty(t *testing.T) {
	remote := newFakeRemote()
	h := newHarness(t, remote)
	ctx := context.Background()
	north := h.addHerd(t, "North")

	remote.afterPush = func(e models.EntityType) {
		remote.afterPush = nil
		later := tracker.New(h.s, tracker.WithClock(func() time.Time { return remote.clock.Add(time.Second) }))
		cur := h.herd(t, north.LocalID)
		cur.Name = "Renamed"
		later.Updated(cur)
		require.NoError(t, h.s.Herds().Update(ctx, cur))
	}

	h.run(t)

	got := h.herd(t, north.LocalID)
	require.NotNil(t, got.RemoteID)
	assert.Equal(t, models.SyncStateUpdated, got.SyncState)
	assert.Equal(t, "Renamed", got.Name)

	h.run(t)
	assert.Equal(t, "Renamed", remote.herd(*got.RemoteID).Name)
	assert.Equal(t, models.SyncStateSynced, h.herd(t, north.LocalID).SyncState)
}

func TestMerge_PendingLocalEditWins(t *testing.T) {
	remote := newFakeRemote()
	h := newHarness(t, remote)
	ctx := context.Background()
	north := h.addHerd(t, "North")
	h.run(t)

	cur := h.herd(t, north.LocalID)
	cur.Name = "Local"
	h.tr.Updated(cur)
	require.NoError(t, h.s.Herds().Update(ctx, cur))

	merge := func(name string, updated time.Time) {
		data, err := json.Marshal([]models.HerdPull{{ID: *cur.RemoteID, ClientRef: cur.ClientRef, Name: name, Active: true, UpdatedAt: updated}})
		require.NoError(t, err)
		require.NoError(t, h.s.WithTx(ctx, nil, func(ctx context.Context, tx *store.Tx) error {
			_, err := herdCollection{}.merge(ctx, tx, data)
			return err
		}))
	}

	merge("Older", cur.UpdatedAt.Add(-time.Minute))
	got := h.herd(t, north.LocalID)
	assert.Equal(t, "Local", got.Name)
	assert.Equal(t, models.SyncStateUpdated, got.SyncState)

	merge("Newer", cur.UpdatedAt.Add(time.Minute))
	got = h.herd(t, north.LocalID)
	assert.Equal(t, "Newer", got.Name)
	assert.Equal(t, models.SyncStateSynced, got.SyncState)
}

func TestMerge_TombstoneIsNotResurrected(t *testing.T) {
	remote := newFakeRemote()
	h := newHarness(t, remote)
	ctx := context.Background()
	north := h.addHerd(t, "North")
	h.run(t)

	cur := h.herd(t, north.LocalID)
	h.tr.Deleted(cur)
	require.NoError(t, h.s.Herds().Update(ctx, cur))

	data, err := json.Marshal([]models.HerdPull{{ID: *cur.RemoteID, Name: "North", Active: true, UpdatedAt: cur.UpdatedAt.Add(time.Hour)}})
	require.NoError(t, err)
	require.NoError(t, h.s.WithTx(ctx, nil, func(ctx context.Context, tx *store.Tx) error {
		_, err := herdCollection{}.merge(ctx, tx, data)
		return err
	}))

	got := h.herd(t, north.LocalID)
	assert.False(t, got.Active)
	assert.Equal(t, models.SyncStateDeleted, got.SyncState)
}

func TestMerge_InactiveUnmatchedIsIgnored(t *testing.T) {
	h := newHarness(t, newFakeRemote())
	ctx := context.Background()

	data := json.RawMessage(`[{"id":9,"name":"Gone","active":false,"updatedAt":"2024-05-01T10:00:00Z"}]`)
	require.NoError(t, h.s.WithTx(ctx, nil, func(ctx context.Context, tx *store.Tx) error {
		n, err := herdCollection{}.merge(ctx, tx, data)
		assert.Equal(t, 0, n)
		return err
	}))

	n, err := h.s.Herds().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRun_UnauthorizedAbortsRun(t *testing.T) {
	remote := newFakeRemote()
	h := newHarness(t, remote)
	h.addHerd(t, "North")
	remote.pushErr[models.EntityHerds] = fmt.Errorf("%w: token expired", client.ErrUnauthorized)

	res, err := h.eng.Run(context.Background(), nil)
	require.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Len(t, res.Entities, 1)
	assert.Empty(t, remote.pulls[models.EntityBovines])
}

func TestRun_SessionChangeDiscardsAck(t *testing.T) {
	remote := newFakeRemote()
	h := newHarness(t, remote)
	north := h.addHerd(t, "North")

	calls := 0
	guard := func() error {
		calls++
		if calls > 1 {
			return common.ErrSessionChanged
		}
		return nil
	}

	res, err := h.eng.Run(context.Background(), guard)
	require.ErrorIs(t, err, common.ErrSessionChanged)
	assert.Len(t, res.Entities, 1)
	assert.Len(t, remote.herds, 1)

	got := h.herd(t, north.LocalID)
	assert.Nil(t, got.RemoteID)
	assert.Equal(t, models.SyncStateCreated, got.SyncState)
}

func TestRun_EntityFailureDoesNotBlockNext(t *testing.T) {
	remote := newFakeRemote()
	h := newHarness(t, remote)
	remote.pullErr[models.EntityHerds] = fmt.Errorf("%w: bad since", client.ErrRejected)

	res, err := h.eng.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, res.Entities, 2)
	assert.ErrorIs(t, res.Err(), client.ErrRejected)
	assert.NoError(t, res.Entities[1].Err)
	assert.Len(t, remote.pulls[models.EntityBovines], 1)
}
