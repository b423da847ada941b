package identity

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/client/models"
	"github.com/dmitrijs2005/herdsync/internal/client/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "id.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func inTx(t *testing.T, s *store.Store, fn func(ctx context.Context, tx *store.Tx)) {
	t.Helper()
	require.NoError(t, s.WithTx(context.Background(), nil, func(ctx context.Context, tx *store.Tx) error {
		fn(ctx, tx)
		return nil
	}))
}

func addHerd(t *testing.T, s *store.Store, name, ref string, remote *int64) *models.Herd {
	t.Helper()
	state := models.SyncStateCreated
	if remote != nil {
		state = models.SyncStateSynced
	}
	h := &models.Herd{
		SyncMeta: models.SyncMeta{RemoteID: remote, ClientRef: ref, Active: true, UpdatedAt: time.Now(), SyncState: state},
		Name:     name,
	}
	require.NoError(t, s.Herds().Insert(context.Background(), h))
	return h
}

func addBovine(t *testing.T, s *store.Store, name string, herdLocal, herdRemote *int64) *models.Bovine {
	t.Helper()
	b := &models.Bovine{
		SyncMeta:     models.SyncMeta{ClientRef: "ref-" + name, Active: true, UpdatedAt: time.Now(), SyncState: models.SyncStateCreated},
		Name:         name,
		Status:       models.StatusAlive,
		Gender:       models.GenderFemale,
		HerdLocalID:  herdLocal,
		HerdRemoteID: herdRemote,
	}
	require.NoError(t, s.Bovines().Insert(context.Background(), b))
	return b
}

func TestResolveHerd_Precedence(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	byRemote := addHerd(t, s, "North", "ref-a", ptr(10))
	byRef := addHerd(t, s, "East", "ref-b", nil)
	byName := addHerd(t, s, "South", "ref-c", nil)

	tests := []struct {
		name string
		key  Key
		want *models.Herd
	}{
		{"remote id wins", Key{RemoteID: 10, ClientRef: "ref-b", NaturalKey: "South"}, byRemote},
		{"client ref", Key{RemoteID: 11, ClientRef: "ref-b", NaturalKey: "South"}, byRef},
		{"natural key among unlinked", Key{RemoteID: 12, NaturalKey: "South"}, byName},
		{"linked records never match by name", Key{RemoteID: 13, NaturalKey: "North"}, nil},
		{"nothing", Key{RemoteID: 14, ClientRef: "zzz", NaturalKey: "West"}, nil},
		{"different client refs never match by name", Key{RemoteID: 15, ClientRef: "other", NaturalKey: "South"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveHerd(ctx, s.Herds(), tt.key)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want.LocalID, got.LocalID)
		})
	}
}

func TestResolveHerd_ClientRefOfOtherRemoteDoesNotMatch(t *testing.T) {
	s := openStore(t)
	addHerd(t, s, "North", "ref-a", ptr(10))

	got, err := ResolveHerd(context.Background(), s.Herds(), Key{RemoteID: 20, ClientRef: "ref-a"})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResolveBovine_NaturalKeyScopedToHerd(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	addBovine(t, s, "Bessie", ptr(1), nil)
	second := addBovine(t, s, "Bessie", ptr(2), nil)

	got, err := ResolveBovine(ctx, s.Bovines(), Key{RemoteID: 5, NaturalKey: "Bessie"}, ptr(2))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, second.LocalID, got.LocalID)

	got, err = ResolveBovine(ctx, s.Bovines(), Key{RemoteID: 5, NaturalKey: "Bessie"}, ptr(3))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResolveLocal(t *testing.T) {
	s := openStore(t)
	h := addHerd(t, s, "North", "ref-a", ptr(10))
	b := addBovine(t, s, "Bessie", &h.LocalID, ptr(10))

	inTx(t, s, func(ctx context.Context, tx *store.Tx) {
		id, err := ResolveLocal(ctx, tx, models.EntityHerds, Key{RemoteID: 10})
		require.NoError(t, err)
		assert.Equal(t, h.LocalID, *id)

		id, err = ResolveLocal(ctx, tx, models.EntityBovines, Key{RemoteID: 99, NaturalKey: "Bessie"})
		require.NoError(t, err)
		assert.Equal(t, b.LocalID, *id)

		id, err = ResolveLocal(ctx, tx, models.EntityHerds, Key{RemoteID: 99})
		require.NoError(t, err)
		assert.Nil(t, id)

		_, err = ResolveLocal(ctx, tx, "cows", Key{})
		assert.ErrorIs(t, err, models.ErrUnknownEntity)
	})
}

func TestCascadeForeignRemoteID(t *testing.T) {
	s := openStore(t)
	h := addHerd(t, s, "North", "ref-a", nil)
	b1 := addBovine(t, s, "Bessie", &h.LocalID, nil)
	b2 := addBovine(t, s, "Daisy", &h.LocalID, nil)
	other := addBovine(t, s, "Other", ptr(99), nil)

	inTx(t, s, func(ctx context.Context, tx *store.Tx) {
		n, err := CascadeForeignRemoteID(ctx, tx, models.EntityHerds, h.LocalID, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = CascadeForeignRemoteID(ctx, tx, models.EntityBovines, b1.LocalID, 10)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	ctx := context.Background()
	for _, id := range []int64{b1.LocalID, b2.LocalID} {
		got, err := s.Bovines().Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(10), *got.HerdRemoteID)
	}
	got, err := s.Bovines().Get(ctx, other.LocalID)
	require.NoError(t, err)
	assert.Nil(t, got.HerdRemoteID)
}

func TestRepairHerdLinks(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	linked := addHerd(t, s, "North", "ref-a", ptr(10))
	pending := addHerd(t, s, "South", "ref-b", nil)

	stale := addBovine(t, s, "Stale", &linked.LocalID, nil)
	waiting := addBovine(t, s, "Waiting", &pending.LocalID, nil)
	orphan := addBovine(t, s, "Orphan", nil, ptr(10))
	lost := addBovine(t, s, "Lost", nil, ptr(77))

	inTx(t, s, func(ctx context.Context, tx *store.Tx) {
		n, err := RepairHerdLinks(ctx, tx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	got, err := s.Bovines().Get(ctx, stale.LocalID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), *got.HerdRemoteID)

	got, err = s.Bovines().Get(ctx, waiting.LocalID)
	require.NoError(t, err)
	assert.Nil(t, got.HerdRemoteID, "herd has no remote id yet")

	got, err = s.Bovines().Get(ctx, orphan.LocalID)
	require.NoError(t, err)
	assert.Equal(t, linked.LocalID, *got.HerdLocalID)

	got, err = s.Bovines().Get(ctx, lost.LocalID)
	require.NoError(t, err)
	assert.Nil(t, got.HerdLocalID)
}

func TestHerdLocalID(t *testing.T) {
	s := openStore(t)
	linked := addHerd(t, s, "North", "ref-n", ptr(40))
	addHerd(t, s, "South", "ref-s", nil)

	inTx(t, s, func(ctx context.Context, tx *store.Tx) {
		got, err := HerdLocalID(ctx, tx, ptr(40))
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, linked.LocalID, *got)

		got, err = HerdLocalID(ctx, tx, ptr(41))
		require.NoError(t, err)
		assert.Nil(t, got, "unknown remote id")

		got, err = HerdLocalID(ctx, tx, nil)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
