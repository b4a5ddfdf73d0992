package items

import (
	"os"
	"sync"
	"testing"

	"github.com/abl-archipelago/bridge/ap"
	"github.com/abl-archipelago/bridge/game/progress"
	"github.com/abl-archipelago/bridge/storage"
	"github.com/abl-archipelago/bridge/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEngine(t *testing.T) (*Engine, *storage.Store, *progress.Store) {
	t.Helper()
	files := testutil.SetupStore(t)
	prog := testutil.SetupProgress(t, files)
	return NewEngine(prog, files, nil, zap.NewNop()), files, prog
}

func readCommands(t *testing.T, files *storage.Store) string {
	t.Helper()
	data, err := os.ReadFile(files.Path(storage.CommandFile))
	if os.IsNotExist(err) {
		return ""
	}
	require.NoError(t, err)
	return string(data)
}

func TestApply_InstantCommands(t *testing.T) {
	e, files, _ := newTestEngine(t)

	e.Apply(ExtraLifeID, "Extra Life")
	e.Apply(HealthUpgradeID, "Health Upgrade")
	e.Apply(ExtraLifeID, "Extra Life")

	assert.Equal(t, "LIFE +1\nHEALTH +1\nLIFE +1\n", readCommands(t, files))
}

func TestApply_BerryUpgrade(t *testing.T) {
	e, _, prog := newTestEngine(t)

	// Level 1 berry, five deliveries: tier rises one per delivery, caps at 4.
	for i := 0; i < 5; i++ {
		e.Apply(BerryBaseID+1, "Progressive Berry Upgrade - Ant Hill")
	}
	assert.Equal(t, progress.MaxBerryTier, prog.BerryTier(1))
}

func TestApply_BerryDisabledLevel(t *testing.T) {
	e, _, prog := newTestEngine(t)

	// Level 17 (Training) has berry progression disabled.
	e.Apply(BerryBaseID+17, "Progressive Berry Upgrade - Training")
	assert.Equal(t, 0, prog.BerryTier(17))
}

func TestApply_SeedUpgrade(t *testing.T) {
	e, _, prog := newTestEngine(t)

	// Item 403: color 0, level 3, cap 1.
	e.Apply(403, "Progressive Brown Seed Upgrade - Tunnels")
	assert.Equal(t, 1, prog.SeedTier(3, 0))
	e.Apply(403, "Progressive Brown Seed Upgrade - Tunnels")
	assert.Equal(t, 1, prog.SeedTier(3, 0), "delivery beyond cap must be a no-op")

	// Item 703: color 3, level 3, cap 4.
	for i := 0; i < 6; i++ {
		e.Apply(703, "Progressive Purple Seed Upgrade - Tunnels")
	}
	assert.Equal(t, 4, prog.SeedTier(3, 3))
}

func TestApply_SeedWithoutCapIgnored(t *testing.T) {
	e, _, prog := newTestEngine(t)

	// Level 6 color 3 caps at 0, level 16 has no cap row.
	e.Apply(706, "Progressive Purple Seed Upgrade - Cliffside")
	e.Apply(416, "Item #416")
	assert.Equal(t, 0, prog.SeedTier(6, 3))
	assert.Equal(t, 0, prog.SeedTier(16, 0))
}

func TestApply_UnknownIDIgnored(t *testing.T) {
	e, files, prog := newTestEngine(t)

	e.Apply(999, "Item #999")
	e.Apply(1, "Item #1")

	assert.Empty(t, readCommands(t, files))
	berries, seeds := prog.Snapshot()
	assert.Empty(t, berries)
	assert.Empty(t, seeds)
}

func TestReplayBacklog_AppliesTail(t *testing.T) {
	e, files, prog := newTestEngine(t)

	sess := &testutil.FakeSession{}
	sess.SeedItems(ExtraLifeID, BerryBaseID+1, BerryBaseID+1, 403)

	e.ReplayBacklog(sess)

	assert.Equal(t, 4, e.AppliedCount())
	assert.Equal(t, 4, files.Watermark())
	assert.Equal(t, 2, prog.BerryTier(1))
	assert.Equal(t, 1, prog.SeedTier(3, 0))
	assert.Equal(t, "LIFE +1\n", readCommands(t, files))
}

func TestReplayBacklog_Idempotent(t *testing.T) {
	e, files, prog := newTestEngine(t)

	sess := &testutil.FakeSession{}
	sess.SeedItems(BerryBaseID+1, BerryBaseID+1, ExtraLifeID)

	e.ReplayBacklog(sess)
	e.ReplayBacklog(sess)

	assert.Equal(t, 2, prog.BerryTier(1), "second replay must not re-increment")
	assert.Equal(t, "LIFE +1\n", readCommands(t, files))
	assert.Equal(t, 3, files.Watermark())
}

func TestReplayBacklog_ResumesFromWatermark(t *testing.T) {
	files := testutil.SetupStore(t)
	prog := testutil.SetupProgress(t, files)
	files.SetWatermark(2)

	e := NewEngine(prog, files, nil, zap.NewNop())
	sess := &testutil.FakeSession{}
	sess.SeedItems(BerryBaseID+1, BerryBaseID+1, BerryBaseID+1)

	e.ReplayBacklog(sess)

	// Only the third delivery is new.
	assert.Equal(t, 1, prog.BerryTier(1))
	assert.Equal(t, 3, files.Watermark())
}

func TestReplayBacklog_ClampsShrunkWatermark(t *testing.T) {
	files := testutil.SetupStore(t)
	prog := testutil.SetupProgress(t, files)
	files.SetWatermark(50)

	e := NewEngine(prog, files, nil, zap.NewNop())
	sess := &testutil.FakeSession{}
	sess.SeedItems(ExtraLifeID)

	e.ReplayBacklog(sess)

	assert.Equal(t, 1, files.Watermark())
	assert.Equal(t, 1, e.AppliedCount())
}

func TestHandleDelivery_LiveThenReplayNoDoubleApply(t *testing.T) {
	e, files, prog := newTestEngine(t)

	sess := &testutil.FakeSession{}
	sess.SetItemHandler(e.HandleDelivery)

	// Items arrive live before the replayer runs (startup race).
	sess.AddItem(BerryBaseID + 1)
	sess.AddItem(BerryBaseID + 1)
	e.ReplayBacklog(sess)

	assert.Equal(t, 2, prog.BerryTier(1))
	assert.Equal(t, 2, files.Watermark())

	// And live deliveries after replay keep advancing the watermark.
	sess.AddItem(ExtraLifeID)
	assert.Equal(t, 3, files.Watermark())
	assert.Equal(t, "LIFE +1\n", readCommands(t, files))
}

func TestApplyBatch_ConcurrentSafety(t *testing.T) {
	e, files, prog := newTestEngine(t)

	list := []ap.NetworkItem{
		{Item: BerryBaseID + 1},
		{Item: BerryBaseID + 1},
		{Item: 403},
		{Item: ExtraLifeID},
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.ApplyBatch(0, list)
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, prog.BerryTier(1))
	assert.Equal(t, 1, prog.SeedTier(3, 0))
	assert.Equal(t, "LIFE +1\n", readCommands(t, files))
	assert.Equal(t, 4, files.Watermark())
}

type recordedItem struct {
	index  int
	itemID int64
	effect string
}

type fakeRecorder struct {
	mu    sync.Mutex
	items []recordedItem
}

func (r *fakeRecorder) RecordItem(index int, itemID int64, name, effect string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, recordedItem{index, itemID, effect})
}

func TestEngine_Recorder(t *testing.T) {
	files := testutil.SetupStore(t)
	prog := testutil.SetupProgress(t, files)
	rec := &fakeRecorder{}
	e := NewEngine(prog, files, rec, zap.NewNop())

	e.ApplyBatch(0, []ap.NetworkItem{{Item: ExtraLifeID}, {Item: BerryBaseID + 1}})

	require.Len(t, rec.items, 2)
	assert.Equal(t, recordedItem{0, ExtraLifeID, "LIFE +1"}, rec.items[0])
	assert.Equal(t, recordedItem{1, BerryBaseID + 1, "berry upgrade"}, rec.items[1])
}
