package grid

import (
	"testing"

	"voxelsculpt.ai/internal/sim/voxel"
)

func TestPartition_CoversEveryIndexOnce(t *testing.T) {
	for total := 0; total <= 130; total++ {
		for workers := -1; workers <= 33; workers++ {
			ranges := Partition(total, workers)
			seen := make([]int, total)
			next := 0
			for _, r := range ranges {
				if r.Start != next {
					t.Fatalf("T=%d W=%d: range %+v starts at %d, want %d", total, workers, r, r.Start, next)
				}
				if r.Len() <= 0 {
					t.Fatalf("T=%d W=%d: empty range %+v", total, workers, r)
				}
				for i := r.Start; i < r.End; i++ {
					seen[i]++
				}
				next = r.End
			}
			if next != total {
				t.Fatalf("T=%d W=%d: covered up to %d", total, workers, next)
			}
			for i, n := range seen {
				if n != 1 {
					t.Fatalf("T=%d W=%d: index %d covered %d times", total, workers, i, n)
				}
			}
			if w := max(workers, 1); len(ranges) > w {
				t.Fatalf("T=%d W=%d: %d ranges", total, workers, len(ranges))
			}
		}
	}
}

func TestPartition_RemainderGoesToLastRange(t *testing.T) {
	got := Partition(3375, 16)
	if len(got) != 16 {
		t.Fatalf("ranges: got %d want 16", len(got))
	}
	if got[0].Len() != 211 || got[15] != (Range{Start: 3165, End: 3375}) {
		t.Fatalf("ranges: first=%+v last=%+v", got[0], got[15])
	}
}

func TestRecomputeChunks_MatchesIncremental(t *testing.T) {
	build := func(workers int) *Grid {
		g := newTestGrid(t, [3]int{3, 4, 5}, 0.01, workers)
		for i := 0; i < 600; i++ {
			h := hash3(5, i, 1, 2)
			gx, gy, gz := int(h%24), int((h>>8)%32), int((h>>16)%40)
			g.Chunk(gx/Size, gy/Size, gz/Size).ModifyVoxel(gx%Size, gy%Size, gz%Size, voxel.Value(1+(h>>32)%8))
		}
		return g
	}

	inc := build(1)
	for _, c := range inc.Chunks() {
		inc.EnqueueChunkToUpdate(c)
	}
	inc.DrainDirtyQueue()

	for _, workers := range []int{1, 2, 7, 64} {
		bulk := build(workers)
		bulk.RecomputeChunks()
		if bulk.PendingUpdates() != 0 {
			t.Fatalf("workers=%d: pending %d after bulk", workers, bulk.PendingUpdates())
		}
		if got, want := bulk.Digest(), inc.Digest(); got != want {
			t.Fatalf("workers=%d: digest got %s want %s", workers, got, want)
		}
		for _, c := range bulk.Chunks() {
			if c.Revision() != 1 {
				t.Fatalf("workers=%d: %v rebuilt %d times", workers, c, c.Revision())
			}
		}
	}
}

func TestRecomputeChunks_AfterClose(t *testing.T) {
	g := newTestGrid(t, [3]int{2, 2, 2}, 0.01, 4)
	g.InitCube(g.Origin(), g.Origin().Add(g.Extent()), 1)
	want := g.Digest()

	g.Close()
	g.Close()
	g.ClearChunks()
	g.InitCube(g.Origin(), g.Origin().Add(g.Extent()), 1)
	if got := g.Digest(); got != want {
		t.Fatalf("digest after close: got %s want %s", got, want)
	}
	if g.PendingUpdates() != 0 {
		t.Fatalf("pending %d after bulk", g.PendingUpdates())
	}
}
