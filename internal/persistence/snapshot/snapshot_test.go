package snapshot

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func sample() SnapshotV1 {
	return SnapshotV1{
		Header:            Header{Version: Version, SessionID: "sculpt_1", Tick: 42},
		Dims:              [3]int{2, 3, 4},
		ChunkSize:         8,
		VoxelSize:         0.02,
		StandardVoxelSize: 0.01,
		Origin:            [3]float32{1, 0, -1},
		TickRate:          30,
		Palette:           []PaletteEntryV1{{U0: 0, U1: 0.5}, {U0: 0.5, U1: 1}},
		Chunks: []ChunkV1{
			{X: 1, Y: 2, Z: 3, Voxels: []byte{1, 0x80, 0x04}},
		},
		Digest: "00000000deadbeef",
	}
}

func TestWriteReadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots", FileName(42))
	in := sample()
	if err := WriteSnapshot(path, in); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}

	out, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("snapshot mismatch:\n got %+v\nwant %+v", out, in)
	}

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h != in.Header {
		t.Fatalf("header: got %+v want %+v", h, in.Header)
	}
}

func TestReadSnapshot_RejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName(1))
	s := sample()
	s.Header.Version = 9
	if err := WriteSnapshot(path, s); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if _, err := ReadSnapshot(path); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestReadSnapshot_Missing(t *testing.T) {
	if _, err := ReadSnapshot(filepath.Join(t.TempDir(), "nope.snap.zst")); !os.IsNotExist(err) {
		t.Fatalf("got %v want not-exist", err)
	}
}
