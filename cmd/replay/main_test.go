package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	persistlog "voxelsculpt.ai/internal/persistence/log"
	"voxelsculpt.ai/internal/persistence/snapshot"
	"voxelsculpt.ai/internal/protocol"
	"voxelsculpt.ai/internal/sim/session"
	"voxelsculpt.ai/internal/sim/tuning"
)

const testTuningYAML = `tick_rate_hz: 30
grid:
  dims: [2, 2, 2]
  voxel_size: 1
scene:
  shape: speckled
  seed: 5
`

func brush(tool string, center [3]float32, radius float32) session.EditEnvelope {
	return session.EditEnvelope{ClientID: "C1", Edit: protocol.EditMsg{
		Type: protocol.TypeEdit, ProtocolVersion: protocol.Version,
		Op: protocol.OpBrush, Tool: tool, Material: 3, Center: center, Radius: radius,
	}}
}

// record runs a short live session from tuning and returns its data dir.
func record(t *testing.T, tuningPath string) (dir string, sess *session.Session) {
	t.Helper()
	dir = t.TempDir()
	tune, err := tuning.Load(tuningPath)
	if err != nil {
		t.Fatalf("tuning: %v", err)
	}
	sess, err = startSession("", tuningPath, 2)
	if err != nil {
		t.Fatalf("startSession: %v", err)
	}
	ticks := persistlog.NewTickLogger(dir)
	sess.SetTickLogger(ticks)

	script := [][]session.EditEnvelope{
		{{ClientID: "server", Edit: tune.SceneEdit()}},
		nil,
		{brush("remove", [3]float32{8, 8, 8}, 4)},
		{brush("paint", [3]float32{2, 2, 2}, 5), brush("add", [3]float32{8, 8, 8}, 2)},
		nil,
	}
	for i, edits := range script {
		sess.StepOnce(edits)
		if i == 2 {
			path := filepath.Join(dir, "snapshots", snapshot.FileName(2))
			if err := snapshot.WriteSnapshot(path, sess.ExportSnapshot(2)); err != nil {
				t.Fatalf("WriteSnapshot: %v", err)
			}
		}
	}
	if err := ticks.Close(); err != nil {
		t.Fatalf("close tick log: %v", err)
	}
	return dir, sess
}

func writeTuning(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte(testTuningYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReplay_FromEmptyGrid(t *testing.T) {
	tp := writeTuning(t)
	dir, live := record(t, tp)

	sess, err := startSession("", tp, 3)
	if err != nil {
		t.Fatalf("startSession: %v", err)
	}
	checked, err := replay(sess, dir, 0, 0, 0)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if checked != 5 {
		t.Fatalf("checked %d ticks want 5", checked)
	}
	if sess.Grid().Digest() != live.Grid().Digest() {
		t.Fatalf("final digest differs")
	}
}

func TestReplay_FromSnapshot(t *testing.T) {
	tp := writeTuning(t)
	dir, _ := record(t, tp)

	sess, err := startSession(filepath.Join(dir, "snapshots", snapshot.FileName(2)), filepath.Join(dir, "missing.yaml"), 1)
	if err != nil {
		t.Fatalf("startSession: %v", err)
	}
	if sess.CurrentTick() != 3 {
		t.Fatalf("start tick %d want 3", sess.CurrentTick())
	}
	checked, err := replay(sess, dir, sess.CurrentTick(), 0, 3)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if checked != 1 {
		t.Fatalf("checked %d ticks want 1", checked)
	}
}

func TestReplay_DetectsDivergence(t *testing.T) {
	tp := writeTuning(t)
	dir, _ := record(t, tp)

	other := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(other, []byte(strings.Replace(testTuningYAML, "[2, 2, 2]", "[1, 2, 2]", 1)), 0o644); err != nil {
		t.Fatal(err)
	}
	sess, err := startSession("", other, 1)
	if err != nil {
		t.Fatalf("startSession: %v", err)
	}
	_, err = replay(sess, dir, 0, 0, 0)
	if err == nil || !strings.Contains(err.Error(), "digest mismatch at tick 0") {
		t.Fatalf("got %v want digest mismatch at tick 0", err)
	}
}
