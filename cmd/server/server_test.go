package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"voxelsculpt.ai/internal/persistence/snapshot"
	"voxelsculpt.ai/internal/sim/session"
	"voxelsculpt.ai/internal/sim/tuning"
)

func testTuning() tuning.Tuning {
	tune := tuning.Defaults()
	tune.TickRateHz = 100
	tune.Grid.Dims = []int{2, 2, 2}
	tune.Grid.VoxelSize = 1
	tune.Grid.Workers = 2
	return tune
}

func TestBuildSession_FreshAndResume(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	tune := testTuning()

	sess, fresh, err := buildSession("s1", tune, "", 0, logger)
	if err != nil || !fresh {
		t.Fatalf("fresh: fresh=%v err=%v", fresh, err)
	}
	_, digest := sess.StepOnce([]session.EditEnvelope{{ClientID: "server", Edit: tune.SceneEdit()}})
	if sess.Grid().SolidCount() == 0 {
		t.Fatalf("scene edit built nothing")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "snapshots", snapshot.FileName(0))
	if err := snapshot.WriteSnapshot(path, sess.ExportSnapshot(0)); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if got := latestSnapshot(dir); got != path {
		t.Fatalf("latestSnapshot: got %q want %q", got, path)
	}

	resumed, fresh, err := buildSession("s1", tune, path, 1, logger)
	if err != nil || fresh {
		t.Fatalf("resume: fresh=%v err=%v", fresh, err)
	}
	if resumed.Grid().Digest() != digest || resumed.CurrentTick() != 1 {
		t.Fatalf("resume: digest=%s tick=%d want %s/1", resumed.Grid().Digest(), resumed.CurrentTick(), digest)
	}

	if _, _, err := buildSession("other", tune, path, 1, logger); err == nil {
		t.Fatalf("expected session id mismatch")
	}
}

func TestLatestSnapshot_PicksHighestTick(t *testing.T) {
	dir := t.TempDir()
	snaps := filepath.Join(dir, "snapshots")
	if err := os.MkdirAll(snaps, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"90.snap.zst", "1200.snap.zst", "300.snap.zst", "notes.txt", "x.snap.zst"} {
		if err := os.WriteFile(filepath.Join(snaps, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if got := latestSnapshot(dir); filepath.Base(got) != "1200.snap.zst" {
		t.Fatalf("got %q", got)
	}
	if got := latestSnapshot(t.TempDir()); got != "" {
		t.Fatalf("empty dir: got %q", got)
	}
}

func TestMux_MetricsAndAdminSnapshot(t *testing.T) {
	t.Setenv("VS_ENABLE_ADMIN_HTTP", "true")
	logger := log.New(io.Discard, "", 0)
	sess, _, err := buildSession("s1", testTuning(), "", 0, logger)
	if err != nil {
		t.Fatalf("buildSession: %v", err)
	}
	sink := make(chan snapshot.SnapshotV1, 1)
	sess.SetSnapshotSink(sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sess.Run(ctx)

	mux := newMux(sess, nil, logger)

	deadline := time.Now().Add(5 * time.Second)
	for sess.Metrics().Tick == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{`voxelsculpt_session_tick{session="s1"}`, `voxelsculpt_grid_chunks{session="s1"} 8`, `queue="inbox"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/admin/v1/snapshot", nil)
	req.RemoteAddr = "127.0.0.1:5555"
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("snapshot: status %d body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		OK   bool   `json:"ok"`
		Tick uint64 `json:"tick"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || !resp.OK {
		t.Fatalf("snapshot response: %s err=%v", rec.Body.String(), err)
	}
	if snap := <-sink; snap.Header.Tick != resp.Tick {
		t.Fatalf("sink tick %d want %d", snap.Header.Tick, resp.Tick)
	}

	req = httptest.NewRequest(http.MethodPost, "/admin/v1/snapshot", nil)
	req.RemoteAddr = "10.0.0.8:5555"
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("remote snapshot: status %d want 403", rec.Code)
	}
}
