package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	persistlog "voxelsculpt.ai/internal/persistence/log"
	"voxelsculpt.ai/internal/persistence/snapshot"
	"voxelsculpt.ai/internal/sim/grid"
	"voxelsculpt.ai/internal/sim/session"
	"voxelsculpt.ai/internal/sim/tuning"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		sessionID  = flag.String("session", "sculpt_1", "session id")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		workers    = flag.Int("workers", 0, "bulk recompute workers (0: tuning value, then CPU count)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite index (ticks, edits, snapshot metadata)")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	sessionDir := filepath.Join(*dataDir, "sessions", *sessionID)
	_ = os.MkdirAll(sessionDir, 0o755)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(sessionDir)
	}

	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	idx, err := openRuntimeIndex(sessionDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertTuning(tune); err != nil {
			logger.Printf("index backend: upsert tuning: %v", err)
		}
	}

	sessLogger := log.New(os.Stdout, "[session] ", log.LstdFlags|log.Lmicroseconds)
	sess, fresh, err := buildSession(*sessionID, tune, snapshotToLoad, *workers, sessLogger)
	if err != nil {
		logger.Fatalf("session: %v", err)
	}
	defer sess.Grid().Close()

	ctx, cancel := signalContext()
	defer cancel()

	tickLog := persistlog.NewTickLogger(sessionDir)
	editLog := persistlog.NewEditLogger(sessionDir)
	defer tickLog.Close()
	defer editLog.Close()
	sess.SetTickLogger(multiTickLogger{a: tickLog, b: idx})
	sess.SetEditLogger(multiEditLogger{a: editLog, b: idx})

	// Snapshot writer.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	sess.SetSnapshotSink(snapCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				path := filepath.Join(sessionDir, "snapshots", snapshot.FileName(snap.Header.Tick))
				if err := snapshot.WriteSnapshot(path, snap); err != nil {
					logger.Printf("snapshot write: %v", err)
					continue
				}
				if idx != nil {
					idx.RecordSnapshot(path, snap)
				}
			}
		}
	}()

	if fresh {
		sess.Inbox() <- session.EditEnvelope{ClientID: "server", Edit: tune.SceneEdit()}
	}

	go func() {
		if err := sess.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("session stopped: %v", err)
		}
	}()

	srv := &http.Server{
		Addr:              *addr,
		Handler:           newMux(sess, idx, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s session=%s dims=%v voxel_size=%g", *addr, *sessionID, sess.Grid().Dims(), sess.Grid().VoxelSize())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

// buildSession resumes from snapshotPath when set, otherwise builds an empty grid from
// tuning. fresh reports the latter; the caller then queues the scene edit.
func buildSession(id string, tune tuning.Tuning, snapshotPath string, workers int, logger *log.Logger) (sess *session.Session, fresh bool, err error) {
	cfg := session.Config{
		ID:                 id,
		TickRateHz:         tune.TickRateHz,
		SnapshotEveryTicks: tune.SnapshotEveryTicks,
		CutDepth:           tune.Sculpt.CutDepthVoxels,
	}

	if snapshotPath == "" {
		gcfg, err := tune.GridConfig(workers)
		if err != nil {
			return nil, false, err
		}
		g, err := grid.New(gcfg)
		if err != nil {
			return nil, false, err
		}
		sess, err := session.New(cfg, g, logger)
		return sess, true, err
	}

	snap, err := snapshot.ReadSnapshot(snapshotPath)
	if err != nil {
		return nil, false, fmt.Errorf("read snapshot: %w", err)
	}
	if snap.Header.SessionID != "" && snap.Header.SessionID != id {
		return nil, false, fmt.Errorf("snapshot session id mismatch: flag=%s snap=%s", id, snap.Header.SessionID)
	}
	if workers <= 0 {
		workers = tune.Grid.Workers
	}
	gcfg, err := session.GridConfig(snap, workers)
	if err != nil {
		return nil, false, err
	}
	g, err := grid.New(gcfg)
	if err != nil {
		return nil, false, err
	}
	if snap.TickRate > 0 {
		cfg.TickRateHz = snap.TickRate
	}
	sess, err = session.New(cfg, g, logger)
	if err != nil {
		g.Close()
		return nil, false, err
	}
	if err := sess.ImportSnapshot(snap); err != nil {
		g.Close()
		return nil, false, fmt.Errorf("import snapshot: %w", err)
	}
	logger.Printf("resumed from snapshot=%s tick=%d", filepath.Base(snapshotPath), sess.CurrentTick())
	return sess, false, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func latestSnapshot(sessionDir string) string {
	dir := filepath.Join(sessionDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}

type multiTickLogger struct {
	a session.TickLogger
	b session.TickLogger
}

func (m multiTickLogger) WriteTick(entry session.TickLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return nil
}

type multiEditLogger struct {
	a session.EditLogger
	b session.EditLogger
}

func (m multiEditLogger) WriteEdit(entry session.EditEntry) error {
	if m.a != nil {
		_ = m.a.WriteEdit(entry)
	}
	if m.b != nil {
		_ = m.b.WriteEdit(entry)
	}
	return nil
}
