package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	persistlog "voxelsculpt.ai/internal/persistence/log"
	"voxelsculpt.ai/internal/persistence/snapshot"
	"voxelsculpt.ai/internal/sim/grid"
	"voxelsculpt.ai/internal/sim/session"
	"voxelsculpt.ai/internal/sim/tuning"
)

// replay re-applies a session's tick log and checks every tick's grid digest.
func main() {
	var (
		sessionDir = flag.String("session_dir", "", "session data dir containing events/ (required)")
		snapPath   = flag.String("snapshot", "", "start from this .snap.zst instead of an empty grid")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "tuning used to build the empty grid (ignored with -snapshot)")
		workers    = flag.Int("workers", 0, "bulk recompute workers (0: CPU count)")
		fromTick   = flag.Uint64("from_tick", 0, "start verifying from tick (inclusive, optional)")
		toTick     = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
	)
	flag.Parse()

	if *sessionDir == "" {
		fmt.Fprintln(os.Stderr, "missing -session_dir")
		os.Exit(2)
	}

	sess, err := startSession(*snapPath, *tuningPath, *workers)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	startTick := sess.CurrentTick()
	verifyFrom := *fromTick
	if verifyFrom < startTick {
		verifyFrom = startTick
	}
	checked, err := replay(sess, *sessionDir, startTick, verifyFrom, *toTick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d ticks (start tick=%d) digest=%s\n", checked, startTick, sess.Grid().Digest())
}

func startSession(snapPath, tuningPath string, workers int) (*session.Session, error) {
	tune, err := tuning.Load(tuningPath)
	if err != nil {
		// A snapshot carries the grid; tuning then only supplies the cut depth.
		if snapPath == "" || !os.IsNotExist(err) {
			return nil, fmt.Errorf("load tuning: %w", err)
		}
		tune = tuning.Defaults()
	}
	cfg := session.Config{
		ID:         "replay",
		TickRateHz: tune.TickRateHz,
		CutDepth:   tune.Sculpt.CutDepthVoxels,
	}
	quiet := log.New(io.Discard, "", 0)

	if snapPath == "" {
		gcfg, err := tune.GridConfig(workers)
		if err != nil {
			return nil, err
		}
		g, err := grid.New(gcfg)
		if err != nil {
			return nil, err
		}
		return session.New(cfg, g, quiet)
	}

	snap, err := snapshot.ReadSnapshot(snapPath)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	fmt.Printf("snapshot v%d session=%s tick=%d dims=%v voxel_size=%g chunks=%d\n",
		snap.Header.Version, snap.Header.SessionID, snap.Header.Tick, snap.Dims, snap.VoxelSize, len(snap.Chunks))
	gcfg, err := session.GridConfig(snap, workers)
	if err != nil {
		return nil, err
	}
	g, err := grid.New(gcfg)
	if err != nil {
		return nil, err
	}
	cfg.ID = snap.Header.SessionID
	sess, err := session.New(cfg, g, quiet)
	if err != nil {
		g.Close()
		return nil, err
	}
	if err := sess.ImportSnapshot(snap); err != nil {
		g.Close()
		return nil, fmt.Errorf("import snapshot: %w", err)
	}
	return sess, nil
}

var errDone = errors.New("done")

// replay steps sess through every logged tick at or after startTick.
func replay(sess *session.Session, sessionDir string, startTick, verifyFrom, toTick uint64) (checked uint64, err error) {
	err = persistlog.ReadTicks(sessionDir, func(entry session.TickLogEntry) error {
		if entry.Tick < startTick {
			return nil
		}
		if toTick != 0 && entry.Tick > toTick {
			return errDone
		}
		if entry.Tick != sess.CurrentTick() {
			return fmt.Errorf("tick gap: want=%d got=%d", sess.CurrentTick(), entry.Tick)
		}

		edits := make([]session.EditEnvelope, 0, len(entry.Edits))
		for _, re := range entry.Edits {
			edits = append(edits, session.EditEnvelope{ClientID: re.ClientID, Edit: re.Edit})
		}
		tick, digest := sess.StepOnce(edits)
		if tick >= verifyFrom {
			checked++
			if digest != entry.Digest {
				return fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", tick, digest, entry.Digest)
			}
		}
		return nil
	})
	if errors.Is(err, errDone) {
		err = nil
	}
	return checked, err
}
