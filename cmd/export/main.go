package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"voxelsculpt.ai/internal/export"
	"voxelsculpt.ai/internal/persistence/snapshot"
	"voxelsculpt.ai/internal/sim/grid"
	"voxelsculpt.ai/internal/sim/session"
)

// export meshes a snapshot and writes it as a binary glTF file.
func main() {
	var (
		snapPath = flag.String("snapshot", "", "path to .snap.zst (required)")
		outPath  = flag.String("out", "", "output .glb path (default: snapshot path with .glb)")
		workers  = flag.Int("workers", 0, "bulk recompute workers (0: CPU count)")
	)
	flag.Parse()

	if *snapPath == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot")
		os.Exit(2)
	}
	out := *outPath
	if out == "" {
		out = strings.TrimSuffix(*snapPath, ".snap.zst") + ".glb"
	}

	g, err := loadGrid(*snapPath, *workers)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := export.WriteGLB(out, g); err != nil {
		fmt.Fprintln(os.Stderr, "write glb:", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s chunks=%d solid=%d voxel_size=%g\n", out, g.Len(), g.SolidCount(), g.VoxelSize())
}

// loadGrid imports a snapshot, which bulk-recomputes every chunk mesh.
func loadGrid(path string, workers int) (*grid.Grid, error) {
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	cfg, err := session.GridConfig(snap, workers)
	if err != nil {
		return nil, err
	}
	g, err := grid.New(cfg)
	if err != nil {
		return nil, err
	}
	sess, err := session.New(session.Config{ID: snap.Header.SessionID}, g, log.New(io.Discard, "", 0))
	if err != nil {
		g.Close()
		return nil, err
	}
	if err := sess.ImportSnapshot(snap); err != nil {
		g.Close()
		return nil, fmt.Errorf("import snapshot: %w", err)
	}
	return sess.Grid(), nil
}
