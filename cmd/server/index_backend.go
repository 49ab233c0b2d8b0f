package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"voxelsculpt.ai/internal/persistence/indexdb"
	"voxelsculpt.ai/internal/persistence/snapshot"
	"voxelsculpt.ai/internal/sim/session"
	"voxelsculpt.ai/internal/sim/tuning"
)

type runtimeIndex interface {
	session.TickLogger
	session.EditLogger
	Close() error
	UpsertTuning(tune tuning.Tuning) error
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
	Stats() indexdb.Stats
}

func openRuntimeIndex(sessionDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("VS_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		idx, err := indexdb.OpenSQLite(filepath.Join(sessionDir, "index", "session.sqlite"))
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported VS_INDEX_BACKEND: %s", backend)
	}
}
