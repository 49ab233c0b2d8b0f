package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"strconv"
	"strings"
	"time"

	"voxelsculpt.ai/internal/sim/session"
	"voxelsculpt.ai/internal/transport/ws"
)

func newMux(sess *session.Session, idx runtimeIndex, logger *log.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(sess, idx))

	if envBool("VS_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()) {
		// Local-only; none of these touch the edit stream.
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(struct {
				SessionID string          `json:"session_id"`
				Tick      uint64          `json:"tick"`
				Metrics   session.Metrics `json:"metrics"`
			}{
				SessionID: sess.ID(),
				Tick:      sess.CurrentTick(),
				Metrics:   sess.Metrics(),
			})
		})
		mux.HandleFunc("/admin/v1/snapshot", func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()
			tick, err := sess.RequestSnapshot(ctx)
			rw.Header().Set("Content-Type", "application/json")
			if err != nil {
				rw.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "tick": tick, "error": err.Error()})
				return
			}
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "tick": tick})
		})
	} else {
		logger.Printf("admin endpoints disabled (VS_ENABLE_ADMIN_HTTP=false)")
	}
	if envBool("VS_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(sess, logger).Handler())
	return mux
}

// metricsHandler writes the Prometheus text exposition format.
func metricsHandler(sess *session.Session, idx runtimeIndex) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		id := sess.ID()
		m := sess.Metrics()
		tick := sess.CurrentTick()
		if m.Tick != 0 {
			tick = m.Tick
		}

		gauge := func(name, help string, value any) {
			fmt.Fprintf(rw, "# HELP %s %s\n", name, help)
			fmt.Fprintf(rw, "# TYPE %s gauge\n", name)
			fmt.Fprintf(rw, "%s{session=%q} %v\n", name, id, value)
		}
		gauge("voxelsculpt_session_tick", "Last completed tick.", tick)
		gauge("voxelsculpt_session_clients", "Connected mesh subscribers.", m.Clients)
		gauge("voxelsculpt_grid_chunks", "Chunks in the grid.", m.Chunks)
		gauge("voxelsculpt_grid_solid_voxels", "Solid voxels in the grid.", m.SolidVoxels)
		gauge("voxelsculpt_grid_voxel_size", "Current voxel edge length.", m.VoxelSize)
		gauge("voxelsculpt_tick_rebuilt_chunks", "Chunks remeshed in the last tick.", m.Rebuilt)
		gauge("voxelsculpt_pending_meshes", "Chunk updates owed to subscribers.", m.PendingMeshes)
		gauge("voxelsculpt_step_ms", "Last tick step duration in milliseconds.", fmt.Sprintf("%.3f", m.StepMS))

		fmt.Fprintf(rw, "# HELP voxelsculpt_queue_depth Channel backlog depth.\n")
		fmt.Fprintf(rw, "# TYPE voxelsculpt_queue_depth gauge\n")
		fmt.Fprintf(rw, "voxelsculpt_queue_depth{session=%q,queue=%q} %d\n", id, "inbox", m.QueueDepths.Inbox)
		fmt.Fprintf(rw, "voxelsculpt_queue_depth{session=%q,queue=%q} %d\n", id, "join", m.QueueDepths.Join)
		fmt.Fprintf(rw, "voxelsculpt_queue_depth{session=%q,queue=%q} %d\n", id, "leave", m.QueueDepths.Leave)

		if idx == nil {
			return
		}
		st := idx.Stats()
		fmt.Fprintf(rw, "# HELP voxelsculpt_index_queue_depth Index writer backlog.\n")
		fmt.Fprintf(rw, "# TYPE voxelsculpt_index_queue_depth gauge\n")
		fmt.Fprintf(rw, "voxelsculpt_index_queue_depth %d\n", st.QueueDepth)
		fmt.Fprintf(rw, "# HELP voxelsculpt_index_dropped_total Index writes dropped because the queue was full.\n")
		fmt.Fprintf(rw, "# TYPE voxelsculpt_index_dropped_total counter\n")
		fmt.Fprintf(rw, "voxelsculpt_index_dropped_total{kind=%q} %d\n", "tick", st.DropTickTotal)
		fmt.Fprintf(rw, "voxelsculpt_index_dropped_total{kind=%q} %d\n", "edit", st.DropEditTotal)
		fmt.Fprintf(rw, "voxelsculpt_index_dropped_total{kind=%q} %d\n", "snapshot", st.DropSnapshotTotal)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(name string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(name)))
	if err != nil {
		return def
	}
	return v
}
