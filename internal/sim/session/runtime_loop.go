package session

import (
	"context"
	"time"

	"voxelsculpt.ai/internal/protocol"
)

func (s *Session) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(s.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingEdits []EditEnvelope
	var pendingJoins []JoinRequest
	var pendingLeaves []string
	var pendingAdmin []snapshotReq

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		case req := <-s.join:
			pendingJoins = append(pendingJoins, req)
		case id := <-s.leave:
			pendingLeaves = append(pendingLeaves, id)
		case req := <-s.admin:
			pendingAdmin = append(pendingAdmin, req)
		case env := <-s.inbox:
			pendingEdits = append(pendingEdits, env)
		case <-ticker.C:
			s.step(pendingJoins, pendingLeaves, pendingEdits)
			s.handleSnapshotRequests(pendingAdmin)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingEdits = pendingEdits[:0]
			pendingAdmin = pendingAdmin[:0]
		}
	}
}

func (s *Session) Stop() { close(s.stop) }

// StepOnce advances the session by a single tick using the same ordering semantics as the
// server. It is primarily intended for deterministic replays/tests.
func (s *Session) StepOnce(edits []EditEnvelope) (tick uint64, digest string) {
	tick = s.tick.Load()
	s.step(nil, nil, edits)
	return tick, s.grid.Digest()
}

func (s *Session) step(joins []JoinRequest, leaves []string, edits []EditEnvelope) {
	stepStart := time.Now()
	nowTick := s.tick.Load()

	// Leaves before joins, both at the tick boundary.
	recordedLeaves := make([]string, 0, len(leaves))
	for _, id := range leaves {
		if _, ok := s.clients[id]; ok {
			delete(s.clients, id)
			recordedLeaves = append(recordedLeaves, id)
		}
	}
	recordedJoins := make([]RecordedJoin, 0, len(joins))
	for _, req := range joins {
		resp := s.joinClient(req, nowTick)
		if req.Resp != nil {
			req.Resp <- resp
		}
		recordedJoins = append(recordedJoins, RecordedJoin{ClientID: resp.Welcome.ClientID, Name: req.Name})
	}

	// Apply edits in inbox order.
	recorded := make([]RecordedEdit, 0, len(edits))
	bulk := false
	for _, env := range edits {
		recorded = append(recorded, RecordedEdit{ClientID: env.ClientID, Edit: env.Edit})
		out := s.applyEdit(env)
		bulk = bulk || out.Bulk
		s.audit(nowTick, env, out)
	}

	rebuilt := s.grid.DrainDirtyQueue()
	if bulk {
		// A bulk rebuild already cleared the dirty set; every chunk changed.
		rebuilt = s.grid.Chunks()
	}
	s.publish(rebuilt)
	s.flushClients(nowTick)

	digest := s.grid.Digest()
	if s.tickLogger != nil {
		_ = s.tickLogger.WriteTick(TickLogEntry{
			Tick:    nowTick,
			Joins:   recordedJoins,
			Leaves:  recordedLeaves,
			Edits:   recorded,
			Rebuilt: len(rebuilt),
			Digest:  digest,
		})
	}

	// Snapshot every N ticks, starting after tick 0.
	if s.snapshotSink != nil && nowTick != 0 && s.cfg.SnapshotEveryTicks > 0 {
		if nowTick%uint64(s.cfg.SnapshotEveryTicks) == 0 {
			snap := s.ExportSnapshot(nowTick)
			select {
			case s.snapshotSink <- snap:
			default:
				s.logger.Printf("snapshot dropped: sink full tick=%d", nowTick)
			}
		}
	}

	stepMS := float64(time.Since(stepStart).Microseconds()) / 1000.0
	s.tick.Add(1)
	s.storeMetrics(nowTick, len(rebuilt), digest, stepMS)
}

func (s *Session) applyEdit(env EditEnvelope) Outcome {
	cmd, err := ParseEdit(env.Edit, s.Materials())
	if err != nil {
		return Outcome{Code: protocol.ErrBadRequest, Reason: err.Error()}
	}
	return cmd.apply(s.grid, s.cfg)
}

func (s *Session) audit(tick uint64, env EditEnvelope, out Outcome) {
	if s.editLogger == nil {
		return
	}
	_ = s.editLogger.WriteEdit(EditEntry{
		Tick:     tick,
		ClientID: env.ClientID,
		EditID:   env.Edit.ID,
		Op:       env.Edit.Op,
		Tool:     env.Edit.Tool,
		Changed:  out.Changed,
		Code:     out.Code,
		Reason:   out.Reason,
	})
}
