// Package session owns one sculpting grid and the goroutine allowed to mutate it.
//
// Every edit, whether from a WebSocket client, the replay tool or the server itself, is
// queued to the session and applied on the next tick in arrival order. After the edits
// the tick drains the dirty set once and hands every rebuilt chunk to the render target
// and to connected clients.
package session

import (
	"errors"
	"io"
	"log"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"voxelsculpt.ai/internal/persistence/snapshot"
	"voxelsculpt.ai/internal/protocol"
	"voxelsculpt.ai/internal/sim/grid"
	"voxelsculpt.ai/internal/sim/sculpt"
)

var ErrStopped = errors.New("session stopped")

type Config struct {
	ID                 string
	TickRateHz         int
	SnapshotEveryTicks int
	// CutDepth is how many voxel lengths a CUT travels when the edit does not say.
	CutDepth int
}

func (c *Config) applyDefaults() {
	if c.ID == "" {
		c.ID = "sculpt_1"
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 30
	}
	if c.CutDepth <= 0 {
		c.CutDepth = sculpt.DefaultCutDepth
	}
}

// RenderTarget receives the geometry of every rebuilt chunk, on the session goroutine.
// Mesh slices are never mutated after hand-off and may be retained.
type RenderTarget interface {
	UpdateChunk(chunk [3]int, origin mgl32.Vec3, m grid.Mesh)
}

type EditEnvelope struct {
	ClientID string
	Edit     protocol.EditMsg
}

type JoinRequest struct {
	Name   string
	Voxels bool
	Out    chan []byte
	Resp   chan JoinResponse
}

type JoinResponse struct {
	Welcome protocol.WelcomeMsg
}

type RecordedJoin struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
}

type RecordedEdit struct {
	ClientID string           `json:"client_id"`
	Edit     protocol.EditMsg `json:"edit"`
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type EditLogger interface {
	WriteEdit(entry EditEntry) error
}

type TickLogEntry struct {
	Tick    uint64         `json:"tick"`
	Joins   []RecordedJoin `json:"joins,omitempty"`
	Leaves  []string       `json:"leaves,omitempty"`
	Edits   []RecordedEdit `json:"edits,omitempty"`
	Rebuilt int            `json:"rebuilt"`
	Digest  string         `json:"digest"`
}

// EditEntry is the audit record of one applied (or rejected) edit.
type EditEntry struct {
	Tick     uint64 `json:"tick"`
	ClientID string `json:"client_id"`
	EditID   string `json:"edit_id,omitempty"`
	Op       string `json:"op"`
	Tool     string `json:"tool,omitempty"`
	Changed  int    `json:"changed"`
	Code     string `json:"code,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Session is a single-threaded authoritative sculpting loop.
// The grid must be accessed only from the session loop goroutine once Run starts.
type Session struct {
	cfg    Config
	grid   *grid.Grid
	logger *log.Logger

	tick atomic.Uint64

	clients map[string]*client
	target  RenderTarget

	inbox chan EditEnvelope
	join  chan JoinRequest
	leave chan string
	admin chan snapshotReq
	stop  chan struct{}

	nextClientNum atomic.Uint64

	// Optional loggers (may be nil). Implemented in internal/persistence/*.
	tickLogger TickLogger
	editLogger EditLogger

	// Optional snapshot sink (may be nil). Snapshot writing should be off-thread.
	snapshotSink chan<- snapshot.SnapshotV1

	metrics atomic.Value
}

func New(cfg Config, g *grid.Grid, logger *log.Logger) (*Session, error) {
	if g == nil {
		return nil, errors.New("session: nil grid")
	}
	cfg.applyDefaults()
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Session{
		cfg:     cfg,
		grid:    g,
		logger:  logger,
		clients: map[string]*client{},
		inbox:   make(chan EditEnvelope, 1024),
		join:    make(chan JoinRequest, 64),
		leave:   make(chan string, 64),
		admin:   make(chan snapshotReq, 8),
		stop:    make(chan struct{}),
	}, nil
}

func (s *Session) SetTickLogger(l TickLogger)                    { s.tickLogger = l }
func (s *Session) SetEditLogger(l EditLogger)                    { s.editLogger = l }
func (s *Session) SetRenderTarget(t RenderTarget)                { s.target = t }
func (s *Session) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { s.snapshotSink = ch }

func (s *Session) Inbox() chan<- EditEnvelope { return s.inbox }
func (s *Session) Join() chan<- JoinRequest   { return s.join }
func (s *Session) Leave() chan<- string       { return s.leave }

// Done is closed by Stop.
func (s *Session) Done() <-chan struct{} { return s.stop }

func (s *Session) ID() string          { return s.cfg.ID }
func (s *Session) TickRateHz() int     { return s.cfg.TickRateHz }
func (s *Session) CurrentTick() uint64 { return s.tick.Load() }

// Grid exposes the owned grid. Not safe to use concurrently with Run.
func (s *Session) Grid() *grid.Grid { return s.grid }

// Materials is the palette size; edits naming a material outside [0, Materials) are
// rejected. Safe from any goroutine.
func (s *Session) Materials() int { return s.grid.Palette().Len() }
