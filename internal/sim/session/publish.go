package session

import (
	"encoding/json"
	"fmt"
	"sort"

	"voxelsculpt.ai/internal/protocol"
	"voxelsculpt.ai/internal/sim/encoding"
	"voxelsculpt.ai/internal/sim/grid"
)

type client struct {
	id     string
	out    chan []byte
	voxels bool

	// Flattened indices of chunks whose newest geometry this client has not received.
	// A chunk rebuilt again before it is sent is still sent once, with the newest mesh.
	pending map[int]struct{}
}

func (s *Session) joinClient(req JoinRequest, nowTick uint64) JoinResponse {
	n := s.nextClientNum.Add(1)
	cl := &client{
		id:      fmt.Sprintf("C%d", n),
		out:     req.Out,
		voxels:  req.Voxels,
		pending: map[int]struct{}{},
	}
	// Initial sync: everything with geometry.
	for i, c := range s.grid.Chunks() {
		if !c.Empty() {
			cl.pending[i] = struct{}{}
		}
	}
	if cl.out != nil {
		s.clients[cl.id] = cl
	}
	return JoinResponse{Welcome: s.welcome(cl.id, nowTick)}
}

func (s *Session) welcome(clientID string, nowTick uint64) protocol.WelcomeMsg {
	g := s.grid
	params := protocol.GridParams{
		Dims:       g.Dims(),
		ChunkSize:  grid.Size,
		VoxelSize:  g.VoxelSize(),
		Origin:     g.Origin(),
		TickRateHz: s.cfg.TickRateHz,
	}
	for _, e := range g.Palette().Entries() {
		params.Palette = append(params.Palette, protocol.PaletteRef{U0: e.U0, U1: e.U1})
	}
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       s.cfg.ID,
		ClientID:        clientID,
		Tick:            nowTick,
		GridParams:      params,
	}
}

// publish hands rebuilt chunks to the render target and marks them pending for every
// client.
func (s *Session) publish(rebuilt []*grid.Chunk) {
	if len(rebuilt) == 0 {
		return
	}
	dims := s.grid.Dims()
	for _, c := range rebuilt {
		if s.target != nil {
			s.target.UpdateChunk([3]int{c.X, c.Y, c.Z}, c.Origin(), c.Mesh())
		}
		i := (c.X*dims[1]+c.Y)*dims[2] + c.Z
		for _, cl := range s.clients {
			cl.pending[i] = struct{}{}
		}
	}
}

// flushClients sends pending chunks in flattened order until a client's queue is full.
// Whatever is left stays pending for the next tick.
func (s *Session) flushClients(nowTick uint64) {
	if len(s.clients) == 0 {
		return
	}
	chunks := s.grid.Chunks()
	cache := map[meshKey][]byte{}
	for _, cl := range s.clients {
		if len(cl.pending) == 0 {
			continue
		}
		idx := make([]int, 0, len(cl.pending))
		for i := range cl.pending {
			idx = append(idx, i)
		}
		sort.Ints(idx)
	send:
		for _, i := range idx {
			key := meshKey{index: i, voxels: cl.voxels}
			b, ok := cache[key]
			if !ok {
				var err error
				b, err = json.Marshal(MeshMessage(chunks[i], nowTick, cl.voxels))
				if err != nil {
					s.logger.Printf("mesh encode chunk=%v: %v", chunks[i], err)
					delete(cl.pending, i)
					continue
				}
				cache[key] = b
			}
			select {
			case cl.out <- b:
				delete(cl.pending, i)
			default:
				break send
			}
		}
	}
}

type meshKey struct {
	index  int
	voxels bool
}

// MeshMessage flattens a chunk's current geometry into a MESH message.
func MeshMessage(c *grid.Chunk, tick uint64, withVoxels bool) protocol.MeshMsg {
	m := c.Mesh()
	msg := protocol.MeshMsg{
		Type:            protocol.TypeMesh,
		ProtocolVersion: protocol.Version,
		Tick:            tick,
		Chunk:           [3]int{c.X, c.Y, c.Z},
		Revision:        c.Revision(),
		Origin:          c.Origin(),
		Vertices:        make([]float32, 0, 3*len(m.Vertices)),
		Normals:         make([]float32, 0, 3*len(m.Normals)),
		UVs:             make([]float32, 0, 2*len(m.UVs)),
		Triangles:       m.Triangles,
	}
	for _, v := range m.Vertices {
		msg.Vertices = append(msg.Vertices, v[0], v[1], v[2])
	}
	for _, n := range m.Normals {
		msg.Normals = append(msg.Normals, n[0], n[1], n[2])
	}
	for _, uv := range m.UVs {
		msg.UVs = append(msg.UVs, uv[0], uv[1])
	}
	if withVoxels {
		msg.Voxels = encoding.EncodeRLE(c.Voxels())
	}
	return msg
}

// pendingMeshes is the number of chunk updates still owed to clients.
func (s *Session) pendingMeshes() int {
	n := 0
	for _, cl := range s.clients {
		n += len(cl.pending)
	}
	return n
}
