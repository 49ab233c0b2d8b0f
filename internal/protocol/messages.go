package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	ClientName      string            `json:"client_name"`
	Capabilities    HelloCapabilities `json:"capabilities"`
}

type HelloCapabilities struct {
	// Voxels asks for the RLE voxel payload alongside each MESH.
	Voxels   bool `json:"voxels,omitempty"`
	MaxQueue int  `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	SessionID       string     `json:"session_id"`
	ClientID        string     `json:"client_id"`
	Tick            uint64     `json:"tick"`
	GridParams      GridParams `json:"grid_params"`
}

type GridParams struct {
	Dims       [3]int       `json:"dims"`
	ChunkSize  int          `json:"chunk_size"`
	VoxelSize  float32      `json:"voxel_size"`
	Origin     [3]float32   `json:"origin"`
	TickRateHz int          `json:"tick_rate_hz"`
	Palette    []PaletteRef `json:"palette"`
}

type PaletteRef struct {
	U0 float32 `json:"u0"`
	U1 float32 `json:"u1"`
}

// EDIT (client -> server). Which fields apply depends on Op:
//
//	BRUSH    tool, material, center, radius
//	CUT      face, forward, up, half_w, half_h, depth
//	SHAPE    shape, material, seed, materials
//	RESCALE  voxel_size
type EditMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	Op              string `json:"op"`

	Tool     string     `json:"tool,omitempty"`
	Material int        `json:"material,omitempty"`
	Center   [3]float32 `json:"center"`
	Radius   float32    `json:"radius,omitempty"`

	Face    [3]float32 `json:"face"`
	Forward [3]float32 `json:"forward"`
	Up      [3]float32 `json:"up"`
	HalfW   float32    `json:"half_w,omitempty"`
	HalfH   float32    `json:"half_h,omitempty"`
	Depth   int        `json:"depth,omitempty"`

	Shape     string `json:"shape,omitempty"`
	Seed      int64  `json:"seed,omitempty"`
	Materials int    `json:"materials,omitempty"`

	VoxelSize float32 `json:"voxel_size,omitempty"`
}

// MESH (server -> client): current geometry of one chunk. Buffers are flattened:
// three floats per vertex and normal, two per UV.
type MeshMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Tick            uint64     `json:"tick"`
	Chunk           [3]int     `json:"chunk"`
	Revision        uint64     `json:"revision"`
	Origin          [3]float32 `json:"origin"`
	Vertices        []float32  `json:"vertices"`
	Normals         []float32  `json:"normals"`
	UVs             []float32  `json:"uvs"`
	Triangles       []uint32   `json:"triangles"`
	Voxels          string     `json:"voxels,omitempty"` // base64 RLE
}

type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AckFor          string `json:"ack_for"`
	Accepted        bool   `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	ServerTick      uint64 `json:"server_tick,omitempty"`
}
