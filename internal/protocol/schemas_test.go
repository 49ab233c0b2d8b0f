package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"voxelsculpt.ai/internal/protocol"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

// roundTrip turns a Go message into the generic form the validator expects.
func roundTrip(t *testing.T, v any) any {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestSchemas_ValidateSamples(t *testing.T) {
	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	helloSchema := compile(t, "hello.schema.json")
	welcomeSchema := compile(t, "welcome.schema.json")
	editSchema := compile(t, "edit.schema.json")
	meshSchema := compile(t, "mesh.schema.json")
	ackSchema := compile(t, "ack.schema.json")

	var hello any
	_ = json.Unmarshal([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "client_name":"viewer",
	  "capabilities":{"voxels":true,"max_queue":64}
	}`), &hello)
	validate(helloSchema, hello)

	validate(welcomeSchema, roundTrip(t, protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       "sculpt_1",
		ClientID:        "C1",
		GridParams: protocol.GridParams{
			Dims:       [3]int{15, 15, 15},
			ChunkSize:  8,
			VoxelSize:  0.01,
			TickRateHz: 30,
			Palette:    []protocol.PaletteRef{{U0: 0, U1: 0.124}},
		},
	}))

	var brush any
	_ = json.Unmarshal([]byte(`{
	  "type":"EDIT",
	  "protocol_version":"1.0",
	  "id":"E1",
	  "op":"BRUSH",
	  "tool":"add",
	  "material":3,
	  "center":[0.6,0.6,0.6],
	  "radius":0.04
	}`), &brush)
	validate(editSchema, brush)

	validate(editSchema, roundTrip(t, protocol.EditMsg{
		Type:            protocol.TypeEdit,
		ProtocolVersion: protocol.Version,
		ID:              "E2",
		Op:              protocol.OpCut,
		Face:            [3]float32{0.5, 0.5, 0},
		Forward:         [3]float32{0, 0, 1},
		Up:              [3]float32{0, 1, 0},
		HalfW:           0.02,
		HalfH:           0.02,
	}))

	validate(meshSchema, roundTrip(t, protocol.MeshMsg{
		Type:            protocol.TypeMesh,
		ProtocolVersion: protocol.Version,
		Tick:            7,
		Chunk:           [3]int{1, 2, 3},
		Revision:        2,
		Vertices:        []float32{0, 0, 0},
		Triangles:       []uint32{0, 1, 2},
		Voxels:          "AIAE",
	}))

	validate(ackSchema, roundTrip(t, protocol.AckMsg{
		Type:            protocol.TypeAck,
		ProtocolVersion: protocol.Version,
		AckFor:          "E1",
		Code:            protocol.ErrOutOfBounds,
	}))
}

func TestSchemas_RejectIncompleteEdit(t *testing.T) {
	editSchema := compile(t, "edit.schema.json")
	var brush any
	_ = json.Unmarshal([]byte(`{"type":"EDIT","protocol_version":"1.0","op":"BRUSH","tool":"add"}`), &brush)
	if err := editSchema.Validate(brush); err == nil {
		t.Fatalf("expected BRUSH without center/radius to fail")
	}
	var bad any
	_ = json.Unmarshal([]byte(`{"type":"EDIT","protocol_version":"1.0","op":"SMUDGE"}`), &bad)
	if err := editSchema.Validate(bad); err == nil {
		t.Fatalf("expected unknown op to fail")
	}
}
