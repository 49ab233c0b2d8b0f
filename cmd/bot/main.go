package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"voxelsculpt.ai/internal/protocol"
	"voxelsculpt.ai/internal/sim/grid"
)

// bot connects as a viewer and sculpts random spheres into the scene, for load and
// smoke testing.
func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name     = flag.String("name", "bot", "client name")
		every    = flag.Duration("every", 500*time.Millisecond, "time between edits")
		seed     = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		radiusVx = flag.Float64("radius_voxels", 3, "brush radius in voxels")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
		Capabilities:    protocol.HelloCapabilities{MaxQueue: 256},
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	welcomes := make(chan protocol.WelcomeMsg, 1)
	go readLoop(conn, logger, welcomes)

	var params protocol.GridParams
	select {
	case w := <-welcomes:
		params = w.GridParams
		logger.Printf("WELCOME client_id=%s dims=%v voxel_size=%g", w.ClientID, params.Dims, params.VoxelSize)
	case <-time.After(10 * time.Second):
		logger.Fatalf("no WELCOME")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	ticker := time.NewTicker(*every)
	defer ticker.Stop()

	r := rand.New(rand.NewSource(*seed))
	for n := 0; ; n++ {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		if err := conn.WriteJSON(randomEdit(r, params, n, float32(*radiusVx))); err != nil {
			logger.Printf("send EDIT: %v", err)
			return
		}
	}
}

func randomEdit(r *rand.Rand, p protocol.GridParams, n int, radiusVoxels float32) protocol.EditMsg {
	var center [3]float32
	for a := 0; a < 3; a++ {
		extent := float32(p.Dims[a]*grid.Size) * p.VoxelSize
		center[a] = p.Origin[a] + r.Float32()*extent
	}
	e := protocol.EditMsg{
		Type:            protocol.TypeEdit,
		ProtocolVersion: protocol.Version,
		ID:              fmt.Sprintf("bot_%d", n),
		Op:              protocol.OpBrush,
		Center:          center,
		Radius:          radiusVoxels * p.VoxelSize,
	}
	switch r.Intn(3) {
	case 0:
		e.Tool = "remove"
	case 1:
		e.Tool, e.Material = "add", r.Intn(len(p.Palette))
	default:
		e.Tool, e.Material = "paint", r.Intn(len(p.Palette))
	}
	return e
}

func readLoop(conn *websocket.Conn, logger *log.Logger, welcomes chan<- protocol.WelcomeMsg) {
	meshes := 0
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Printf("read: %v (meshes=%d)", err, meshes)
			os.Exit(0)
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err == nil {
				welcomes <- w
			}
		case protocol.TypeMesh:
			meshes++
			if meshes%100 == 0 {
				logger.Printf("meshes=%d", meshes)
			}
		case protocol.TypeAck:
			var ack protocol.AckMsg
			if err := json.Unmarshal(msg, &ack); err == nil && !ack.Accepted {
				logger.Printf("rejected %s: %s %s", ack.AckFor, ack.Code, ack.Message)
			}
		}
	}
}
