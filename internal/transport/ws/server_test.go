package ws

import (
	"context"
	"encoding/json"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"voxelsculpt.ai/internal/protocol"
	"voxelsculpt.ai/internal/sim/grid"
	"voxelsculpt.ai/internal/sim/session"
)

func startServer(t *testing.T) (*session.Session, string) {
	t.Helper()
	g, err := grid.New(grid.Config{Dims: [3]int{1, 1, 1}, VoxelSize: 1, Workers: 1})
	if err != nil {
		t.Fatalf("grid.New: %v", err)
	}
	sess, err := session.New(session.Config{ID: "ws_test", TickRateHz: 100}, g, nil)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go sess.Run(ctx)

	srv := httptest.NewServer(NewServer(sess, nil).Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return sess, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// next reads messages until one of the wanted type arrives.
func next(t *testing.T, conn *websocket.Conn, typ string, v any) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read waiting for %s: %v", typ, err)
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if base.Type != typ {
			continue
		}
		if err := json.Unmarshal(msg, v); err != nil {
			t.Fatalf("unmarshal %s: %v", typ, err)
		}
		return
	}
}

func hello() protocol.HelloMsg {
	return protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      "viewer",
		Capabilities:    protocol.HelloCapabilities{Voxels: true, MaxQueue: 8},
	}
}

func TestServer_HelloEditMesh(t *testing.T) {
	sess, url := startServer(t)
	conn := dial(t, url)

	send(t, conn, hello())
	var welcome protocol.WelcomeMsg
	next(t, conn, protocol.TypeWelcome, &welcome)
	if welcome.SessionID != "ws_test" || welcome.ClientID == "" {
		t.Fatalf("welcome: %+v", welcome)
	}
	if welcome.GridParams.Dims != [3]int{1, 1, 1} || len(welcome.GridParams.Palette) != sess.Materials() {
		t.Fatalf("grid params: %+v", welcome.GridParams)
	}

	send(t, conn, protocol.EditMsg{
		Type:            protocol.TypeEdit,
		ProtocolVersion: protocol.Version,
		ID:              "e1",
		Op:              protocol.OpBrush,
		Tool:            "add",
		Material:        1,
		Center:          [3]float32{4, 4, 4},
		Radius:          1,
	})
	var ack protocol.AckMsg
	next(t, conn, protocol.TypeAck, &ack)
	if !ack.Accepted || ack.AckFor != "e1" {
		t.Fatalf("ack: %+v", ack)
	}

	var mesh protocol.MeshMsg
	next(t, conn, protocol.TypeMesh, &mesh)
	if mesh.Chunk != [3]int{0, 0, 0} || len(mesh.Triangles) == 0 || mesh.Voxels == "" {
		t.Fatalf("mesh: chunk=%v tris=%d voxels=%d", mesh.Chunk, len(mesh.Triangles), len(mesh.Voxels))
	}
}

func TestServer_RejectsBadEdits(t *testing.T) {
	_, url := startServer(t)
	conn := dial(t, url)
	send(t, conn, hello())
	var welcome protocol.WelcomeMsg
	next(t, conn, protocol.TypeWelcome, &welcome)

	cases := []struct {
		msg  any
		code string
	}{
		{map[string]any{"type": "PING", "protocol_version": protocol.Version}, protocol.ErrProtoBadRequest},
		{protocol.EditMsg{Type: protocol.TypeEdit, ProtocolVersion: "0.1", ID: "old", Op: protocol.OpBrush}, protocol.ErrProtoBadRequest},
		{protocol.EditMsg{Type: protocol.TypeEdit, ProtocolVersion: protocol.Version, ID: "r0", Op: protocol.OpBrush, Tool: "add", Radius: 0}, protocol.ErrBadRequest},
		{protocol.EditMsg{Type: protocol.TypeEdit, ProtocolVersion: protocol.Version, ID: "cut", Op: protocol.OpCut, Forward: [3]float32{0, 0, 1}, Up: [3]float32{0, 0, 2}}, protocol.ErrBadRequest},
	}
	for _, tc := range cases {
		send(t, conn, tc.msg)
		var ack protocol.AckMsg
		next(t, conn, protocol.TypeAck, &ack)
		if ack.Accepted || ack.Code != tc.code {
			t.Fatalf("%v: ack %+v want code %s", tc.msg, ack, tc.code)
		}
	}
}

func TestServer_RequiresHello(t *testing.T) {
	_, url := startServer(t)
	conn := dial(t, url)
	send(t, conn, protocol.EditMsg{Type: protocol.TypeEdit, ProtocolVersion: protocol.Version})

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("got %v want policy violation close", err)
	}
}

type leaveLog struct {
	mu     sync.Mutex
	joined []string
	left   []string
}

func (l *leaveLog) WriteTick(e session.TickLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, j := range e.Joins {
		l.joined = append(l.joined, j.ClientID)
	}
	l.left = append(l.left, e.Leaves...)
	return nil
}

func (l *leaveLog) snapshot() (joined, left []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.joined...), append([]string(nil), l.left...)
}

func TestServer_LeavesWhenWelcomeCannotBeWritten(t *testing.T) {
	g, err := grid.New(grid.Config{Dims: [3]int{1, 1, 1}, VoxelSize: 1, Workers: 1})
	if err != nil {
		t.Fatalf("grid.New: %v", err)
	}
	t.Cleanup(g.Close)
	// A slow tick keeps the handler waiting on its join while the client goes away.
	sess, err := session.New(session.Config{ID: "ws_test", TickRateHz: 2}, g, nil)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	ticks := &leaveLog{}
	sess.SetTickLogger(ticks)
	ctx, cancel := context.WithCancel(context.Background())
	go sess.Run(ctx)
	srv := httptest.NewServer(NewServer(sess, nil).Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})

	conn := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
	send(t, conn, hello())
	time.Sleep(100 * time.Millisecond)
	// Reset the connection so the WELCOME write fails.
	if tcp, ok := conn.UnderlyingConn().(*net.TCPConn); ok {
		_ = tcp.SetLinger(0)
	}
	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for {
		joined, left := ticks.snapshot()
		if len(joined) == 1 && len(left) == 1 && left[0] == joined[0] {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("joined=%v left=%v want the joined client to leave", joined, left)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
