package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"voxelsculpt.ai/internal/protocol"
	"voxelsculpt.ai/internal/sim/session"
)

type Server struct {
	sess *session.Session
	log  *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(s *session.Session, logger *log.Logger) *Server {
	return &Server{
		sess: s,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 256 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		clientID, out := s.handshake(conn)
		if clientID == "" {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// The session owns out; acks come from this handler. One goroutine writes both.
		acks := make(chan protocol.AckMsg, 64)
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					if err := writeRaw(conn, b); err != nil {
						cancel()
						return
					}
				case a := <-acks:
					if err := writeJSON(conn, a); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			ack := s.handleEdit(clientID, msg)
			select {
			case acks <- ack:
			case <-ctx.Done():
			}
		}

		s.leave(clientID)
	}
}

func (s *Server) leave(clientID string) {
	select {
	case s.sess.Leave() <- clientID:
	case <-s.sess.Done():
	}
}

// handleEdit validates one client message and queues it for the next tick.
func (s *Server) handleEdit(clientID string, msg []byte) protocol.AckMsg {
	ack := protocol.AckMsg{
		Type:            protocol.TypeAck,
		ProtocolVersion: protocol.Version,
		ServerTick:      s.sess.CurrentTick(),
	}
	reject := func(code, message string) protocol.AckMsg {
		ack.Code, ack.Message = code, message
		return ack
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return reject(protocol.ErrProtoBadRequest, "invalid json")
	}
	if base.Type != protocol.TypeEdit {
		return reject(protocol.ErrProtoBadRequest, "unexpected message type "+base.Type)
	}
	var edit protocol.EditMsg
	if err := json.Unmarshal(msg, &edit); err != nil {
		return reject(protocol.ErrProtoBadRequest, err.Error())
	}
	ack.AckFor = edit.ID
	if edit.ProtocolVersion != protocol.Version {
		return reject(protocol.ErrProtoBadRequest, "bad protocol_version")
	}
	if _, err := session.ParseEdit(edit, s.sess.Materials()); err != nil {
		return reject(protocol.ErrBadRequest, err.Error())
	}

	select {
	case <-s.sess.Done():
		return reject(protocol.ErrStopped, "session stopped")
	default:
	}
	select {
	case s.sess.Inbox() <- session.EditEnvelope{ClientID: clientID, Edit: edit}:
		ack.Accepted = true
		return ack
	default:
		return reject(protocol.ErrBusy, "edit queue full")
	}
}

func (s *Server) handshake(conn *websocket.Conn) (clientID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return "", nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return "", nil
	}
	if hello.ClientName == "" {
		hello.ClientName = "viewer"
	}

	maxQ := hello.Capabilities.MaxQueue
	if maxQ <= 0 {
		maxQ = 64
	}
	if maxQ > 1024 {
		maxQ = 1024
	}
	out = make(chan []byte, maxQ)

	respCh := make(chan session.JoinResponse, 1)
	req := session.JoinRequest{Name: hello.ClientName, Voxels: hello.Capabilities.Voxels, Out: out, Resp: respCh}
	select {
	case s.sess.Join() <- req:
	case <-s.sess.Done():
		closeWith(conn, "session stopped")
		return "", nil
	}
	var resp session.JoinResponse
	select {
	case resp = <-respCh:
	case <-s.sess.Done():
		closeWith(conn, "session stopped")
		return "", nil
	}

	// WELCOME goes out before the writer starts, so it precedes every MESH.
	if err := writeJSON(conn, resp.Welcome); err != nil {
		// Already joined: the session would keep queueing meshes for it.
		s.leave(resp.Welcome.ClientID)
		if s.log != nil {
			s.log.Printf("welcome client=%s: %v", resp.Welcome.ClientID, err)
		}
		return "", nil
	}
	if s.log != nil {
		s.log.Printf("join client=%s name=%q voxels=%v queue=%d", resp.Welcome.ClientID, hello.ClientName, hello.Capabilities.Voxels, maxQ)
	}
	return resp.Welcome.ClientID, out
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return writeRaw(conn, b)
}

func writeRaw(conn *websocket.Conn, b []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
