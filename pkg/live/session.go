package live

import (
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/recera/patchview/pkg/drag"
	"github.com/recera/patchview/pkg/figure"
	"github.com/recera/patchview/pkg/grid"
	"github.com/recera/patchview/pkg/json"
)

const (
	readTimeout  = 300 * time.Second
	writeTimeout = 10 * time.Second
	pingPeriod   = 54 * time.Second
)

// Session is one live connection
type Session struct {
	ID string

	server *Server
	conn   *websocket.Conn
	log    *zap.Logger
	bridge *bridge

	sendChan     chan []byte
	sendTextChan chan []byte
	closeChan    chan struct{}
	closeOnce    sync.Once
}

func newSession(id string, conn *websocket.Conn, srv *Server) *Session {
	s := &Session{
		ID:           id,
		server:       srv,
		conn:         conn,
		log:          srv.log.With(zap.String("session", id)),
		sendChan:     make(chan []byte, srv.opts.SendBuffer),
		sendTextChan: make(chan []byte, srv.opts.SendBuffer),
		closeChan:    make(chan struct{}),
	}
	s.bridge = newBridge(id, srv.opts, s.sendJSON, s.log)
	return s
}

// Close ends the session. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closeChan)
		s.conn.Close()
		s.bridge.close()
		s.log.Debug("[Live Session] Closed")
	})
}

// Done is closed when the session ends
func (s *Session) Done() <-chan struct{} {
	return s.closeChan
}

// handleConnection manages the WebSocket connection for a session
func (s *Session) handleConnection() {
	defer s.server.removeSession(s)
	defer s.Close()

	go s.writer()
	go s.refreshLoop(s.server.opts.RefreshInterval)

	s.sendBinary(EncodeControl("HELLO", 0))
	s.log.Info("[Live Session] Started")

	s.conn.SetReadDeadline(time.Now().Add(readTimeout))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("[Live Session] Unexpected close", zap.Error(err))
			} else {
				s.log.Debug("[Live Session] Read ended", zap.Error(err))
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			s.handleBinaryMessage(data)
		case websocket.TextMessage:
			s.handleTextMessage(data)
		}
	}
}

// writer handles writing messages to the WebSocket
func (s *Session) writer() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message := <-s.sendChan:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
				s.log.Debug("[Live Session] Failed to write message", zap.Error(err))
				s.Close()
				return
			}

		case message := <-s.sendTextChan:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.log.Debug("[Live Session] Failed to write text message", zap.Error(err))
				s.Close()
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.Close()
				return
			}

		case <-s.closeChan:
			s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		}
	}
}

// refreshLoop drives the timed refresh cycle
func (s *Session) refreshLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.bridge.tick()
		case <-s.closeChan:
			return
		}
	}
}

func (s *Session) handleBinaryMessage(data []byte) {
	if len(data) == 0 {
		return
	}

	switch FrameType(data[0]) {
	case FramePointer:
		evt, err := DecodePointer(data)
		if err != nil {
			s.log.Debug("[Live Session] Failed to decode pointer frame", zap.Error(err))
			return
		}
		s.bridge.pointer(evt)

	case FrameControl:
		name, dec, err := DecodeControl(data)
		if err != nil {
			s.log.Debug("[Live Session] Bad control frame", zap.Error(err))
			return
		}
		switch name {
		case "HELLO":
			lastSeq, _ := dec.ReadUvarint()
			s.log.Debug("[Live Session] Client hello", zap.Uint64("lastSeq", lastSeq))
		case "PING":
			s.sendBinary(EncodeControl("PONG"))
		}

	default:
		s.log.Debug("[Live Session] Unknown frame type", zap.Uint8("frame", data[0]))
	}
}

func (s *Session) handleTextMessage(data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.reject("invalid message")
		return
	}

	switch env.Type {
	case MsgLayout:
		var msg LayoutMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.reject("invalid layout")
			return
		}
		s.bridge.layout(msg.Elements)

	case MsgPointer:
		var msg PointerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.reject("invalid pointer")
			return
		}
		kind, ok := drag.ParseKind(msg.Event)
		if !ok {
			s.reject("unknown pointer event " + msg.Event)
			return
		}
		s.bridge.pointer(drag.Event{
			Kind:    kind,
			Target:  msg.Target,
			Pointer: grid.Pointer{ClientX: msg.ClientX, ClientY: msg.ClientY},
			Time:    fromMillis(msg.TimeStamp),
		})

	case MsgSink:
		var msg SinkMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.reject("invalid sink")
			return
		}
		s.bridge.sink(msg.Text)

	case MsgFigures:
		var msg FiguresMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.reject("invalid figures")
			return
		}
		figs := make([]figure.Descriptor, len(msg.Figures))
		for i, raw := range msg.Figures {
			d, err := figure.ParseDescriptor(raw)
			if err != nil {
				s.log.Debug("[Live Session] Skipping figure", zap.Int("index", i), zap.Error(err))
				continue
			}
			figs[i] = d
		}
		s.bridge.setFigures(figs)

	default:
		s.reject("unknown message type " + env.Type)
	}
}

func (s *Session) reject(reason string) {
	s.log.Debug("[Live Session] Rejected message", zap.String("reason", reason))
	if err := s.sendJSON(ErrorMessage{Type: MsgError, Error: reason}); err != nil {
		s.log.Debug("[Live Session] Failed to send error", zap.Error(err))
	}
}

// sendJSON queues a text message without blocking
func (s *Session) sendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case <-s.closeChan:
		return ErrSessionClosed
	default:
	}
	select {
	case s.sendTextChan <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (s *Session) sendBinary(data []byte) {
	select {
	case s.sendChan <- data:
	case <-s.closeChan:
	default:
		s.log.Debug("[Live Session] Send buffer full, dropping frame")
	}
}

// elementIDs returns the keys of m in a stable order
func elementIDs[T any](m map[string]T) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
