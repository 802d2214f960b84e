// Package live serves explorers over WebSocket. Each connection gets its own
// session: a virtual document fed by the client's pointer events, an
// explorer bound to it and a scheduler running both. Notifications and
// render updates flow back as JSON text messages.
package live

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/recera/patchview/pkg/explorer"
)

// DefaultPath is where HandleWebSocket expects to be mounted
const DefaultPath = "/patchview/live/"

var (
	// ErrSendBufferFull is returned when a client is not draining its messages
	ErrSendBufferFull = errors.New("send buffer full")

	// ErrSessionClosed is returned when sending on a closed session
	ErrSessionClosed = errors.New("session closed")
)

// DataSource supplies the serialized signal buffer and file metadata read by
// each refresh
type DataSource interface {
	Data() (buffer, metadata []byte)
}

// Observer is told when sessions open and close
type Observer interface {
	SessionOpened()
	SessionClosed()
}

// Options configures a Server
type Options struct {
	// Path is the URL prefix; the rest of the path is the session ID
	Path string

	// Explorer is the template every session's explorer is built from
	Explorer explorer.Options

	Data DataSource

	// RefreshInterval is the period of the timed refresh cycle
	RefreshInterval time.Duration

	// SendBuffer is the per-session outbound queue length
	SendBuffer int

	Logger      *zap.Logger
	Observer    Observer
	CheckOrigin func(r *http.Request) bool
}

func (o *Options) withDefaults() Options {
	d := Options{
		Path:            DefaultPath,
		RefreshInterval: time.Second,
		SendBuffer:      256,
		Logger:          zap.NewNop(),
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	if o == nil {
		return d
	}
	if o.Path != "" {
		d.Path = o.Path
	}
	d.Explorer = o.Explorer
	d.Data = o.Data
	if o.RefreshInterval > 0 {
		d.RefreshInterval = o.RefreshInterval
	}
	if o.SendBuffer > 0 {
		d.SendBuffer = o.SendBuffer
	}
	if o.Logger != nil {
		d.Logger = o.Logger
	}
	d.Observer = o.Observer
	if o.CheckOrigin != nil {
		d.CheckOrigin = o.CheckOrigin
	}
	return d
}

// Server handles WebSocket connections for live sessions
type Server struct {
	opts     Options
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewServer creates a new live protocol server
func NewServer(opts *Options) *Server {
	o := opts.withDefaults()
	return &Server{
		opts: o,
		log:  o.Logger.Named("live"),
		upgrader: websocket.Upgrader{
			CheckOrigin:     o.CheckOrigin,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		sessions: make(map[string]*Session),
	}
}

// Path returns the mount prefix
func (s *Server) Path() string {
	return s.opts.Path
}

// HandleWebSocket upgrades the connection and starts a session. The session
// ID is the path below the mount prefix; a fresh ID is generated when it is
// empty. A connection reusing a live ID replaces that session.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.Trim(strings.TrimPrefix(r.URL.Path, s.opts.Path), "/")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("[Live Server] Failed to upgrade connection", zap.Error(err))
		return
	}

	session := newSession(sessionID, conn, s)
	if prev := s.register(session); prev != nil {
		s.log.Info("[Live Server] Replacing session", zap.String("session", sessionID))
		prev.Close()
	}

	go session.handleConnection()
}

func (s *Server) register(session *Session) *Session {
	s.mu.Lock()
	prev := s.sessions[session.ID]
	s.sessions[session.ID] = session
	s.mu.Unlock()

	if o := s.opts.Observer; o != nil {
		o.SessionOpened()
	}
	return prev
}

// removeSession forgets session unless it has already been replaced
func (s *Server) removeSession(session *Session) {
	s.mu.Lock()
	if s.sessions[session.ID] == session {
		delete(s.sessions, session.ID)
	}
	s.mu.Unlock()

	if o := s.opts.Observer; o != nil {
		o.SessionClosed()
	}
}

// GetSession retrieves a session by ID
func (s *Server) GetSession(sessionID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

// SessionCount returns the number of open sessions
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close closes every session
func (s *Server) Close() {
	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.RUnlock()

	for _, session := range sessions {
		session.Close()
	}
}
