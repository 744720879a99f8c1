package memory

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kinosync/kinosync/internal/application/constant"
)

// Session is the server-side record binding one live connection to a room
// and user identity. The room binding is set once at join and never changes
// for the life of the connection.
type Session struct {
	ID     uuid.UUID
	RoomID string
	Name   string
}

// SessionRepository tracks live websocket connections and their room
// bindings in memory.
type SessionRepository interface {
	Add(id uuid.UUID, conn *websocket.Conn)
	Remove(id uuid.UUID)

	// Bind attaches a session to a room. It fails once a session is already
	// bound: there is no mid-session room switch.
	Bind(id uuid.UUID, roomID, name string) bool
	Get(id uuid.UUID) (Session, bool)
	InRoom(roomID string) []uuid.UUID

	// Write sends a payload to one session, best effort. A failed write is
	// logged and otherwise ignored.
	Write(id uuid.UUID, payload any)
}

type liveSession struct {
	conn *websocket.Conn
	mu   sync.Mutex

	roomID string
	name   string
}

type sessionRepository struct {
	sessions map[uuid.UUID]*liveSession
	mu       sync.RWMutex
}

func NewSessionRepository() SessionRepository {
	return &sessionRepository{
		sessions: make(map[uuid.UUID]*liveSession),
	}
}

func (r *sessionRepository) Add(id uuid.UUID, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[id] = &liveSession{conn: conn}
}

func (r *sessionRepository) Remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
}

func (r *sessionRepository) Bind(id uuid.UUID, roomID, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || s.roomID != "" {
		return false
	}

	s.roomID = roomID
	s.name = name

	return true
}

func (r *sessionRepository) Get(id uuid.UUID) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return Session{}, false
	}

	return Session{ID: id, RoomID: s.roomID, Name: s.name}, true
}

func (r *sessionRepository) InRoom(roomID string) []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []uuid.UUID
	for id, s := range r.sessions {
		if s.roomID == roomID {
			ids = append(ids, id)
		}
	}

	return ids
}

func (r *sessionRepository) Write(id uuid.UUID, payload any) {
	s, ok := r.get(id)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.WriteJSON(payload); err != nil {
		slog.Warn("write to websocket", slog.Any(constant.ConnID, id), slog.Any(constant.Error, err))
	}
}

func (r *sessionRepository) get(id uuid.UUID) (*liveSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	return s, ok
}
