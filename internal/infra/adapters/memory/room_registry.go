package memory

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kinosync/kinosync/internal/application/constant"
	"github.com/kinosync/kinosync/internal/domain/models"
)

// RoomRegistry owns the process-wide map of live rooms. Rooms are created on
// first join and deleted when the last member leaves; lookup, creation and
// membership changes all happen under the registry lock so a room exists
// exactly while it has members.
type RoomRegistry interface {
	// Join binds a connection to a room, creating the room when absent. The
	// creating joiner's password is fixed for the room's lifetime; a
	// mismatch returns models.ErrWrongPassword and leaves the room
	// untouched. Membership is inserted under the same registry lock as the
	// lookup, so a concurrent last-member leave can never strand the joiner
	// in a deregistered room.
	Join(roomID, password string, connID uuid.UUID, name string, now time.Time) (*models.Room, error)

	Get(roomID string) (*models.Room, bool)

	// RemoveMember drops a connection from its room, promoting a new host
	// when needed and deleting the room once empty.
	RemoveMember(roomID string, connID uuid.UUID) (destroyed bool, newHost string, hostChanged bool)

	Snapshots(now time.Time) []models.RoomSnapshot
}

type roomRegistry struct {
	rooms map[string]*models.Room
	mu    sync.RWMutex
}

func NewRoomRegistry() RoomRegistry {
	return &roomRegistry{
		rooms: make(map[string]*models.Room),
	}
}

func (r *roomRegistry) Join(roomID, password string, connID uuid.UUID, name string, now time.Time) (*models.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[roomID]
	if !exists {
		created, err := models.NewRoom(roomID, password, name, now)
		if err != nil {
			return nil, err
		}

		r.rooms[roomID] = created
		slog.Info("room created", slog.String(constant.RoomID, roomID), slog.String(constant.UserName, name))

		room = created
	}

	if !room.Authenticate(password) {
		return nil, models.ErrWrongPassword
	}

	room.AddMember(connID, name)

	return room, nil
}

func (r *roomRegistry) Get(roomID string) (*models.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	return room, ok
}

func (r *roomRegistry) RemoveMember(roomID string, connID uuid.UUID) (bool, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return false, "", false
	}

	empty, newHost, hostChanged := room.RemoveMember(connID)
	if empty {
		delete(r.rooms, roomID)
		slog.Info("room destroyed", slog.String(constant.RoomID, roomID))
		return true, "", false
	}

	return false, newHost, hostChanged
}

func (r *roomRegistry) Snapshots(now time.Time) []models.RoomSnapshot {
	r.mu.RLock()
	rooms := make([]*models.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.RUnlock()

	snapshots := make([]models.RoomSnapshot, 0, len(rooms))
	for _, room := range rooms {
		snapshots = append(snapshots, room.Snapshot(now))
	}

	return snapshots
}
