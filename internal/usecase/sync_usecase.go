package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kinosync/kinosync/internal/application/constant"
	"github.com/kinosync/kinosync/internal/domain/events"
	"github.com/kinosync/kinosync/internal/domain/models"
	"github.com/kinosync/kinosync/internal/domain/output"
	"github.com/kinosync/kinosync/internal/infra/adapters/memory"
)

// SyncUsecase routes decoded room messages to the registry and room state,
// and fans resulting events out to every session bound to the room.
// Validation and permission failures are answered to the originating
// session only and never broadcast.
type SyncUsecase interface {
	// HandleJoin binds the connection to a room, creating it when absent.
	// models.ErrWrongPassword means the caller must drop the connection.
	HandleJoin(ctx context.Context, connID uuid.UUID, event events.JoinEvent) error

	HandleAddSubhost(ctx context.Context, connID uuid.UUID, event events.AddSubhostEvent) error
	HandleLoadVideo(ctx context.Context, connID uuid.UUID, event events.LoadVideoEvent) error
	HandlePlay(ctx context.Context, connID uuid.UUID, event events.PlayEvent) error
	HandlePause(ctx context.Context, connID uuid.UUID) error
	HandleSeek(ctx context.Context, connID uuid.UUID, event events.SeekEvent) error
	HandleChat(ctx context.Context, connID uuid.UUID, event events.ChatEvent) error

	HandleLeave(ctx context.Context, connID uuid.UUID)
	HandlePing(ctx context.Context, connID uuid.UUID)

	RoomList(ctx context.Context) []output.RoomSummary
}

type syncUsecase struct {
	rooms    memory.RoomRegistry
	sessions memory.SessionRepository

	now func() time.Time
}

func NewSyncUsecase(rooms memory.RoomRegistry, sessions memory.SessionRepository) SyncUsecase {
	return &syncUsecase{
		rooms:    rooms,
		sessions: sessions,
		now:      time.Now,
	}
}

func (s *syncUsecase) HandleJoin(ctx context.Context, connID uuid.UUID, event events.JoinEvent) error {
	if event.Room == "" || event.Name == "" {
		s.notifyError(connID, "room and name are required")
		return nil
	}

	sess, ok := s.sessions.Get(connID)
	if !ok {
		return fmt.Errorf("session %s not found", connID)
	}
	if sess.RoomID != "" {
		s.notifyError(connID, "already joined a room")
		return nil
	}

	room, err := s.rooms.Join(event.Room, event.Password, connID, event.Name, s.now())
	if err != nil {
		if errors.Is(err, models.ErrWrongPassword) {
			s.notifyError(connID, "wrong room password")
			return models.ErrWrongPassword
		}

		return fmt.Errorf("join room %s: %w", event.Room, err)
	}

	if !s.sessions.Bind(connID, event.Room, event.Name) {
		// The connection vanished between Get and Bind; undo the join.
		s.rooms.RemoveMember(event.Room, connID)
		return fmt.Errorf("bind session %s to room %s", connID, event.Room)
	}

	slog.Info("member joined",
		slog.String(constant.RoomID, event.Room),
		slog.String(constant.UserName, event.Name),
		slog.Any(constant.ConnID, connID),
	)

	snapshot := room.Snapshot(s.now())
	s.send(connID, events.TypeSync, snapshot)
	s.broadcastMembers(room)

	return nil
}

func (s *syncUsecase) HandleAddSubhost(ctx context.Context, connID uuid.UUID, event events.AddSubhostEvent) error {
	sess, room, ok := s.boundRoom(connID)
	if !ok {
		return nil
	}

	if err := room.AddSubhost(sess.Name, event.Name); err != nil {
		s.notifyError(connID, "only the host can appoint subhosts")
		return nil
	}

	s.broadcastMembers(room)

	return nil
}

func (s *syncUsecase) HandleLoadVideo(ctx context.Context, connID uuid.UUID, event events.LoadVideoEvent) error {
	if event.VideoID == "" {
		s.notifyError(connID, "video_id is required")
		return nil
	}

	sess, room, ok := s.boundRoom(connID)
	if !ok {
		return nil
	}

	if err := room.LoadVideo(sess.Name, event.VideoID, s.now()); err != nil {
		s.notifyControlDenied(connID)
		return nil
	}

	slog.Info("video loaded",
		slog.String(constant.RoomID, room.ID),
		slog.String("video_id", event.VideoID),
	)

	s.broadcast(room.ID, events.TypeVideo, events.VideoEvent{VideoID: event.VideoID})

	return nil
}

func (s *syncUsecase) HandlePlay(ctx context.Context, connID uuid.UUID, event events.PlayEvent) error {
	sess, room, ok := s.boundRoom(connID)
	if !ok {
		return nil
	}

	resolved, err := room.Play(sess.Name, s.now(), event.Time)
	if err != nil {
		s.notifyControlDenied(connID)
		return nil
	}

	s.broadcast(room.ID, events.TypePlay, events.PlaybackEvent{Time: resolved})

	return nil
}

func (s *syncUsecase) HandlePause(ctx context.Context, connID uuid.UUID) error {
	sess, room, ok := s.boundRoom(connID)
	if !ok {
		return nil
	}

	resolved, err := room.Pause(sess.Name, s.now())
	if err != nil {
		s.notifyControlDenied(connID)
		return nil
	}

	s.broadcast(room.ID, events.TypePause, events.PlaybackEvent{Time: resolved})

	return nil
}

func (s *syncUsecase) HandleSeek(ctx context.Context, connID uuid.UUID, event events.SeekEvent) error {
	sess, room, ok := s.boundRoom(connID)
	if !ok {
		return nil
	}

	resolved, err := room.Seek(sess.Name, event.Time, s.now())
	if err != nil {
		s.notifyControlDenied(connID)
		return nil
	}

	s.broadcast(room.ID, events.TypeSeek, events.PlaybackEvent{Time: resolved})

	return nil
}

func (s *syncUsecase) HandleChat(ctx context.Context, connID uuid.UUID, event events.ChatEvent) error {
	sess, room, ok := s.boundRoom(connID)
	if !ok {
		return nil
	}

	if event.Text == "" {
		s.notifyError(connID, "chat text is required")
		return nil
	}

	s.broadcast(room.ID, events.TypeChat, events.ChatBroadcast{From: sess.Name, Text: event.Text})

	return nil
}

func (s *syncUsecase) HandleLeave(ctx context.Context, connID uuid.UUID) {
	sess, ok := s.sessions.Get(connID)
	if !ok || sess.RoomID == "" {
		return
	}

	destroyed, newHost, hostChanged := s.rooms.RemoveMember(sess.RoomID, connID)

	slog.Info("member left",
		slog.String(constant.RoomID, sess.RoomID),
		slog.String(constant.UserName, sess.Name),
		slog.Bool("destroyed", destroyed),
	)

	if destroyed {
		return
	}

	if hostChanged {
		slog.Info("host changed",
			slog.String(constant.RoomID, sess.RoomID),
			slog.String(constant.UserName, newHost),
		)
	}

	if room, ok := s.rooms.Get(sess.RoomID); ok {
		s.broadcastMembers(room)
	}
}

func (s *syncUsecase) HandlePing(ctx context.Context, connID uuid.UUID) {
	s.sessions.Write(connID, events.Message{Type: events.TypePong})
}

func (s *syncUsecase) RoomList(ctx context.Context) []output.RoomSummary {
	snapshots := s.rooms.Snapshots(s.now())

	summaries := make([]output.RoomSummary, 0, len(snapshots))
	for _, snap := range snapshots {
		summaries = append(summaries, output.RoomSummary{
			ID:          snap.ID,
			MemberCount: len(snap.Members),
			VideoID:     snap.VideoID,
			IsPlaying:   snap.IsPlaying,
			Time:        snap.Time,
		})
	}

	return summaries
}

// boundRoom resolves the session and its room, rejecting connections that
// never joined.
func (s *syncUsecase) boundRoom(connID uuid.UUID) (memory.Session, *models.Room, bool) {
	sess, ok := s.sessions.Get(connID)
	if !ok || sess.RoomID == "" {
		s.notifyError(connID, "join a room first")
		return memory.Session{}, nil, false
	}

	room, ok := s.rooms.Get(sess.RoomID)
	if !ok {
		s.notifyError(connID, "room no longer exists")
		return memory.Session{}, nil, false
	}

	return sess, room, true
}

func (s *syncUsecase) broadcastMembers(room *models.Room) {
	snapshot := room.Snapshot(s.now())

	s.broadcast(room.ID, events.TypeMembers, events.MembersEvent{
		Host:     snapshot.Host,
		Subhosts: snapshot.Subhosts,
		Members:  snapshot.Members,
	})
}

// broadcast fans an event out to every session bound to the room. Delivery
// is best effort: a failed write to one session never blocks the rest.
func (s *syncUsecase) broadcast(roomID, msgType string, payload any) {
	msg, err := newMessage(msgType, payload)
	if err != nil {
		slog.Error("marshal broadcast payload", slog.Any(constant.Error, err))
		return
	}

	for _, id := range s.sessions.InRoom(roomID) {
		s.sessions.Write(id, msg)
	}
}

func (s *syncUsecase) send(connID uuid.UUID, msgType string, payload any) {
	msg, err := newMessage(msgType, payload)
	if err != nil {
		slog.Error("marshal payload", slog.Any(constant.Error, err))
		return
	}

	s.sessions.Write(connID, msg)
}

func (s *syncUsecase) notifyError(connID uuid.UUID, message string) {
	s.send(connID, events.TypeError, events.ErrorEvent{Message: message})
}

func (s *syncUsecase) notifyControlDenied(connID uuid.UUID) {
	s.notifyError(connID, "you are not allowed to control playback")
}

func newMessage(msgType string, payload any) (events.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return events.Message{}, err
	}

	return events.Message{Type: msgType, Data: data}, nil
}
