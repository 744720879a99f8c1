package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/kinosync/kinosync/internal/application/config"
	"github.com/kinosync/kinosync/internal/application/constant"
	"github.com/kinosync/kinosync/internal/domain/events"
	"github.com/kinosync/kinosync/internal/domain/models"
	"github.com/kinosync/kinosync/internal/infra/adapters/memory"
	"github.com/kinosync/kinosync/internal/usecase"
)

type WebSocketHandler struct {
	upgrader *websocket.Upgrader

	syncUsecase usecase.SyncUsecase
	userUsecase usecase.UserUsecase
	sessions    memory.SessionRepository
}

func NewWebSocketHandler(
	cfg *config.Config,
	syncUsecase usecase.SyncUsecase,
	userUsecase usecase.UserUsecase,
	sessions memory.SessionRepository,
) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.Debug {
					return true
				}

				return r.Header.Get("Origin") == cfg.Domain
			},
		},
		syncUsecase: syncUsecase,
		userUsecase: userUsecase,
		sessions:    sessions,
	}
}

func (h *WebSocketHandler) Handle(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"WebSocket upgrade error",
			slog.Any(constant.Error, err),
		)
		return err
	}
	defer ws.Close()

	ctx := c.Request().Context()

	connID := uuid.New()
	h.sessions.Add(connID, ws)
	defer func() {
		h.syncUsecase.HandleLeave(ctx, connID)
		h.sessions.Remove(connID)
	}()

	slog.Info("WebSocket connection established", slog.Any(constant.ConnID, connID))

	accountName := h.accountName(ctx, c)

	err = ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	if err != nil {
		return err
	}
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				// WriteControl is safe alongside the broadcast writer.
				if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return nil
		}

		var msg events.Message
		if err = json.Unmarshal(raw, &msg); err != nil {
			h.notifyMalformed(connID)
			continue
		}

		if err = h.handleMessage(ctx, connID, accountName, msg); err != nil {
			if !errors.Is(err, models.ErrWrongPassword) {
				slog.Error("handle message", slog.Any(constant.Error, err))
			}
			return nil
		}
	}
}

// handleMessage dispatches one decoded envelope. A returned error terminates
// the connection; recoverable failures are answered with an error notice and
// a nil return.
func (h *WebSocketHandler) handleMessage(
	ctx context.Context,
	connID uuid.UUID,
	accountName string,
	msg events.Message,
) error {
	switch msg.Type {
	case events.TypeJoin:
		var event events.JoinEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			h.notifyMalformed(connID)
			return nil
		}

		if event.Name == "" {
			event.Name = accountName
		}

		return h.syncUsecase.HandleJoin(ctx, connID, event)

	case events.TypeAddSubhost:
		var event events.AddSubhostEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			h.notifyMalformed(connID)
			return nil
		}

		return h.syncUsecase.HandleAddSubhost(ctx, connID, event)

	case events.TypeLoadVideo, events.TypeChangeVideo:
		var event events.LoadVideoEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			h.notifyMalformed(connID)
			return nil
		}

		return h.syncUsecase.HandleLoadVideo(ctx, connID, event)

	case events.TypePlay:
		var event events.PlayEvent
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				h.notifyMalformed(connID)
				return nil
			}
		}

		return h.syncUsecase.HandlePlay(ctx, connID, event)

	case events.TypePause:
		return h.syncUsecase.HandlePause(ctx, connID)

	case events.TypeSeek:
		var event events.SeekEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			h.notifyMalformed(connID)
			return nil
		}

		return h.syncUsecase.HandleSeek(ctx, connID, event)

	case events.TypeChat:
		var event events.ChatEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			h.notifyMalformed(connID)
			return nil
		}

		return h.syncUsecase.HandleChat(ctx, connID, event)

	case events.TypePing:
		h.syncUsecase.HandlePing(ctx, connID)
		return nil

	default:
		h.notifyMalformed(connID)
		return nil
	}
}

func (h *WebSocketHandler) notifyMalformed(connID uuid.UUID) {
	data, err := json.Marshal(events.ErrorEvent{Message: "malformed message"})
	if err != nil {
		return
	}

	h.sessions.Write(connID, events.Message{Type: events.TypeError, Data: data})
}

// accountName resolves the display name of a logged-in account from the jwt
// cookie. Guests get an empty name and must supply one in the join message.
func (h *WebSocketHandler) accountName(ctx context.Context, c echo.Context) string {
	cookie, err := c.Cookie("jwt")
	if err != nil {
		return ""
	}

	userID, err := h.userUsecase.ParseUserID(cookie.Value)
	if err != nil {
		return ""
	}

	user, err := h.userUsecase.GetUserByID(ctx, userID)
	if err != nil {
		return ""
	}

	return user.Username
}
