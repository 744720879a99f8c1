package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kinosync/kinosync/internal/usecase"
)

type RoomHandler struct {
	syncUsecase usecase.SyncUsecase
}

func NewRoomHandler(syncUsecase usecase.SyncUsecase) *RoomHandler {
	return &RoomHandler{syncUsecase: syncUsecase}
}

// ListRooms returns summaries of every live room.
func (h *RoomHandler) ListRooms(c echo.Context) error {
	return c.JSON(http.StatusOK, h.syncUsecase.RoomList(c.Request().Context()))
}
