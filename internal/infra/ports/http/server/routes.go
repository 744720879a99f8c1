package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kinosync/kinosync/internal/application/config"
	"github.com/kinosync/kinosync/internal/infra/ports/http/handlers"
	"github.com/kinosync/kinosync/internal/infra/ports/http/middleware"
)

func New(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	roomHandler *handlers.RoomHandler,
	wsHandler *handlers.WebSocketHandler,
) *echo.Echo {
	e := echo.New()

	e.Use(middleware.SlogLogger())

	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	// The websocket endpoint is open to guests; a jwt cookie only pre-fills
	// the display name.
	e.GET("/ws", wsHandler.Handle)

	api := e.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}

		v1 := api.Group("/v1")
		v1.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
		{
			v1.GET("/me", authHandler.GetMe)

			v1.GET("/rooms", roomHandler.ListRooms)
		}
	}

	e.Static("/", cfg.StaticDir)

	return e
}
