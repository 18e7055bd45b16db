package timeline

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the widget routes on the given Echo instance. The
// shell opens a view session; every fragment route requires its token.
// saveLimit guards the write endpoint.
func RegisterRoutes(e *echo.Echo, h *Handler, sessions *Sessions, saveLimit echo.MiddlewareFunc) *echo.Group {
	g := e.Group("/widget")
	view := RequireViewSession(sessions)

	g.GET("", h.Shell)
	g.POST("/context", h.Context, view)
	g.POST("/subitems/:subitemId/selection", h.Select, view)
	// saveLimit keys on the verified session, so it runs after view.
	g.POST("/subitems/:subitemId/save", h.Save, view, saveLimit)

	return g
}
