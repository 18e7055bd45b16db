package audit

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the audit history routes on the widget group. mw
// is the widget's view-session check; history is never served without it.
func RegisterRoutes(g *echo.Group, h *Handler, mw ...echo.MiddlewareFunc) {
	g.GET("/subitems/:subitemId/history", h.SubitemHistory, mw...)
	g.GET("/items/:itemId/history", h.ItemHistory, mw...)
}
