package audit

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Scope decides whether the caller may read a history. It returns an
// AppError when the id is outside what the caller can see.
type Scope interface {
	AllowItem(c echo.Context, itemID string) error
	AllowSubitem(c echo.Context, subitemID string) error
}

// Handler handles HTTP requests for audit log operations. Handlers are thin:
// bind request, check scope, call service, render response.
type Handler struct {
	service AuditService
	scope   Scope
}

// NewHandler creates a new audit handler limited to scope.
func NewHandler(service AuditService, scope Scope) *Handler {
	return &Handler{service: service, scope: scope}
}

// SubitemHistory returns JSON history for one subitem
// (GET /widget/subitems/:subitemId/history).
func (h *Handler) SubitemHistory(c echo.Context) error {
	subitemID := c.Param("subitemId")
	if err := h.scope.AllowSubitem(c, subitemID); err != nil {
		return err
	}
	entries, err := h.service.SubitemHistory(c.Request().Context(), subitemID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

// ItemHistory returns JSON history for every subitem under a parent item
// (GET /widget/items/:itemId/history).
func (h *Handler) ItemHistory(c echo.Context) error {
	itemID := c.Param("itemId")
	if err := h.scope.AllowItem(c, itemID); err != nil {
		return err
	}
	entries, err := h.service.ItemHistory(c.Request().Context(), itemID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}
