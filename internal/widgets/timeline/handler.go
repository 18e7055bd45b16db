package timeline

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/subtimeline/internal/apperror"
	"github.com/keyxmakerx/subtimeline/internal/middleware"
)

// viewTokenKey is the echo context key the layout injector reads the
// freshly issued view token from.
const viewTokenKey = "view_token"

// Handler handles HTTP requests for the timeline widget. Handlers are thin:
// bind request, call service, render fragment.
type Handler struct {
	service  TimelineService
	sessions *Sessions
	dev      bool
}

// NewHandler creates a new timeline handler. In dev mode the shell accepts
// an itemId query parameter so it can be opened outside the host.
func NewHandler(service TimelineService, sessions *Sessions, dev bool) *Handler {
	return &Handler{service: service, sessions: sessions, dev: dev}
}

// GetViewToken returns the view token issued while rendering the shell.
func GetViewToken(c echo.Context) string {
	token, _ := c.Get(viewTokenKey).(string)
	return token
}

// Shell renders the widget page and opens a new view session
// (GET /widget).
func (h *Handler) Shell(c echo.Context) error {
	vs, token, err := h.sessions.Open(c.QueryParam("sessionToken"))
	if err != nil {
		return err
	}
	c.Set(viewSessionKey, vs)
	c.Set(viewTokenKey, token)

	props := ShellProps{}
	if h.dev {
		props.ItemID = c.QueryParam("itemId")
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return middleware.Render(c, http.StatusOK, Shell(props))
}

// Context receives the host's session context and renders the loaded
// panel (POST /widget/context).
func (h *Handler) Context(c echo.Context) error {
	vs := GetViewSession(c)
	if vs == nil {
		return apperror.NewUnauthorized(msgSessionExpired)
	}

	var sc SessionContext
	if err := c.Bind(&sc); err != nil {
		return apperror.NewBadRequest("invalid session context")
	}

	view, err := h.service.OnContext(c.Request().Context(), vs.ID, sc)
	if errors.Is(err, ErrStaleView) {
		// A later context already rendered; leave the panel alone.
		return c.NoContent(http.StatusNoContent)
	}
	if err != nil {
		return err
	}
	for i := range view.Cards {
		view.Cards[i].ReadOnly = vs.ReadOnly
	}
	if view.State == StateBlocked {
		if err := middleware.Trigger(c, "blocked", map[string]string{"message": view.Message}); err != nil {
			return err
		}
	}
	return middleware.Render(c, http.StatusOK, Panel(view))
}

// Select applies a picker change and re-renders the card
// (POST /widget/subitems/:subitemId/selection).
func (h *Handler) Select(c echo.Context) error {
	vs := GetViewSession(c)
	if vs == nil {
		return apperror.NewUnauthorized(msgSessionExpired)
	}

	var in PickerInput
	if err := c.Bind(&in); err != nil {
		return apperror.NewBadRequest("invalid date selection")
	}

	card, err := h.service.Select(c.Request().Context(), vs.ID, c.Param("subitemId"), in)
	if err != nil {
		if card == nil || !apperror.IsType(err, apperror.TypeValidation) {
			return err
		}
		card.Error = apperror.SafeMessage(err)
	}
	card.ReadOnly = vs.ReadOnly
	return middleware.Render(c, http.StatusOK, SubitemCard(*card))
}

// Save writes the subitem's selection to the board and re-renders the card
// with a notice (POST /widget/subitems/:subitemId/save).
func (h *Handler) Save(c echo.Context) error {
	vs := GetViewSession(c)
	if vs == nil {
		return apperror.NewUnauthorized(msgSessionExpired)
	}
	if vs.ReadOnly {
		return apperror.NewForbidden("You have view-only access to this board")
	}

	result, err := h.service.Save(c.Request().Context(), vs.ID, c.Param("subitemId"), vs.Actor)
	if err != nil {
		if result == nil {
			return err
		}
		var appErr *apperror.AppError
		if !errors.As(err, &appErr) {
			return err
		}
		switch appErr.Type {
		case apperror.TypeValidation:
			result.Card.Error = appErr.Message
		case apperror.TypeWriteRejected:
			// Notice set by the service.
		default:
			return err
		}
	}

	if result.Notice.Message != "" {
		if err := middleware.Trigger(c, "notice", result.Notice); err != nil {
			return err
		}
	}
	return middleware.Render(c, http.StatusOK, SubitemCard(result.Card))
}
