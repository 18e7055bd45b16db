package middleware

import (
	"context"
	"encoding/json"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// LayoutInjector copies request-scoped data (view session token, CSP
// nonce) from the Echo context into the Go context so components can read
// it. Registered once at startup in app/routes.go.
var LayoutInjector func(echo.Context, context.Context) context.Context

// IsHTMX returns true if the current request was initiated by htmx.
func IsHTMX(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true"
}

// Render writes a Templ component to the response with the given status
// code, after running the LayoutInjector if one is registered.
func Render(c echo.Context, statusCode int, component templ.Component) error {
	ctx := c.Request().Context()
	if LayoutInjector != nil {
		ctx = LayoutInjector(c, ctx)
	}

	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	c.Response().WriteHeader(statusCode)
	return component.Render(ctx, c.Response().Writer)
}

// Trigger sets the HX-Trigger response header so htmx dispatches the named
// event with detail on the client. Repeated calls merge into one header.
func Trigger(c echo.Context, event string, detail any) error {
	events := map[string]any{}
	if existing := c.Response().Header().Get("HX-Trigger"); existing != "" {
		if err := json.Unmarshal([]byte(existing), &events); err != nil {
			events = map[string]any{}
		}
	}
	events[event] = detail

	b, err := json.Marshal(events)
	if err != nil {
		return err
	}
	c.Response().Header().Set("HX-Trigger", string(b))
	return nil
}
