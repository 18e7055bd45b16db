package app

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keyxmakerx/subtimeline/internal/middleware"
	"github.com/keyxmakerx/subtimeline/internal/monday"
	"github.com/keyxmakerx/subtimeline/internal/plugins/audit"
	"github.com/keyxmakerx/subtimeline/internal/templates/layouts"
	"github.com/keyxmakerx/subtimeline/internal/widgets/timeline"
)

// RegisterRoutes wires the widget's dependencies and registers every route.
// ctx bounds background work started here, such as rate limiter cleanup.
func (a *App) RegisterRoutes(ctx context.Context) error {
	e := a.Echo
	cfg := a.Config

	e.GET("/healthz", a.healthz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	loc, err := time.LoadLocation(cfg.Widget.DisplayTimezone)
	if err != nil {
		return err
	}

	client := monday.NewClient(monday.Options{
		URL:     cfg.Monday.APIURL,
		Token:   cfg.Monday.APIToken,
		Version: cfg.Monday.APIVersion,
		Timeout: cfg.Monday.HTTPTimeout,
	})
	repo := timeline.NewRepository(client, timeline.Columns{
		ParentColumnID:  cfg.Monday.ParentColumnID,
		SubitemColumnID: cfg.Monday.SubitemColumnID,
		SubitemBoardID:  cfg.Monday.SubitemBoardID,
	})

	var store timeline.Store
	if a.Redis != nil {
		store = timeline.NewRedisStore(a.Redis, cfg.Widget.ViewSessionTTL)
	} else {
		store = timeline.NewMemoryStore(cfg.Widget.ViewSessionTTL)
	}

	var auditSvc audit.AuditService
	if a.DB != nil {
		auditSvc = audit.NewAuditService(audit.NewAuditRepository(a.DB))
	}

	svc := timeline.NewTimelineService(repo, store, auditSvc, cfg.Monday.SubitemColumnID, loc)
	sessions := timeline.NewSessions(cfg.SecretKey, cfg.Monday.ClientSecret, cfg.Widget.ViewSessionTTL)
	handler := timeline.NewHandler(svc, sessions, cfg.IsDevelopment())

	middleware.LayoutInjector = func(c echo.Context, ctx context.Context) context.Context {
		ctx = layouts.SetCSPNonce(ctx, middleware.GetCSPNonce(c))
		ctx = layouts.SetViewToken(ctx, timeline.GetViewToken(c))
		if vs := timeline.GetViewSession(c); vs != nil {
			ctx = layouts.SetUserID(ctx, vs.Actor.UserID)
		}
		return layouts.SetDebug(ctx, cfg.IsDevelopment())
	}

	saveLimit := middleware.RateLimit(ctx, cfg.Widget.SaveRateLimit, time.Minute, timeline.ViewSessionKey)
	widget := timeline.RegisterRoutes(e, handler, sessions, saveLimit)

	if auditSvc != nil {
		scope := timeline.NewHistoryScope(store)
		audit.RegisterRoutes(widget, audit.NewHandler(auditSvc, scope), timeline.RequireViewSession(sessions))
	}
	return nil
}

// healthz reports liveness plus the state of the optional backends.
func (a *App) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{"status": "ok"}

	if a.DB != nil {
		checks["mariadb"] = "ok"
		if err := a.DB.PingContext(ctx); err != nil {
			checks["mariadb"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	if a.Redis != nil {
		checks["redis"] = "ok"
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	if status != http.StatusOK {
		checks["status"] = "degraded"
	}
	return c.JSON(status, checks)
}
