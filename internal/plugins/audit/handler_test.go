package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/subtimeline/internal/apperror"
)

type mockScope struct {
	allowItemFn    func(c echo.Context, itemID string) error
	allowSubitemFn func(c echo.Context, subitemID string) error
}

func (m *mockScope) AllowItem(c echo.Context, itemID string) error {
	if m.allowItemFn != nil {
		return m.allowItemFn(c, itemID)
	}
	return nil
}

func (m *mockScope) AllowSubitem(c echo.Context, subitemID string) error {
	if m.allowSubitemFn != nil {
		return m.allowSubitemFn(c, subitemID)
	}
	return nil
}

// onlyID allows exactly the given id.
func onlyID(allowed string) func(echo.Context, string) error {
	return func(_ echo.Context, id string) error {
		if id != allowed {
			return apperror.NewForbidden("not on this view")
		}
		return nil
	}
}

func newHistoryServer(repo AuditRepository, scope Scope) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		_ = c.String(apperror.SafeCode(err), apperror.SafeMessage(err))
	}
	RegisterRoutes(e.Group("/widget"), NewHandler(NewAuditService(repo), scope))
	return e
}

func get(e *echo.Echo, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandler_SubitemHistoryScoped(t *testing.T) {
	var queried []string
	repo := &mockAuditRepo{listBySubitemFn: func(_ context.Context, id string, _ int) ([]AuditEntry, error) {
		queried = append(queried, id)
		return []AuditEntry{{ID: 1, SubitemID: id, Action: ActionTimelineSaved}}, nil
	}}
	e := newHistoryServer(repo, &mockScope{allowSubitemFn: onlyID("111")})

	rec := get(e, "/widget/subitems/111/history")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var entries []AuditEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].SubitemID != "111" {
		t.Errorf("unexpected entries %+v", entries)
	}

	rec = get(e, "/widget/subitems/999/history")
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for a subitem outside the view, got %d", rec.Code)
	}
	if len(queried) != 1 {
		t.Errorf("refused ids must not reach the repository, queried %v", queried)
	}
}

func TestHandler_ItemHistoryScoped(t *testing.T) {
	called := false
	repo := &mockAuditRepo{listByItemFn: func(context.Context, string, int) ([]AuditEntry, error) {
		called = true
		return nil, nil
	}}
	e := newHistoryServer(repo, &mockScope{allowItemFn: onlyID("42")})

	if rec := get(e, "/widget/items/7/history"); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for another item, got %d", rec.Code)
	}
	if called {
		t.Error("refused item must not reach the repository")
	}

	rec := get(e, "/widget/items/42/history")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "[]\n" {
		t.Errorf("expected empty JSON list, got %q", rec.Body.String())
	}
}
