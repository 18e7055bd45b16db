package timeline

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/subtimeline/internal/apperror"
)

const (
	testSecret     = "test-secret-key-that-is-long-enough"
	testHostSecret = "host-client-secret"
)

func hostToken(t *testing.T, secret string, viewOnly bool) string {
	t.Helper()
	claims := jwt.MapClaims{
		"dat": map[string]any{
			"user_id":      123,
			"account_id":   456,
			"is_view_only": viewOnly,
		},
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing host token: %v", err)
	}
	return signed
}

func TestSessions_AnonymousRoundTrip(t *testing.T) {
	s := NewSessions(testSecret, "", time.Hour)

	vs, token, err := s.Open("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vs.ID == "" || token == "" {
		t.Fatal("expected a view id and token")
	}

	got, err := s.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.ID != vs.ID {
		t.Errorf("expected view %s, got %s", vs.ID, got.ID)
	}
	if got.Actor != (Actor{}) {
		t.Errorf("expected anonymous actor, got %+v", got.Actor)
	}
}

func TestSessions_EachOpenIsANewView(t *testing.T) {
	s := NewSessions(testSecret, "", time.Hour)
	a, _, _ := s.Open("")
	b, _, _ := s.Open("")
	if a.ID == b.ID {
		t.Error("two page loads must not share a view session")
	}
}

func TestSessions_HostToken(t *testing.T) {
	s := NewSessions(testSecret, testHostSecret, time.Hour)

	vs, token, err := s.Open(hostToken(t, testHostSecret, true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vs.Actor.UserID != "123" || vs.Actor.AccountID != "456" || !vs.ReadOnly {
		t.Errorf("unexpected session %+v", vs)
	}

	got, err := s.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.Actor.UserID != "123" || !got.ReadOnly {
		t.Errorf("claims not carried into the view token: %+v", got)
	}
}

func TestSessions_HostTokenRejected(t *testing.T) {
	s := NewSessions(testSecret, testHostSecret, time.Hour)

	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"wrong secret", hostToken(t, "someone-else", false)},
		{"garbage", "not.a.token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.Open(tt.token)
			assertAppError(t, err, http.StatusUnauthorized)
		})
	}
}

func TestSessions_VerifyRejects(t *testing.T) {
	s := NewSessions(testSecret, "", time.Hour)
	_, token, _ := s.Open("")

	other := NewSessions("a-different-secret-of-some-length", "", time.Hour)
	if _, err := other.Verify(token); !apperror.IsType(err, apperror.TypeUnauthorized) {
		t.Errorf("token signed with another key must be rejected, got %v", err)
	}

	if _, err := s.Verify(""); !apperror.IsType(err, apperror.TypeUnauthorized) {
		t.Errorf("empty token must be rejected, got %v", err)
	}

	expired := NewSessions(testSecret, "", -time.Minute)
	_, old, _ := expired.Open("")
	if _, err := s.Verify(old); !apperror.IsType(err, apperror.TypeUnauthorized) {
		t.Errorf("expired token must be rejected, got %v", err)
	}
}

func TestRequireViewSession(t *testing.T) {
	s := NewSessions(testSecret, "", time.Hour)
	vs, token, _ := s.Open("")
	e := echo.New()

	var seen *ViewSession
	h := RequireViewSession(s)(func(c echo.Context) error {
		seen = GetViewSession(c)
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/widget/context", nil)
	req.Header.Set(ViewSessionHeader, token)
	if err := h(e.NewContext(req, httptest.NewRecorder())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen == nil || seen.ID != vs.ID {
		t.Errorf("expected session %s in context, got %+v", vs.ID, seen)
	}

	req = httptest.NewRequest(http.MethodPost, "/widget/context", nil)
	err := h(e.NewContext(req, httptest.NewRecorder()))
	assertAppError(t, err, http.StatusUnauthorized)
}
