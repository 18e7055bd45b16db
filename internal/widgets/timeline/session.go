package timeline

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/subtimeline/internal/apperror"
)

// ViewSessionHeader carries the signed view token on every htmx request.
// The widget runs in a third-party iframe where cookies are unreliable, so
// the token travels in a header the shell script sets.
const ViewSessionHeader = "X-View-Session"

// viewSessionKey is the echo context key for the verified *ViewSession.
const viewSessionKey = "view_session"

const msgSessionExpired = "Your session has expired. Reload the widget to continue."

// ViewSession is one page load of the widget shell. It owns a ViewState and
// the selections made in it.
type ViewSession struct {
	ID        string
	Actor     Actor
	ReadOnly  bool
	ExpiresAt time.Time
}

// hostClaims is the payload of the platform's sessionToken.
type hostClaims struct {
	Data struct {
		UserID     int64 `json:"user_id"`
		AccountID  int64 `json:"account_id"`
		IsViewOnly bool  `json:"is_view_only"`
	} `json:"dat"`
	jwt.RegisteredClaims
}

// viewClaims is the payload of a view token.
type viewClaims struct {
	UserID    string `json:"uid,omitempty"`
	AccountID string `json:"aid,omitempty"`
	ReadOnly  bool   `json:"ro,omitempty"`
	jwt.RegisteredClaims
}

// Sessions issues and verifies view tokens. Both token kinds are HS256.
type Sessions struct {
	secret     []byte
	hostSecret []byte
	ttl        time.Duration
	parser     *jwt.Parser
	now        func() time.Time
}

// NewSessions creates a token issuer. hostSecret is the app's client secret
// used to verify the platform's sessionToken; when empty, shells are opened
// without a host identity.
func NewSessions(secret, hostSecret string, ttl time.Duration) *Sessions {
	return &Sessions{
		secret:     []byte(secret),
		hostSecret: []byte(hostSecret),
		ttl:        ttl,
		parser:     jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
		now:        time.Now,
	}
}

// Open verifies the host token and starts a new view session, returning the
// session and its signed token.
func (s *Sessions) Open(hostToken string) (*ViewSession, string, error) {
	vs := &ViewSession{ID: uuid.NewString()}

	if len(s.hostSecret) > 0 {
		if hostToken == "" {
			return nil, "", apperror.NewUnauthorized("Open this widget from a board item")
		}
		claims := &hostClaims{}
		if _, err := s.parser.ParseWithClaims(hostToken, claims, s.key(s.hostSecret)); err != nil {
			e := apperror.NewUnauthorized("The board session could not be verified")
			e.Internal = err
			return nil, "", e
		}
		if claims.Data.UserID != 0 {
			vs.Actor.UserID = strconv.FormatInt(claims.Data.UserID, 10)
		}
		if claims.Data.AccountID != 0 {
			vs.Actor.AccountID = strconv.FormatInt(claims.Data.AccountID, 10)
		}
		vs.ReadOnly = claims.Data.IsViewOnly
	}

	now := s.now()
	vs.ExpiresAt = now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, viewClaims{
		UserID:    vs.Actor.UserID,
		AccountID: vs.Actor.AccountID,
		ReadOnly:  vs.ReadOnly,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        vs.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(vs.ExpiresAt),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, "", apperror.NewInternal(fmt.Errorf("signing view token: %w", err))
	}
	return vs, signed, nil
}

// Verify checks a view token and returns its session.
func (s *Sessions) Verify(token string) (*ViewSession, error) {
	if token == "" {
		return nil, apperror.NewUnauthorized(msgSessionExpired)
	}
	claims := &viewClaims{}
	if _, err := s.parser.ParseWithClaims(token, claims, s.key(s.secret)); err != nil {
		e := apperror.NewUnauthorized(msgSessionExpired)
		e.Internal = err
		return nil, e
	}
	if claims.ID == "" {
		return nil, apperror.NewUnauthorized(msgSessionExpired)
	}

	vs := &ViewSession{
		ID:       claims.ID,
		Actor:    Actor{UserID: claims.UserID, AccountID: claims.AccountID},
		ReadOnly: claims.ReadOnly,
	}
	if claims.ExpiresAt != nil {
		vs.ExpiresAt = claims.ExpiresAt.Time
	}
	return vs, nil
}

func (s *Sessions) key(secret []byte) jwt.Keyfunc {
	return func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}
}

// RequireViewSession rejects requests without a valid view token and stores
// the verified session in the echo context.
func RequireViewSession(s *Sessions) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			vs, err := s.Verify(c.Request().Header.Get(ViewSessionHeader))
			if err != nil {
				return err
			}
			c.Set(viewSessionKey, vs)
			return next(c)
		}
	}
}

// GetViewSession returns the verified view session, or nil.
func GetViewSession(c echo.Context) *ViewSession {
	vs, _ := c.Get(viewSessionKey).(*ViewSession)
	return vs
}

// ViewSessionKey counts rate-limited requests per view session, falling
// back to the client IP.
func ViewSessionKey(c echo.Context) string {
	if vs := GetViewSession(c); vs != nil {
		return "view:" + vs.ID
	}
	return "ip:" + c.RealIP()
}
