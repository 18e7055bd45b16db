package middleware

import (
	"crypto/rand"
	"encoding/base64"
	"strings"

	"github.com/labstack/echo/v4"
)

// cspNonceKey is the echo context key holding the per-request script nonce.
const cspNonceKey = "csp_nonce"

// Script and style origins the widget shell loads from.
var (
	scriptOrigins = []string{"https://unpkg.com", "https://cdn.jsdelivr.net"}
	styleOrigins  = []string{"https://cdn.jsdelivr.net"}
)

// SecurityHeaders returns middleware that sets security-related HTTP headers
// on every response. The widget is rendered inside the host platform's
// iframe, so framing is limited to frameAncestors instead of being denied.
// Each request gets a fresh nonce for the shell's inline script.
func SecurityHeaders(frameAncestors []string) echo.MiddlewareFunc {
	ancestors := "'none'"
	if len(frameAncestors) > 0 {
		ancestors = strings.Join(frameAncestors, " ")
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			nonce, err := newNonce()
			if err != nil {
				return err
			}
			c.Set(cspNonceKey, nonce)

			h := c.Response().Header()
			h.Set("Content-Security-Policy",
				"default-src 'self'; "+
					"script-src 'self' 'nonce-"+nonce+"' "+strings.Join(scriptOrigins, " ")+"; "+
					"style-src 'self' 'unsafe-inline' "+strings.Join(styleOrigins, " ")+"; "+
					"img-src 'self' data:; "+
					"connect-src 'self'; "+
					"frame-ancestors "+ancestors+"; "+
					"base-uri 'self'; "+
					"form-action 'self'",
			)

			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			h.Set("X-Content-Type-Options", "nosniff")

			// The iframe is cross-origin from the host, so only the origin is
			// sent along.
			h.Set("Referrer-Policy", "strict-origin")
			h.Set("Permissions-Policy",
				"camera=(), microphone=(), geolocation=(), payment=()",
			)

			return next(c)
		}
	}
}

// GetCSPNonce returns the script nonce issued for this request.
func GetCSPNonce(c echo.Context) string {
	if nonce, ok := c.Get(cspNonceKey).(string); ok {
		return nonce
	}
	return ""
}

func newNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawStdEncoding.EncodeToString(b), nil
}
