// data.go provides typed context helpers for passing request data from
// handlers and middleware to templ components. Only simple types are stored
// so the layouts package never imports widget types.
//
// Data flow: Middleware → Echo Context → LayoutInjector → Go Context → templ
package layouts

import "context"

// ctxKey is a private type for context keys to prevent collisions.
type ctxKey string

const (
	keyViewToken ctxKey = "layout_view_token"
	keyCSPNonce  ctxKey = "layout_csp_nonce"
	keyUserID    ctxKey = "layout_user_id"
	keyDebug     ctxKey = "layout_debug"
)

// --- Setters (called by the layout injector in app/routes.go) ---

// SetViewToken stores the signed view session token the shell sends back
// on every htmx request.
func SetViewToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, keyViewToken, token)
}

// SetCSPNonce stores the script nonce issued by the security middleware.
func SetCSPNonce(ctx context.Context, nonce string) context.Context {
	return context.WithValue(ctx, keyCSPNonce, nonce)
}

// SetUserID stores the host user id, when the host token carried one.
func SetUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyUserID, id)
}

// SetDebug marks development mode.
func SetDebug(ctx context.Context, debug bool) context.Context {
	return context.WithValue(ctx, keyDebug, debug)
}

// --- Getters (called by templ components) ---

// GetViewToken returns the view session token.
func GetViewToken(ctx context.Context) string {
	v, _ := ctx.Value(keyViewToken).(string)
	return v
}

// GetCSPNonce returns the script nonce for inline scripts.
func GetCSPNonce(ctx context.Context) string {
	v, _ := ctx.Value(keyCSPNonce).(string)
	return v
}

// GetUserID returns the host user id.
func GetUserID(ctx context.Context) string {
	v, _ := ctx.Value(keyUserID).(string)
	return v
}

// IsDebug reports development mode.
func IsDebug(ctx context.Context) bool {
	v, _ := ctx.Value(keyDebug).(bool)
	return v
}
