// Package pages holds full-page components that do not belong to a widget.
package pages

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// ErrorPage renders a standalone error page for non-htmx requests, such as
// opening the widget URL with an expired or missing host session.
func ErrorPage(code int, message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1">`+
			`<title>`+strconv.Itoa(code)+`</title>`+
			`<style>body{font-family:Figtree,Roboto,Arial,sans-serif;color:#323338;padding:24px}`+
			`.code{color:#676879;font-size:13px}</style></head><body>`+
			`<main role="alert"><p class="code">Error `+strconv.Itoa(code)+`</p><p>`+
			templ.EscapeString(message)+
			`</p></main></body></html>`)
		return err
	})
}
