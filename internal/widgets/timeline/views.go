package timeline

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
	"time"

	"github.com/a-h/templ"

	"github.com/keyxmakerx/subtimeline/internal/templates/layouts"
)

// Script sources loaded by the shell. Must match the CSP script origins.
const (
	htmxScriptURL   = "https://unpkg.com/htmx.org@1.9.12"
	mondaySDKURL    = "https://cdn.jsdelivr.net/npm/monday-sdk-js@0.5.5/dist/main.min.js"
	panelID         = "timeline-panel"
	contextEndpoint = "/widget/context"
)

// htmlWriter writes markup and remembers the first error.
type htmlWriter struct {
	w   io.Writer
	err error
}

// raw writes trusted markup.
func (h *htmlWriter) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

// text writes escaped text, safe in element bodies and quoted attributes.
func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

// component renders through an htmlWriter.
func component(render func(ctx context.Context, h *htmlWriter)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		render(ctx, h)
		return h.err
	})
}

// ShellProps configures the shell page.
type ShellProps struct {
	// ItemID pre-seeds the session context outside the host, for local
	// development only.
	ItemID string
}

// Shell is the page the host embeds. It renders the Loading state, relays
// the host's session context to the server, sends the view token on every
// htmx request and forwards server notices to the host.
func Shell(props ShellProps) templ.Component {
	return component(func(ctx context.Context, h *htmlWriter) {
		nonce := templ.EscapeString(layouts.GetCSPNonce(ctx))

		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>Subitem timelines</title>`)
		h.raw(`<meta name="view-session" content="`)
		h.text(layouts.GetViewToken(ctx))
		h.raw(`">`)
		h.raw(`<style>` + shellCSS + `</style>`)
		h.raw(`<script src="` + htmxScriptURL + `"></script>`)
		h.raw(`<script src="` + mondaySDKURL + `"></script>`)
		h.raw(`</head><body>`)

		h.raw(`<main id="timeline">`)
		if err := Panel(&TimelineView{State: StateLoading}).Render(ctx, h.w); err != nil && h.err == nil {
			h.err = err
		}
		h.raw(`</main>`)

		if layouts.IsDebug(ctx) {
			user := layouts.GetUserID(ctx)
			if user == "" {
				user = "anonymous"
			}
			h.raw(`<footer class="debug">Development mode, user `)
			h.text(user)
			h.raw(`</footer>`)
		}

		h.raw(`<script nonce="` + nonce + `" data-item-id="`)
		h.text(props.ItemID)
		h.raw(`">` + shellJS + `</script>`)
		h.raw(`</body></html>`)
	})
}

// Panel renders one view state into the panel container.
func Panel(view *TimelineView) templ.Component {
	return component(func(ctx context.Context, h *htmlWriter) {
		h.raw(`<div id="` + panelID + `" data-state="`)
		h.text(string(view.State))
		h.raw(`">`)

		switch view.State {
		case StateLoading:
			h.raw(`<p class="loading">Loading timelines...</p>`)

		case StateBlocked:
			h.raw(`<div class="banner banner-blocked" role="alert">`)
			h.text(view.Message)
			h.raw(`</div>`)

		case StateEmpty:
			h.raw(`<p class="empty">`)
			h.text(view.Message)
			h.raw(`</p>`)

		case StateFailed:
			h.raw(`<div class="banner banner-error" role="alert"><p>`)
			h.text(view.Message)
			h.raw(`</p><button type="button" hx-post="` + contextEndpoint + `" hx-target="#` + panelID + `" hx-swap="outerHTML" hx-vals='`)
			h.text(`{"itemId":` + jsonString(view.ItemID) + `}`)
			h.raw(`'>Try again</button></div>`)

		case StateReady:
			if view.Parent != nil {
				h.raw(`<header class="parent">Parent Timeline: <strong>`)
				h.text(DisplayDate(view.Parent.Start))
				h.raw(` &ndash; `)
				h.text(DisplayDate(view.Parent.End))
				h.raw(`</strong></header>`)
			}
			if view.Message != "" {
				h.raw(`<p class="empty">`)
				h.text(view.Message)
				h.raw(`</p>`)
			}
			h.raw(`<div class="cards">`)
			for _, card := range view.Cards {
				if err := SubitemCard(card).Render(ctx, h.w); err != nil && h.err == nil {
					h.err = err
				}
			}
			h.raw(`</div>`)
		}

		h.raw(`</div>`)
	})
}

// SubitemCard renders one subitem with its bounded range picker and save
// action. Picker changes post the whole form; the server answers with the
// re-rendered card.
func SubitemCard(card Card) templ.Component {
	return component(func(_ context.Context, h *htmlWriter) {
		id := card.SubRecord.ID
		base := "/widget/subitems/" + url.PathEscape(id)
		target := "#" + cardDOMID(id)
		picked := card.Picked()

		h.raw(`<section class="card" id="`)
		h.text(cardDOMID(id))
		h.raw(`"><h3>`)
		h.text(card.SubRecord.Name)
		h.raw(`</h3>`)

		if card.Current != nil {
			h.raw(`<p class="current">Saved: `)
			h.text(DisplayDate(card.Current.Start))
			h.raw(` &ndash; `)
			h.text(DisplayDate(card.Current.End))
			h.raw(`</p>`)
		}

		h.raw(`<form hx-post="`)
		h.text(base + "/selection")
		h.raw(`" hx-trigger="change" hx-target="`)
		h.text(target)
		h.raw(`" hx-swap="outerHTML">`)

		lo, hi := FormatDate(card.Bounds.Min), FormatDate(card.Bounds.Max)
		endLo := lo
		if picked.Start != nil {
			endLo = FormatDate(*picked.Start)
		}
		dateInput(h, "start", "Start", lo, hi, picked.Start)
		dateInput(h, "end", "End", endLo, hi, picked.End)

		if card.Error != "" {
			h.raw(`<p class="field-error" role="alert">`)
			h.text(card.Error)
			h.raw(`</p>`)
		}

		h.raw(`<button type="button" class="save" hx-post="`)
		h.text(base + "/save")
		h.raw(`" hx-target="`)
		h.text(target)
		h.raw(`" hx-swap="outerHTML"`)
		if card.ReadOnly {
			h.raw(` title="You have view-only access to this board"`)
		}
		if card.ReadOnly || !card.CanSave() {
			h.raw(` disabled`)
		}
		h.raw(`>Save</button></form></section>`)
	})
}

// dateInput writes one bounded date field.
func dateInput(h *htmlWriter, name, label, lo, hi string, value *time.Time) {
	h.raw(`<label>` + label + ` <input type="date" name="` + name + `" min="`)
	h.text(lo)
	h.raw(`" max="`)
	h.text(hi)
	h.raw(`"`)
	if value != nil {
		h.raw(` value="`)
		h.text(FormatDate(*value))
		h.raw(`"`)
	}
	h.raw(`></label>`)
}

func cardDOMID(subID string) string {
	return "subitem-" + subID
}

// jsonString quotes s as a JSON string literal.
func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
