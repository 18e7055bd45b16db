package timeline

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"

	"github.com/keyxmakerx/subtimeline/internal/templates/layouts"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func TestPanel_States(t *testing.T) {
	tests := []struct {
		view TimelineView
		want string
	}{
		{TimelineView{State: StateLoading}, "Loading timelines..."},
		{TimelineView{State: StateBlocked, Message: "Parent timeline is empty"}, `role="alert">Parent timeline is empty`},
		{TimelineView{State: StateEmpty, Message: "This item could not be found"}, `<p class="empty">This item could not be found</p>`},
		{TimelineView{State: StateFailed, ItemID: "42", Message: "The board could not be loaded."}, "Try again"},
	}
	for _, tt := range tests {
		t.Run(string(tt.view.State), func(t *testing.T) {
			html := render(t, Panel(&tt.view))
			if !strings.Contains(html, tt.want) {
				t.Errorf("expected %q in %s", tt.want, html)
			}
			if !strings.Contains(html, `data-state="`+string(tt.view.State)+`"`) {
				t.Error("panel should carry its state")
			}
		})
	}
}

func TestPanel_FailedRetryCarriesItem(t *testing.T) {
	html := render(t, Panel(&TimelineView{State: StateFailed, ItemID: "42", Message: "x"}))
	if !strings.Contains(html, `hx-vals='{&#34;itemId&#34;:&#34;42&#34;}'`) {
		t.Errorf("retry should re-post the item id: %s", html)
	}
}

func TestSubitemCard_EscapesNames(t *testing.T) {
	b := januaryBounds(t)
	html := render(t, SubitemCard(Card{
		SubRecord: SubRecord{ID: "111", Name: `<img src=x onerror="alert(1)">`},
		Bounds:    b,
	}))
	if strings.Contains(html, "<img") {
		t.Errorf("name must be escaped: %s", html)
	}
	if !strings.Contains(html, " disabled>Save") {
		t.Error("save is disabled without a selection")
	}
}

func TestSubitemCard_EndMinFollowsStart(t *testing.T) {
	start := mustDate(t, "2024-01-10", time.UTC)
	html := render(t, SubitemCard(Card{
		SubRecord: SubRecord{ID: "111", Name: "S1"},
		Bounds:    januaryBounds(t),
		Pending:   &Selection{Start: &start},
		Error:     "",
	}))
	if !strings.Contains(html, `name="end" min="2024-01-10" max="2024-01-31"`) {
		t.Errorf("end picker should start at the chosen start: %s", html)
	}
	if !strings.Contains(html, " disabled>Save") {
		t.Error("pending state keeps save disabled")
	}
}

func TestSubitemCard_ReadOnlyDisablesSave(t *testing.T) {
	start := mustDate(t, "2024-01-10", time.UTC)
	end := mustDate(t, "2024-01-15", time.UTC)
	card := Card{
		SubRecord: SubRecord{ID: "111", Name: "S1"},
		Bounds:    januaryBounds(t),
		Selection: &Selection{Start: &start, End: &end},
	}
	if html := render(t, SubitemCard(card)); strings.Contains(html, " disabled>Save") {
		t.Fatal("a complete selection enables save")
	}

	card.ReadOnly = true
	if html := render(t, SubitemCard(card)); !strings.Contains(html, " disabled>Save") {
		t.Errorf("view-only card must disable save: %s", html)
	}
}

func TestShell_DebugFooter(t *testing.T) {
	var buf bytes.Buffer
	ctx := layouts.SetUserID(layouts.SetDebug(context.Background(), true), "<7>")
	if err := Shell(ShellProps{}).Render(ctx, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `<footer class="debug">Development mode, user &lt;7&gt;</footer>`) {
		t.Errorf("expected escaped debug footer, got %s", buf.String())
	}

	if html := render(t, Shell(ShellProps{})); strings.Contains(html, `class="debug"`) {
		t.Error("debug footer is for development only")
	}
}
