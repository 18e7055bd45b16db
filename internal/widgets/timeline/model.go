// Package timeline implements the restricted subitem timeline widget. The
// widget reads a parent item's date range from a configured timeline column,
// lets the viewer pick a sub-range for each of the item's subitems within
// that window, and writes the chosen range back to the subitem's own
// timeline column.
//
// Layers follow the usual widget split: the repository is the remote data
// gateway to the platform API, the store holds per-view state and pending
// selections, the service owns the load/select/save flow, and the handler
// renders templ fragments for the embedded htmx shell.
package timeline

import "time"

// State is the render state of a timeline view.
type State string

const (
	// StateLoading is shown until the host delivers a session context.
	StateLoading State = "loading"

	// StateReady renders the parent range and one card per subitem.
	StateReady State = "ready"

	// StateBlocked follows a missing parent value or a configured column
	// that the board does not carry. No cards are rendered.
	StateBlocked State = "blocked"

	// StateEmpty follows an item id that resolves to no record.
	StateEmpty State = "empty"

	// StateFailed follows any other load failure.
	StateFailed State = "failed"
)

// Notice types understood by the host's notice channel.
const (
	NoticeSuccess = "success"
	NoticeError   = "error"
)

// ColumnValue is one column slot on an item. Value is the platform's
// JSON-encoded payload, nil when the column is empty.
type ColumnValue struct {
	ID    string  `json:"id"`
	Value *string `json:"value"`
}

// SubRecord is a subitem as returned by the last load. Read-only.
type SubRecord struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	ColumnValues []ColumnValue `json:"columnValues"`
}

// Column returns the column value with the given id.
func (s SubRecord) Column(id string) (ColumnValue, bool) {
	for _, cv := range s.ColumnValues {
		if cv.ID == id {
			return cv, true
		}
	}
	return ColumnValue{}, false
}

// ParentRange is the parent item's date window. Both ends are calendar days
// held at noon in the viewer's location.
type ParentRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Selection is a pending sub-range for one subitem. A nil end means the
// picker has not produced that end yet.
type Selection struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Complete reports whether both ends are present.
func (s Selection) Complete() bool {
	return s.Start != nil && s.End != nil
}

// SessionContext is the host-delivered payload identifying the item the
// widget is viewing.
type SessionContext struct {
	ItemID   string `json:"itemId" form:"itemId"`
	Timezone string `json:"tz" form:"tz"`
}

// ItemSnapshot is the result of a single read: the parent's raw timeline
// value and its subitems in server order.
type ItemSnapshot struct {
	ItemID      string
	ParentValue *string
	SubRecords  []SubRecord
}

// Confirmation is the platform's acknowledgement of a column write.
type Confirmation struct {
	ID string `json:"id"`
}

// Actor identifies the host user behind a view session, when known.
type Actor struct {
	UserID    string
	AccountID string
}

// ViewState is what one view session last loaded. Replaced wholesale on
// every load; selections are stored separately and survive reloads.
type ViewState struct {
	ItemID     string       `json:"itemId"`
	Timezone   string       `json:"tz"`
	Parent     *ParentRange `json:"parent,omitempty"`
	SubRecords []SubRecord  `json:"subRecords"`

	// RequestedAt is when the load began. A state never replaces one that
	// was requested later.
	RequestedAt time.Time `json:"requestedAt"`
}

// supersedes reports whether s may replace prev.
func (s ViewState) supersedes(prev *ViewState) bool {
	return prev == nil || !prev.RequestedAt.After(s.RequestedAt)
}

// SubRecord returns the loaded subitem with the given id.
func (v *ViewState) SubRecord(id string) (SubRecord, bool) {
	for _, s := range v.SubRecords {
		if s.ID == id {
			return s, true
		}
	}
	return SubRecord{}, false
}

// TimelineView is everything the view needs to render one state.
type TimelineView struct {
	State   State
	ItemID  string
	Parent  *ParentRange
	Bounds  *Bounds
	Cards   []Card
	Message string
}

// Card is the render model of one subitem.
type Card struct {
	SubRecord SubRecord
	Bounds    Bounds

	// Selection is the stored, complete selection, if any.
	Selection *Selection

	// Pending is the picker's intermediate state echoed back when only one
	// end has been chosen. Never stored.
	Pending *Selection

	// Current is the range already saved on the subitem, if readable.
	Current *ParentRange

	// Error is a validation message shown under the picker.
	Error string

	// ReadOnly renders the card for a viewer who may not save.
	ReadOnly bool
}

// Picked returns what the picker should display: the pending state when
// present, else the stored selection.
func (c Card) Picked() Selection {
	if c.Pending != nil {
		return *c.Pending
	}
	if c.Selection != nil {
		return *c.Selection
	}
	return Selection{}
}

// CanSave reports whether the card's save action is enabled.
func (c Card) CanSave() bool {
	return c.Pending == nil && CanSave(c.Selection)
}

// Notice is a message for the host's notification channel.
type Notice struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// PickerInput is the raw picker state posted by a card.
type PickerInput struct {
	Start string `form:"start"`
	End   string `form:"end"`
}

// SaveResult is the outcome of a save action. It is returned for rejected
// writes too, alongside the error, so the card can still be re-rendered.
type SaveResult struct {
	Card         Card
	Notice       Notice
	Confirmation *Confirmation
}
