package timeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/keyxmakerx/subtimeline/internal/apperror"
	"github.com/keyxmakerx/subtimeline/internal/plugins/audit"
)

// Messages shown to the viewer.
const (
	msgUpdated        = "Timeline updated"
	msgNoSubitems     = "This item has no subitems yet"
	msgNoView         = "This view has expired. Reload the widget to continue."
	msgNotReady       = "The parent timeline is not available"
	msgGone           = "This subitem is no longer on the item"
	msgOutOfBounds    = "Dates must fall within the parent timeline"
	msgEndBeforeStart = "The end date cannot be before the start date"
	msgBadDate        = "Dates must use the YYYY-MM-DD format"
	msgIncomplete     = "Select both a start and an end date"
)

// loadTimeout bounds a shared item load, which no single request owns.
const loadTimeout = 30 * time.Second

// TimelineService owns the load, select and save flow of one view session.
type TimelineService interface {
	// OnContext performs a full reload for the session context's item and
	// replaces the view's loaded state. Stored selections survive. Load
	// failures are reported through the returned view's state; the error is
	// non-nil only for a context without an item id, a cancelled request, a
	// store failure, or ErrStaleView when a later load of the same view has
	// already been stored.
	OnContext(ctx context.Context, viewID string, sc SessionContext) (*TimelineView, error)

	// Select applies a picker change to one subitem. A partial change is
	// echoed back as the card's pending state and not stored. On a
	// validation error the card is still returned so it can be re-rendered.
	Select(ctx context.Context, viewID, subID string, in PickerInput) (*Card, error)

	// Save writes the stored selection of one subitem. The selection is
	// kept whatever the outcome. A rejected write returns both a result
	// carrying an error notice and the error.
	Save(ctx context.Context, viewID, subID string, actor Actor) (*SaveResult, error)
}

// timelineService implements TimelineService.
type timelineService struct {
	repo     Repository
	store    Store
	audit    audit.AuditService
	columnID string
	location *time.Location
	loads    singleflight.Group
	now      func() time.Time
}

// NewTimelineService creates the widget service. auditSvc may be nil when
// the audit trail is disabled. loc is used when the host does not report a
// timezone.
func NewTimelineService(repo Repository, store Store, auditSvc audit.AuditService, subitemColumnID string, loc *time.Location) TimelineService {
	if loc == nil {
		loc = time.UTC
	}
	return &timelineService{
		repo:     repo,
		store:    store,
		audit:    auditSvc,
		columnID: subitemColumnID,
		location: loc,
		now:      time.Now,
	}
}

func (s *timelineService) OnContext(ctx context.Context, viewID string, sc SessionContext) (*TimelineView, error) {
	itemID := strings.TrimSpace(sc.ItemID)
	if itemID == "" {
		return nil, apperror.NewBadRequest("item id is required")
	}
	loc := s.resolveLocation(sc.Timezone)

	view := &TimelineView{ItemID: itemID}
	state := ViewState{ItemID: itemID, Timezone: loc.String(), RequestedAt: s.now()}

	flight := s.loads.DoChan(itemID, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		return s.repo.LoadParentAndSubitems(lctx, itemID)
	})
	var res singleflight.Result
	select {
	case res = <-flight:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Shared {
		slog.Debug("timeline load shared", slog.String("item_id", itemID))
	}

	err := res.Err
	var parent ParentRange
	if err == nil {
		snap := res.Val.(*ItemSnapshot)
		parent, err = DecodeRange(snap.ParentValue, loc)
		if err == nil {
			state.Parent = &parent
			state.SubRecords = snap.SubRecords
		}
	}

	// The loaded state is replaced even when the load failed so that a
	// stale item can no longer be edited from this view.
	if serr := s.store.SetView(ctx, viewID, state); serr != nil {
		if errors.Is(serr, ErrStaleView) {
			loadsTotal.WithLabelValues("superseded").Inc()
			slog.Debug("timeline load superseded",
				slog.String("view_id", viewID),
				slog.String("item_id", itemID),
			)
			return nil, ErrStaleView
		}
		return nil, apperror.NewInternal(fmt.Errorf("storing view state: %w", serr))
	}

	if err != nil {
		s.failedView(view, err)
		loadsTotal.WithLabelValues(string(view.State)).Inc()
		return view, nil
	}

	selections, err := s.store.Selections(ctx, viewID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("reading selections: %w", err))
	}

	bounds := BoundsFor(parent)
	view.State = StateReady
	view.Parent = &parent
	view.Bounds = &bounds
	view.Cards = make([]Card, 0, len(state.SubRecords))
	for _, sub := range state.SubRecords {
		card := s.card(sub, bounds, loc)
		if sel, ok := selections[sub.ID]; ok {
			card.Selection = &sel
		}
		view.Cards = append(view.Cards, card)
	}
	if len(view.Cards) == 0 {
		view.Message = msgNoSubitems
	}

	loadsTotal.WithLabelValues(string(view.State)).Inc()
	slog.Debug("timeline view loaded",
		slog.String("item_id", itemID),
		slog.Int("subitems", len(view.Cards)),
		slog.String("tz", loc.String()),
	)
	return view, nil
}

func (s *timelineService) Select(ctx context.Context, viewID, subID string, in PickerInput) (*Card, error) {
	state, sub, err := s.loaded(ctx, viewID, subID)
	if err != nil {
		return nil, err
	}
	loc := s.resolveLocation(state.Timezone)
	card := s.card(sub, BoundsFor(*state.Parent), loc)

	stored, err := s.store.GetSelection(ctx, viewID, subID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("reading selection: %w", err))
	}
	card.Selection = stored

	sel, err := parsePicker(in, loc)
	if err != nil {
		selectionsTotal.WithLabelValues("invalid").Inc()
		return &card, err
	}
	if sel.Complete() && sel.End.Before(*sel.Start) {
		selectionsTotal.WithLabelValues("invalid").Inc()
		return &card, apperror.NewValidation(msgEndBeforeStart)
	}
	if !card.Bounds.Allows(sel) {
		selectionsTotal.WithLabelValues("out_of_bounds").Inc()
		return &card, apperror.NewValidation(msgOutOfBounds)
	}

	if !sel.Complete() {
		selectionsTotal.WithLabelValues("pending").Inc()
		card.Pending = &sel
		return &card, nil
	}

	if err := s.store.SetSelection(ctx, viewID, subID, sel); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("storing selection: %w", err))
	}
	selectionsTotal.WithLabelValues("stored").Inc()
	card.Selection = &sel
	return &card, nil
}

func (s *timelineService) Save(ctx context.Context, viewID, subID string, actor Actor) (*SaveResult, error) {
	state, sub, err := s.loaded(ctx, viewID, subID)
	if err != nil {
		return nil, err
	}
	loc := s.resolveLocation(state.Timezone)
	card := s.card(sub, BoundsFor(*state.Parent), loc)

	sel, err := s.store.GetSelection(ctx, viewID, subID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("reading selection: %w", err))
	}
	card.Selection = sel

	if !CanSave(sel) {
		return &SaveResult{Card: card}, apperror.NewValidation(msgIncomplete)
	}
	// The parent may have been narrowed by a reload since the selection
	// was stored.
	if !card.Bounds.Allows(*sel) {
		return &SaveResult{Card: card}, apperror.NewValidation(msgOutOfBounds)
	}

	encoded, err := EncodeRange(*sel)
	if err != nil {
		return &SaveResult{Card: card}, err
	}

	conf, err := s.repo.SaveSubitemTimeline(ctx, subID, encoded)
	if err != nil {
		savesTotal.WithLabelValues("rejected").Inc()
		slog.Warn("subitem timeline save rejected",
			slog.String("item_id", state.ItemID),
			slog.String("subitem_id", subID),
			slog.Any("error", err),
		)
		s.record(ctx, state.ItemID, subID, encoded, actor, audit.ActionTimelineRejected, map[string]any{
			"error": apperror.SafeMessage(err),
		})
		return &SaveResult{
			Card:   card,
			Notice: Notice{Message: apperror.SafeMessage(err), Type: NoticeError},
		}, err
	}

	savesTotal.WithLabelValues("saved").Inc()
	slog.Info("subitem timeline saved",
		slog.String("item_id", state.ItemID),
		slog.String("subitem_id", subID),
		slog.String("value", encoded),
	)
	s.record(ctx, state.ItemID, subID, encoded, actor, audit.ActionTimelineSaved, map[string]any{
		"confirmed_id": conf.ID,
	})

	current := ParentRange{Start: *sel.Start, End: *sel.End}
	card.Current = &current
	return &SaveResult{
		Card:         card,
		Notice:       Notice{Message: msgUpdated, Type: NoticeSuccess},
		Confirmation: conf,
	}, nil
}

// loaded returns the view's state and the requested subitem, failing when
// the view has no usable parent range or the subitem is not part of it.
func (s *timelineService) loaded(ctx context.Context, viewID, subID string) (*ViewState, SubRecord, error) {
	state, err := s.store.GetView(ctx, viewID)
	if err != nil {
		return nil, SubRecord{}, apperror.NewInternal(fmt.Errorf("reading view state: %w", err))
	}
	if state == nil {
		return nil, SubRecord{}, apperror.NewBadRequest(msgNoView)
	}
	if state.Parent == nil {
		return nil, SubRecord{}, apperror.NewMissingValue(msgNotReady)
	}
	sub, ok := state.SubRecord(subID)
	if !ok {
		return nil, SubRecord{}, apperror.NewNotFound(msgGone)
	}
	return state, sub, nil
}

// card builds the base card for a subitem. The subitem's own saved value
// is shown as Current when it can be read.
func (s *timelineService) card(sub SubRecord, bounds Bounds, loc *time.Location) Card {
	card := Card{SubRecord: sub, Bounds: bounds}
	if cv, ok := sub.Column(s.columnID); ok && cv.Value != nil {
		if current, err := DecodeRange(cv.Value, loc); err == nil {
			card.Current = &current
		}
	}
	return card
}

// record writes an audit entry. Audit failures never fail the save.
func (s *timelineService) record(ctx context.Context, itemID, subID, value string, actor Actor, action string, details map[string]any) {
	if s.audit == nil {
		return
	}
	entry := &audit.AuditEntry{
		ItemID:    itemID,
		SubitemID: subID,
		UserID:    actor.UserID,
		AccountID: actor.AccountID,
		Action:    action,
		Value:     value,
		Details:   details,
	}
	if err := s.audit.Log(context.WithoutCancel(ctx), entry); err != nil {
		slog.Warn("audit entry dropped",
			slog.String("subitem_id", subID),
			slog.Any("error", err),
		)
	}
}

// resolveLocation returns the named IANA location, falling back to the
// configured display location for an empty or unknown name.
func (s *timelineService) resolveLocation(name string) *time.Location {
	name = strings.TrimSpace(name)
	if name == "" {
		return s.location
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		slog.Debug("unknown viewer timezone", slog.String("tz", name))
		return s.location
	}
	return loc
}

// failedView maps a load error onto the Blocked, Empty or Failed state.
func (s *timelineService) failedView(view *TimelineView, err error) {
	view.Message = apperror.SafeMessage(err)
	switch {
	case apperror.IsBlocking(err):
		view.State = StateBlocked
		slog.Info("timeline view blocked",
			slog.String("item_id", view.ItemID),
			slog.String("reason", view.Message),
		)
	case apperror.IsType(err, apperror.TypeNotFound):
		view.State = StateEmpty
	default:
		view.State = StateFailed
		slog.Error("timeline load failed",
			slog.String("item_id", view.ItemID),
			slog.Any("error", err),
		)
	}
}

// parsePicker converts the posted picker state. Empty ends stay nil.
func parsePicker(in PickerInput, loc *time.Location) (Selection, error) {
	var sel Selection
	if v := strings.TrimSpace(in.Start); v != "" {
		t, err := ParseDate(v, loc)
		if err != nil {
			return Selection{}, apperror.NewValidation(msgBadDate)
		}
		sel.Start = &t
	}
	if v := strings.TrimSpace(in.End); v != "" {
		t, err := ParseDate(v, loc)
		if err != nil {
			return Selection{}, apperror.NewValidation(msgBadDate)
		}
		sel.End = &t
	}
	return sel, nil
}
