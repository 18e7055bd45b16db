package timeline

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/subtimeline/internal/apperror"
)

const msgHistoryScope = "This history is not part of the item you are viewing"

// HistoryScope limits audit history to the item the caller's view session
// has loaded and that item's subitems.
type HistoryScope struct {
	store Store
}

// NewHistoryScope creates a scope that reads loaded views from store.
func NewHistoryScope(store Store) *HistoryScope {
	return &HistoryScope{store: store}
}

// AllowItem allows the view's own parent item only.
func (s *HistoryScope) AllowItem(c echo.Context, itemID string) error {
	state, err := s.view(c)
	if err != nil {
		return err
	}
	if state.ItemID != itemID {
		return apperror.NewForbidden(msgHistoryScope)
	}
	return nil
}

// AllowSubitem allows subitems of the view's last successful load.
func (s *HistoryScope) AllowSubitem(c echo.Context, subitemID string) error {
	state, err := s.view(c)
	if err != nil {
		return err
	}
	if _, ok := state.SubRecord(subitemID); !ok {
		return apperror.NewForbidden(msgHistoryScope)
	}
	return nil
}

func (s *HistoryScope) view(c echo.Context) (*ViewState, error) {
	vs := GetViewSession(c)
	if vs == nil {
		return nil, apperror.NewUnauthorized(msgSessionExpired)
	}
	state, err := s.store.GetView(c.Request().Context(), vs.ID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("reading view state: %w", err))
	}
	if state == nil {
		return nil, apperror.NewForbidden(msgHistoryScope)
	}
	return state, nil
}
