package timeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/keyxmakerx/subtimeline/internal/apperror"
	"github.com/keyxmakerx/subtimeline/internal/monday"
	"github.com/keyxmakerx/subtimeline/internal/sanitize"
)

var (
	loadQuery = monday.MustParse(`
query LoadParentAndSubitems($itemIds: [ID!]!) {
  items(ids: $itemIds) {
    id
    column_values {
      id
      value
    }
    subitems {
      id
      name
      column_values {
        id
        value
      }
    }
  }
}`)

	saveMutation = monday.MustParse(`
mutation SaveSubitemTimeline($itemId: ID!, $columnId: String!, $value: JSON!) {
  change_column_value(item_id: $itemId, column_id: $columnId, value: $value) {
    id
  }
}`)

	saveScopedMutation = monday.MustParse(`
mutation SaveSubitemTimelineOnBoard($boardId: ID!, $itemId: ID!, $columnId: String!, $value: JSON!) {
  change_column_value(board_id: $boardId, item_id: $itemId, column_id: $columnId, value: $value) {
    id
  }
}`)
)

// Querier sends one GraphQL operation. *monday.Client satisfies it.
type Querier interface {
	Do(ctx context.Context, op monday.Operation, vars map[string]any, out any) error
}

// Columns names the board columns the widget reads and writes. These are
// deployment constants.
type Columns struct {
	ParentColumnID  string
	SubitemColumnID string

	// SubitemBoardID scopes writes to one board when set.
	SubitemBoardID string
}

// Repository is the remote data gateway. It holds no state between calls.
type Repository interface {
	// LoadParentAndSubitems reads the parent's timeline value and all of its
	// subitems in one request. Fails with NotFound for an unknown item and
	// SchemaMismatch when the parent lacks the configured column.
	LoadParentAndSubitems(ctx context.Context, itemID string) (*ItemSnapshot, error)

	// SaveSubitemTimeline writes an encoded timeline value to one subitem.
	// Any failure is WriteRejected. Single attempt, no retry.
	SaveSubitemTimeline(ctx context.Context, subRecordID, encodedValue string) (*Confirmation, error)
}

// mondayRepository implements Repository over the platform GraphQL API.
type mondayRepository struct {
	client  Querier
	columns Columns
}

// NewRepository creates a gateway using the given client and column layout.
func NewRepository(client Querier, columns Columns) Repository {
	return &mondayRepository{client: client, columns: columns}
}

type loadResponse struct {
	Items []struct {
		ID           string        `json:"id"`
		ColumnValues []ColumnValue `json:"column_values"`
		Subitems     []struct {
			ID           string        `json:"id"`
			Name         string        `json:"name"`
			ColumnValues []ColumnValue `json:"column_values"`
		} `json:"subitems"`
	} `json:"items"`
}

type saveResponse struct {
	ChangeColumnValue *Confirmation `json:"change_column_value"`
}

func (r *mondayRepository) LoadParentAndSubitems(ctx context.Context, itemID string) (*ItemSnapshot, error) {
	var resp loadResponse
	err := r.client.Do(ctx, loadQuery, map[string]any{"itemIds": []string{itemID}}, &resp)
	if err != nil {
		return nil, apperror.NewUpstream(fmt.Errorf("loading item %s: %w", itemID, err))
	}
	if len(resp.Items) == 0 {
		return nil, apperror.NewNotFound("This item could not be found")
	}

	item := resp.Items[0]
	snap := &ItemSnapshot{ItemID: itemID}

	found := false
	for _, cv := range item.ColumnValues {
		if cv.ID == r.columns.ParentColumnID {
			snap.ParentValue = cv.Value
			found = true
			break
		}
	}
	if !found {
		slog.Warn("parent timeline column missing from board",
			slog.String("item_id", itemID),
			slog.String("column_id", r.columns.ParentColumnID),
			slog.Int("columns_returned", len(item.ColumnValues)),
		)
		return nil, apperror.NewSchemaMismatch(r.columns.ParentColumnID)
	}

	snap.SubRecords = make([]SubRecord, 0, len(item.Subitems))
	for _, s := range item.Subitems {
		snap.SubRecords = append(snap.SubRecords, SubRecord{
			ID:           s.ID,
			Name:         sanitize.PlainText(s.Name),
			ColumnValues: s.ColumnValues,
		})
	}
	return snap, nil
}

func (r *mondayRepository) SaveSubitemTimeline(ctx context.Context, subRecordID, encodedValue string) (*Confirmation, error) {
	op := saveMutation
	vars := map[string]any{
		"itemId":   subRecordID,
		"columnId": r.columns.SubitemColumnID,
		"value":    encodedValue,
	}
	if r.columns.SubitemBoardID != "" {
		op = saveScopedMutation
		vars["boardId"] = r.columns.SubitemBoardID
	}

	var resp saveResponse
	if err := r.client.Do(ctx, op, vars, &resp); err != nil {
		return nil, apperror.NewWriteRejected(fmt.Errorf("saving subitem %s: %w", subRecordID, err))
	}
	if resp.ChangeColumnValue == nil || resp.ChangeColumnValue.ID == "" {
		return nil, apperror.NewWriteRejected(fmt.Errorf("saving subitem %s: no item confirmed", subRecordID))
	}
	return resp.ChangeColumnValue, nil
}
