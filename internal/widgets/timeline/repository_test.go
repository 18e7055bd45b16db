package timeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/keyxmakerx/subtimeline/internal/apperror"
	"github.com/keyxmakerx/subtimeline/internal/monday"
)

// fakeQuerier records calls and answers with a canned data payload.
type fakeQuerier struct {
	data  string
	err   error
	calls []querierCall
}

type querierCall struct {
	op   monday.Operation
	vars map[string]any
}

func (f *fakeQuerier) Do(_ context.Context, op monday.Operation, vars map[string]any, out any) error {
	f.calls = append(f.calls, querierCall{op: op, vars: vars})
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.data), out)
}

var testColumns = Columns{
	ParentColumnID:  "timerange_mkzc2yy4",
	SubitemColumnID: "timerange_mkzck13j",
}

const loadPayload = `{
  "items": [{
    "id": "42",
    "column_values": [
      {"id": "status", "value": "{\"index\":1}"},
      {"id": "timerange_mkzc2yy4", "value": "{\"from\":\"2024-01-01\",\"to\":\"2024-01-31\"}"}
    ],
    "subitems": [
      {"id": "111", "name": "<b>S1</b>", "column_values": [{"id": "timerange_mkzck13j", "value": null}]},
      {"id": "222", "name": "S2", "column_values": [{"id": "timerange_mkzck13j", "value": "{\"from\":\"2024-01-03\",\"to\":\"2024-01-04\"}"}]}
    ]
  }]
}`

func TestLoadParentAndSubitems(t *testing.T) {
	q := &fakeQuerier{data: loadPayload}
	repo := NewRepository(q, testColumns)

	snap, err := repo.LoadParentAndSubitems(context.Background(), "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(q.calls) != 1 {
		t.Fatalf("expected a single read, got %d", len(q.calls))
	}
	if q.calls[0].op.Name != "LoadParentAndSubitems" {
		t.Errorf("unexpected operation %q", q.calls[0].op.Name)
	}
	ids, ok := q.calls[0].vars["itemIds"].([]string)
	if !ok || len(ids) != 1 || ids[0] != "42" {
		t.Errorf("expected itemIds [42], got %#v", q.calls[0].vars["itemIds"])
	}

	if snap.ParentValue == nil || *snap.ParentValue != `{"from":"2024-01-01","to":"2024-01-31"}` {
		t.Errorf("unexpected parent value %v", snap.ParentValue)
	}
	if len(snap.SubRecords) != 2 {
		t.Fatalf("expected 2 subitems, got %d", len(snap.SubRecords))
	}
	if snap.SubRecords[0].ID != "111" || snap.SubRecords[1].ID != "222" {
		t.Error("server order must be preserved")
	}
	if snap.SubRecords[0].Name != "S1" {
		t.Errorf("expected markup stripped from name, got %q", snap.SubRecords[0].Name)
	}
}

func TestLoadParentAndSubitems_EmptyParentValue(t *testing.T) {
	q := &fakeQuerier{data: `{"items":[{"id":"42","column_values":[{"id":"timerange_mkzc2yy4","value":null}],"subitems":[]}]}`}
	repo := NewRepository(q, testColumns)

	snap, err := repo.LoadParentAndSubitems(context.Background(), "42")
	if err != nil {
		t.Fatalf("an empty column is data, not a load error: %v", err)
	}
	if snap.ParentValue != nil {
		t.Errorf("expected nil parent value, got %q", *snap.ParentValue)
	}
}

func TestLoadParentAndSubitems_SchemaMismatch(t *testing.T) {
	q := &fakeQuerier{data: `{"items":[{"id":"42","column_values":[{"id":"date4","value":null}],"subitems":[]}]}`}
	repo := NewRepository(q, testColumns)

	_, err := repo.LoadParentAndSubitems(context.Background(), "42")
	if !apperror.IsType(err, apperror.TypeSchemaMismatch) {
		t.Fatalf("expected schema_mismatch, got %v", err)
	}
	if !apperror.IsBlocking(err) {
		t.Error("schema mismatch must block")
	}
}

func TestLoadParentAndSubitems_NotFound(t *testing.T) {
	repo := NewRepository(&fakeQuerier{data: `{"items":[]}`}, testColumns)

	_, err := repo.LoadParentAndSubitems(context.Background(), "404")
	if !apperror.IsType(err, apperror.TypeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestLoadParentAndSubitems_Upstream(t *testing.T) {
	repo := NewRepository(&fakeQuerier{err: errors.New("connection reset")}, testColumns)

	_, err := repo.LoadParentAndSubitems(context.Background(), "42")
	if !apperror.IsType(err, apperror.TypeUpstream) {
		t.Fatalf("expected upstream_error, got %v", err)
	}
}

func TestSaveSubitemTimeline(t *testing.T) {
	q := &fakeQuerier{data: `{"change_column_value":{"id":"111"}}`}
	repo := NewRepository(q, testColumns)

	value := `{"from":"2024-01-10","to":"2024-01-15"}`
	conf, err := repo.SaveSubitemTimeline(context.Background(), "111", value)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conf.ID != "111" {
		t.Errorf("expected confirmation for 111, got %q", conf.ID)
	}

	call := q.calls[0]
	if call.op.Name != "SaveSubitemTimeline" {
		t.Errorf("unexpected operation %q", call.op.Name)
	}
	want := map[string]any{
		"itemId":   "111",
		"columnId": "timerange_mkzck13j",
		"value":    value,
	}
	for k, v := range want {
		if call.vars[k] != v {
			t.Errorf("variable %s: got %v, want %v", k, call.vars[k], v)
		}
	}
	if _, ok := call.vars["boardId"]; ok {
		t.Error("boardId must not be sent without a configured board")
	}
}

func TestSaveSubitemTimeline_BoardScoped(t *testing.T) {
	q := &fakeQuerier{data: `{"change_column_value":{"id":"111"}}`}
	cols := testColumns
	cols.SubitemBoardID = "987"
	repo := NewRepository(q, cols)

	if _, err := repo.SaveSubitemTimeline(context.Background(), "111", `{"from":"2024-01-10","to":"2024-01-15"}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	call := q.calls[0]
	if call.op.Name != "SaveSubitemTimelineOnBoard" {
		t.Errorf("unexpected operation %q", call.op.Name)
	}
	if call.vars["boardId"] != "987" {
		t.Errorf("expected boardId 987, got %v", call.vars["boardId"])
	}
}

func TestSaveSubitemTimeline_Rejected(t *testing.T) {
	tests := []struct {
		name string
		q    *fakeQuerier
	}{
		{"api error", &fakeQuerier{err: &monday.APIError{Operation: "SaveSubitemTimeline", StatusCode: 200, Messages: []string{"invalid value"}}}},
		{"no confirmation", &fakeQuerier{data: `{"change_column_value":null}`}},
		{"empty id", &fakeQuerier{data: `{"change_column_value":{"id":""}}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewRepository(tt.q, testColumns)
			_, err := repo.SaveSubitemTimeline(context.Background(), "111", `{"from":"2024-01-10","to":"2024-01-15"}`)
			if !apperror.IsType(err, apperror.TypeWriteRejected) {
				t.Fatalf("expected write_rejected, got %v", err)
			}
			if len(tt.q.calls) != 1 {
				t.Errorf("expected exactly one attempt, got %d", len(tt.q.calls))
			}
		})
	}
}
