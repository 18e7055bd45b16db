package timeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T, ttl time.Duration) (Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisStore(rdb, ttl), mr
}

func storeBackends(t *testing.T) map[string]Store {
	redisStore, _ := newRedisStore(t, time.Hour)
	return map[string]Store{
		"memory": NewMemoryStore(time.Hour),
		"redis":  redisStore,
	}
}

func selection(t *testing.T, from, to string) Selection {
	s := mustDate(t, from, time.UTC)
	e := mustDate(t, to, time.UTC)
	return Selection{Start: &s, End: &e}
}

func TestStore_SelectionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			got, err := store.GetSelection(ctx, "view-1", "111")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != nil {
				t.Fatalf("expected no selection, got %+v", got)
			}

			if err := store.SetSelection(ctx, "view-1", "111", selection(t, "2024-01-10", "2024-01-15")); err != nil {
				t.Fatal(err)
			}
			if err := store.SetSelection(ctx, "view-1", "222", selection(t, "2024-01-03", "2024-01-04")); err != nil {
				t.Fatal(err)
			}
			// Replace 111 only.
			if err := store.SetSelection(ctx, "view-1", "111", selection(t, "2024-01-20", "2024-01-21")); err != nil {
				t.Fatal(err)
			}

			s111, _ := store.GetSelection(ctx, "view-1", "111")
			s222, _ := store.GetSelection(ctx, "view-1", "222")
			if s111 == nil || FormatDate(*s111.Start) != "2024-01-20" {
				t.Errorf("111 should hold the replacement, got %+v", s111)
			}
			if s222 == nil || FormatDate(*s222.Start) != "2024-01-03" || FormatDate(*s222.End) != "2024-01-04" {
				t.Errorf("222 must be untouched, got %+v", s222)
			}

			other, _ := store.GetSelection(ctx, "view-2", "111")
			if other != nil {
				t.Error("selections must not leak across view sessions")
			}

			all, err := store.Selections(ctx, "view-1")
			if err != nil {
				t.Fatal(err)
			}
			if len(all) != 2 {
				t.Errorf("expected 2 selections, got %d", len(all))
			}
		})
	}
}

func TestStore_ViewReplacementKeepsSelections(t *testing.T) {
	ctx := context.Background()
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			if v, _ := store.GetView(ctx, "view-1"); v != nil {
				t.Fatalf("expected no view, got %+v", v)
			}

			first := ViewState{ItemID: "42", Timezone: "UTC", SubRecords: []SubRecord{{ID: "111", Name: "S1"}}}
			if err := store.SetView(ctx, "view-1", first); err != nil {
				t.Fatal(err)
			}
			if err := store.SetSelection(ctx, "view-1", "111", selection(t, "2024-01-10", "2024-01-15")); err != nil {
				t.Fatal(err)
			}

			second := ViewState{ItemID: "42", Timezone: "UTC", SubRecords: []SubRecord{{ID: "111", Name: "S1 renamed"}}}
			if err := store.SetView(ctx, "view-1", second); err != nil {
				t.Fatal(err)
			}

			got, err := store.GetView(ctx, "view-1")
			if err != nil {
				t.Fatal(err)
			}
			if got == nil || got.SubRecords[0].Name != "S1 renamed" {
				t.Errorf("expected replaced view, got %+v", got)
			}
			if sel, _ := store.GetSelection(ctx, "view-1", "111"); sel == nil {
				t.Error("reload must keep selections")
			}
		})
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(time.Hour).(*memoryStore)
	store.now = func() time.Time { return now }

	if err := store.SetSelection(ctx, "view-1", "111", selection(t, "2024-01-10", "2024-01-15")); err != nil {
		t.Fatal(err)
	}

	now = now.Add(30 * time.Minute)
	if sel, _ := store.GetSelection(ctx, "view-1", "111"); sel == nil {
		t.Fatal("selection should survive within the TTL")
	}

	// The read above refreshed the view.
	now = now.Add(61 * time.Minute)
	if sel, _ := store.GetSelection(ctx, "view-1", "111"); sel != nil {
		t.Error("selection should expire after an idle TTL")
	}
}

func TestMemoryStore_SweepDropsIdleViews(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(time.Minute).(*memoryStore)
	store.now = func() time.Time { return now }

	_ = store.SetView(ctx, "old", ViewState{ItemID: "1"})
	now = now.Add(2 * time.Minute)
	_ = store.SetView(ctx, "new", ViewState{ItemID: "2"})

	store.mu.Lock()
	defer store.mu.Unlock()
	if _, ok := store.views["old"]; ok {
		t.Error("expected idle view to be swept")
	}
	if _, ok := store.views["new"]; !ok {
		t.Error("expected fresh view to remain")
	}
}

func TestRedisStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Minute)

	if err := store.SetView(ctx, "view-1", ViewState{ItemID: "42"}); err != nil {
		t.Fatal(err)
	}
	if err := store.SetSelection(ctx, "view-1", "111", selection(t, "2024-01-10", "2024-01-15")); err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL(selectionKeyPrefix + "view-1"); ttl != time.Minute {
		t.Errorf("expected selection TTL of 1m, got %v", ttl)
	}

	mr.FastForward(2 * time.Minute)

	if v, _ := store.GetView(ctx, "view-1"); v != nil {
		t.Error("view should have expired")
	}
	if sel, _ := store.GetSelection(ctx, "view-1", "111"); sel != nil {
		t.Error("selection should have expired")
	}
}

func TestStore_SetViewRefusesEarlierLoad(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			later := ViewState{ItemID: "43", RequestedAt: base.Add(time.Second)}
			earlier := ViewState{ItemID: "42", RequestedAt: base}

			if err := store.SetView(ctx, "view-1", later); err != nil {
				t.Fatal(err)
			}
			if err := store.SetView(ctx, "view-1", earlier); !errors.Is(err, ErrStaleView) {
				t.Fatalf("expected ErrStaleView, got %v", err)
			}
			got, _ := store.GetView(ctx, "view-1")
			if got == nil || got.ItemID != "43" {
				t.Errorf("the later load must be kept, got %+v", got)
			}

			latest := ViewState{ItemID: "44", RequestedAt: base.Add(2 * time.Second)}
			if err := store.SetView(ctx, "view-1", latest); err != nil {
				t.Fatalf("a later load should replace the view: %v", err)
			}
			got, _ = store.GetView(ctx, "view-1")
			if got == nil || got.ItemID != "44" {
				t.Errorf("expected item 44, got %+v", got)
			}
		})
	}
}
