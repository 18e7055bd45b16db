package timeline

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStaleView is returned by SetView when the stored state comes from a
// later load than the one being written.
var ErrStaleView = errors.New("a later view state is already stored")

// Store holds per-view state and pending selections. Selections are keyed
// by view session and subitem id; setting one never touches another.
type Store interface {
	// GetView returns the view's last loaded state, or nil if none.
	GetView(ctx context.Context, viewID string) (*ViewState, error)

	// SetView replaces the view's loaded state unless the stored state was
	// requested later, in which case it returns ErrStaleView. Selections
	// are untouched.
	SetView(ctx context.Context, viewID string, state ViewState) error

	// GetSelection returns the stored selection for a subitem, or nil.
	GetSelection(ctx context.Context, viewID, subID string) (*Selection, error)

	// SetSelection replaces the stored selection for a subitem.
	SetSelection(ctx context.Context, viewID, subID string, sel Selection) error

	// Selections returns every stored selection of the view.
	Selections(ctx context.Context, viewID string) (map[string]Selection, error)
}

// memoryView is one view session's entry in the memory store.
type memoryView struct {
	state      *ViewState
	selections map[string]Selection
	touched    time.Time
}

// memoryStore implements Store in process memory. Idle views expire after
// ttl; expired entries are dropped lazily.
type memoryStore struct {
	mu    sync.Mutex
	views map[string]*memoryView
	ttl   time.Duration
	now   func() time.Time
}

// NewMemoryStore creates a Store that lives as long as the process.
func NewMemoryStore(ttl time.Duration) Store {
	return &memoryStore{
		views: make(map[string]*memoryView),
		ttl:   ttl,
		now:   time.Now,
	}
}

// view returns the live entry for viewID, creating it when create is set.
// Caller holds mu.
func (s *memoryStore) view(viewID string, create bool) *memoryView {
	now := s.now()
	v, ok := s.views[viewID]
	if ok && s.ttl > 0 && now.Sub(v.touched) > s.ttl {
		delete(s.views, viewID)
		ok = false
	}
	if !ok {
		if !create {
			return nil
		}
		v = &memoryView{selections: make(map[string]Selection)}
		s.views[viewID] = v
	}
	v.touched = now
	return v
}

// sweep drops every expired view. Caller holds mu.
func (s *memoryStore) sweep() {
	if s.ttl <= 0 {
		return
	}
	now := s.now()
	for id, v := range s.views {
		if now.Sub(v.touched) > s.ttl {
			delete(s.views, id)
		}
	}
}

func (s *memoryStore) GetView(_ context.Context, viewID string) (*ViewState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.view(viewID, false)
	if v == nil || v.state == nil {
		return nil, nil
	}
	state := *v.state
	return &state, nil
}

func (s *memoryStore) SetView(_ context.Context, viewID string, state ViewState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()
	v := s.view(viewID, true)
	if !state.supersedes(v.state) {
		return ErrStaleView
	}
	v.state = &state
	return nil
}

func (s *memoryStore) GetSelection(_ context.Context, viewID, subID string) (*Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.view(viewID, false)
	if v == nil {
		return nil, nil
	}
	sel, ok := v.selections[subID]
	if !ok {
		return nil, nil
	}
	return &sel, nil
}

func (s *memoryStore) SetSelection(_ context.Context, viewID, subID string, sel Selection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.view(viewID, true)
	v.selections[subID] = sel
	return nil
}

func (s *memoryStore) Selections(_ context.Context, viewID string) (map[string]Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Selection)
	v := s.view(viewID, false)
	if v == nil {
		return out, nil
	}
	for id, sel := range v.selections {
		out[id] = sel
	}
	return out, nil
}
