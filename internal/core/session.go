package core

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/valter-silva-au/tasklists/pkg/models"
)

// Session is one user's working state: a store, the list being edited, the
// tasks checked in that list, the remote credentials and the sync guard.
// Sessions are never shared between users.
//
// Selection policy: changing the active list, deleting, moving or loading
// clears the selection; an adjacent swap carries the selection with the
// swapped tasks; adding to the active list keeps it.
type Session struct {
	store  *Store
	syncer *Syncer

	mu     sync.Mutex
	active models.ListID
	sel    *Selection
	creds  models.Credentials
	mode   models.SyncMode

	syncing atomic.Bool
}

// SessionOptions holds the initial session settings.
type SessionOptions struct {
	ActiveList  models.ListID
	Mode        models.SyncMode
	Credentials models.Credentials
}

// NewSession creates a session over store. syncer may be nil when the
// session never talks to a remote.
func NewSession(store *Store, syncer *Syncer, opts SessionOptions) *Session {
	active := opts.ActiveList
	if !active.Valid() {
		active = models.ListPersonal
	}
	mode := opts.Mode
	if !mode.Valid() {
		mode = models.SyncAll
	}
	return &Session{
		store:  store,
		syncer: syncer,
		active: active,
		sel:    NewSelection(active, store.Snapshot().Len(active)),
		creds:  opts.Credentials,
		mode:   mode,
	}
}

// Store returns the underlying store.
func (s *Session) Store() *Store { return s.store }

// Snapshot returns the current snapshot.
func (s *Session) Snapshot() Snapshot { return s.store.Snapshot() }

// ActiveList returns the list targeted by selection-based operations.
func (s *Session) ActiveList() models.ListID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SetActiveList switches the working list and clears the selection.
func (s *Session) SetActiveList(list models.ListID) error {
	if err := checkList(list); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if list != s.active {
		s.active = list
		s.sel = NewSelection(list, s.store.Snapshot().Len(list))
	}
	return nil
}

// Mode returns the default sync mode.
func (s *Session) Mode() models.SyncMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode changes the default sync mode.
func (s *Session) SetMode(mode models.SyncMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mode.Valid() {
		s.mode = mode
	}
}

// Credentials returns the remote credentials.
func (s *Session) Credentials() models.Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds
}

// SetCredentials replaces the remote credentials.
func (s *Session) SetCredentials(creds models.Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
}

// Syncer returns the session's syncer, or nil.
func (s *Session) Syncer() *Syncer { return s.syncer }

// SetSyncer replaces the syncer, typically to change the blob format.
func (s *Session) SetSyncer(syncer *Syncer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncer = syncer
}

// selection returns the selection revalidated against the current store.
// Callers hold s.mu.
func (s *Session) selection() *Selection {
	s.sel.Validate(s.active, s.store.Snapshot().Len(s.active))
	return s.sel
}

// Selected returns the checked indices of the active list, ascending.
func (s *Session) Selected() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection().Indices()
}

// IsSelected reports whether index of the active list is checked.
func (s *Session) IsSelected(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection().IsSelected(index)
}

// Select replaces the selection of the active list.
func (s *Session) Select(indices []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection().Select(indices)
}

// ToggleSelected flips one index of the active list.
func (s *Session) ToggleSelected(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection().Toggle(index)
}

// ClearSelection unchecks everything.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.Clear()
}

// AddTask appends a task to list.
func (s *Session) AddTask(list models.ListID, name, description string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel := s.selection()
	snap, err := s.store.AddTask(list, name, description)
	if err == nil && list == s.active {
		sel.grow(snap.Len(list))
	}
	return snap, err
}

// EditTask replaces the task at index of list.
func (s *Session) EditTask(list models.ListID, index int, name, description string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.EditTask(list, index, name, description)
}

// EditSelected edits the single selected task of the active list.
func (s *Session) EditSelected(name, description string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	selected := s.selection().Indices()
	if len(selected) != 1 {
		return s.store.Snapshot(), ErrSingleSelectionRequired
	}
	return s.store.EditTask(s.active, selected[0], name, description)
}

// DeleteTasks removes indices from list.
func (s *Session) DeleteTasks(list models.ListID, indices []int) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel := s.selection()
	snap, err := s.store.DeleteTasks(list, indices)
	if err == nil && list == s.active {
		sel.Clear()
		sel.Validate(list, snap.Len(list))
	}
	return snap, err
}

// DeleteSelected removes the selected tasks of the active list.
func (s *Session) DeleteSelected() (Snapshot, error) {
	s.mu.Lock()
	indices := s.selection().Indices()
	active := s.active
	s.mu.Unlock()
	return s.DeleteTasks(active, indices)
}

// MoveTasks moves indices of source to the end of target.
func (s *Session) MoveTasks(source, target models.ListID, indices []int) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel := s.selection()
	snap, err := s.store.MoveTasks(source, target, indices)
	if err != nil || source == target {
		return snap, err
	}
	switch s.active {
	case source:
		sel.Clear()
		sel.Validate(source, snap.Len(source))
	case target:
		sel.grow(snap.Len(target))
	}
	return snap, nil
}

// MoveSelected moves the selected tasks of the active list to target.
func (s *Session) MoveSelected(target models.ListID) (Snapshot, error) {
	s.mu.Lock()
	indices := s.selection().Indices()
	active := s.active
	s.mu.Unlock()
	return s.MoveTasks(active, target, indices)
}

// SwapAdjacent moves the task at index one step in dir. When list is the
// active list the selection follows the moved tasks.
func (s *Session) SwapAdjacent(list models.ListID, index int, dir models.Direction) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel := s.selection()
	prev := s.store.Snapshot()
	snap, err := s.store.SwapAdjacent(list, index, dir)
	if err != nil || snap.Same(prev) || list != s.active {
		return snap, err
	}
	other := index + 1
	if dir == models.Up {
		other = index - 1
	}
	sel.swap(index, other)
	return snap, nil
}

// ReplaceAll installs lists as the whole store and clears the selection.
// Lists missing from the mapping become empty.
func (s *Session) ReplaceAll(lists map[models.ListID][]models.TaskRecord) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.store.ReplaceAll(lists)
	if err != nil {
		return snap, err
	}
	s.sel = NewSelection(s.active, snap.Len(s.active))
	return snap, nil
}

// Save writes the store to the remote file. Only one save or load runs at a
// time per session; a concurrent call fails with ErrSyncInProgress.
func (s *Session) Save(ctx context.Context, mode models.SyncMode) error {
	if !s.syncing.CompareAndSwap(false, true) {
		return ErrSyncInProgress
	}
	defer s.syncing.Store(false)

	syncer, creds, active, mode := s.syncParams(mode)
	if syncer == nil {
		return ErrMissingCredentials
	}
	return syncer.Save(ctx, creds, s.store.Snapshot(), mode, active)
}

// Load replaces the store (or the active list) with the remote file and
// clears the selection. The store is untouched on failure.
func (s *Session) Load(ctx context.Context, mode models.SyncMode) (Snapshot, error) {
	if !s.syncing.CompareAndSwap(false, true) {
		return s.store.Snapshot(), ErrSyncInProgress
	}
	defer s.syncing.Store(false)

	syncer, creds, active, mode := s.syncParams(mode)
	if syncer == nil {
		return s.store.Snapshot(), ErrMissingCredentials
	}

	loaded, err := syncer.Load(ctx, creds, s.store.Snapshot(), mode, active)
	if err != nil {
		return s.store.Snapshot(), err
	}

	// Install only what was loaded so edits to other lists made while the
	// request was in flight survive an active-list load.
	snap, err := s.store.Apply(func(cur Snapshot) (Snapshot, error) {
		if mode == models.SyncActive {
			return cur.ReplaceList(active, loaded.Tasks(active))
		}
		return cur.ReplaceAll(loaded.Lists()), nil
	})
	if err != nil {
		return snap, err
	}

	s.mu.Lock()
	s.sel = NewSelection(s.active, snap.Len(s.active))
	s.mu.Unlock()
	return snap, nil
}

// Syncing reports whether a save or load is running.
func (s *Session) Syncing() bool {
	return s.syncing.Load()
}

func (s *Session) syncParams(mode models.SyncMode) (*Syncer, models.Credentials, models.ListID, models.SyncMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !mode.Valid() {
		mode = s.mode
	}
	return s.syncer, s.creds, s.active, mode
}
