package core

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/valter-silva-au/tasklists/pkg/models"
)

// snapshotGen numbers every snapshot built so that a no-op can be told apart
// from a mutation without comparing contents.
var snapshotGen atomic.Uint64

// Snapshot is an immutable view of every task list at one instant. Every
// mutation returns a fresh Snapshot; the receiver is never modified. Lists
// untouched by a mutation share their backing arrays with the previous
// snapshot, so slices held by a Snapshot must never be written to.
type Snapshot struct {
	gen   uint64
	lists map[models.ListID][]models.TaskRecord
}

// NewSnapshot returns a snapshot in which every list exists and is empty.
func NewSnapshot() Snapshot {
	m := make(map[models.ListID][]models.TaskRecord, len(models.AllLists()))
	for _, id := range models.AllLists() {
		m[id] = nil
	}
	return buildSnapshot(m)
}

func buildSnapshot(m map[models.ListID][]models.TaskRecord) Snapshot {
	return Snapshot{gen: snapshotGen.Add(1), lists: m}
}

// derive returns a shallow copy of the list map covering the full list set.
func (s Snapshot) derive() map[models.ListID][]models.TaskRecord {
	m := make(map[models.ListID][]models.TaskRecord, len(models.AllLists()))
	for _, id := range models.AllLists() {
		m[id] = s.lists[id]
	}
	return m
}

// Same reports whether other is the very same snapshot (not merely equal).
func (s Snapshot) Same(other Snapshot) bool {
	return s.gen == other.gen
}

// Tasks returns a copy of the tasks in list, in display order.
func (s Snapshot) Tasks(list models.ListID) []models.TaskRecord {
	src := s.lists[list]
	out := make([]models.TaskRecord, len(src))
	copy(out, src)
	return out
}

// Len returns the number of tasks in list.
func (s Snapshot) Len(list models.ListID) int {
	return len(s.lists[list])
}

// Total returns the number of tasks across all lists.
func (s Snapshot) Total() int {
	n := 0
	for _, tasks := range s.lists {
		n += len(tasks)
	}
	return n
}

// Lists returns a deep copy of the list map, with an entry for every list.
func (s Snapshot) Lists() map[models.ListID][]models.TaskRecord {
	out := make(map[models.ListID][]models.TaskRecord, len(models.AllLists()))
	for _, id := range models.AllLists() {
		out[id] = s.Tasks(id)
	}
	return out
}

// Equal reports whether both snapshots hold the same tasks in the same order.
func (s Snapshot) Equal(other Snapshot) bool {
	for _, id := range models.AllLists() {
		a, b := s.lists[id], other.lists[id]
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
	}
	return true
}

func checkList(list models.ListID) error {
	if !list.Valid() {
		return &UnknownListError{List: list}
	}
	return nil
}

func (s Snapshot) checkIndex(list models.ListID, index int) error {
	if n := s.Len(list); index < 0 || index >= n {
		return &InvalidIndexError{List: list, Index: index, Len: n}
	}
	return nil
}

// sortedIndices validates indices against list and returns them ascending
// with duplicates removed.
func (s Snapshot) sortedIndices(list models.ListID, indices []int) ([]int, error) {
	seen := make(map[int]bool, len(indices))
	out := make([]int, 0, len(indices))
	for _, i := range indices {
		if err := s.checkIndex(list, i); err != nil {
			return nil, err
		}
		if !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out, nil
}

// withoutIndices returns a new slice without the given ascending indices.
// Removal walks the indices from the highest down so that earlier positions
// are still valid when they are reached.
func withoutIndices(tasks []models.TaskRecord, ascending []int) []models.TaskRecord {
	out := make([]models.TaskRecord, len(tasks))
	copy(out, tasks)
	for k := len(ascending) - 1; k >= 0; k-- {
		i := ascending[k]
		out = append(out[:i], out[i+1:]...)
	}
	return out
}

// AddTask appends a task to list. A name that is blank after trimming leaves
// the snapshot unchanged.
func (s Snapshot) AddTask(list models.ListID, name, description string) (Snapshot, error) {
	if err := checkList(list); err != nil {
		return s, err
	}
	rec := models.NewTaskRecord(name, description)
	if rec.Name == "" {
		return s, nil
	}

	m := s.derive()
	cur := m[list]
	next := make([]models.TaskRecord, len(cur), len(cur)+1)
	copy(next, cur)
	m[list] = append(next, rec)
	return buildSnapshot(m), nil
}

// EditTask replaces the task at index in place.
func (s Snapshot) EditTask(list models.ListID, index int, name, description string) (Snapshot, error) {
	if err := checkList(list); err != nil {
		return s, err
	}
	if err := s.checkIndex(list, index); err != nil {
		return s, err
	}

	m := s.derive()
	next := s.Tasks(list)
	next[index] = models.NewTaskRecord(name, description)
	m[list] = next
	return buildSnapshot(m), nil
}

// DeleteTasks removes every task whose index is in indices. All indices are
// validated before anything is removed.
func (s Snapshot) DeleteTasks(list models.ListID, indices []int) (Snapshot, error) {
	if err := checkList(list); err != nil {
		return s, err
	}
	sorted, err := s.sortedIndices(list, indices)
	if err != nil {
		return s, err
	}
	if len(sorted) == 0 {
		return s, nil
	}

	m := s.derive()
	m[list] = withoutIndices(m[list], sorted)
	return buildSnapshot(m), nil
}

// MoveTasks appends the selected tasks of source, in their original relative
// order, to the end of target and removes them from source. Moving within a
// single list is a no-op.
func (s Snapshot) MoveTasks(source, target models.ListID, indices []int) (Snapshot, error) {
	if err := checkList(source); err != nil {
		return s, err
	}
	if err := checkList(target); err != nil {
		return s, err
	}
	sorted, err := s.sortedIndices(source, indices)
	if err != nil {
		return s, err
	}
	if source == target || len(sorted) == 0 {
		return s, nil
	}

	m := s.derive()
	src := m[source]
	dst := make([]models.TaskRecord, len(m[target]), len(m[target])+len(sorted))
	copy(dst, m[target])
	for _, i := range sorted {
		dst = append(dst, src[i])
	}
	m[target] = dst
	m[source] = withoutIndices(src, sorted)
	return buildSnapshot(m), nil
}

// SwapAdjacent exchanges the task at index with its neighbour in direction.
// Swapping past either end of the list is a no-op.
func (s Snapshot) SwapAdjacent(list models.ListID, index int, dir models.Direction) (Snapshot, error) {
	if err := checkList(list); err != nil {
		return s, err
	}
	if err := s.checkIndex(list, index); err != nil {
		return s, err
	}

	var other int
	switch dir {
	case models.Up:
		other = index - 1
	case models.Down:
		other = index + 1
	default:
		return s, fmt.Errorf("swapping task: invalid direction %q", dir)
	}
	if other < 0 || other >= s.Len(list) {
		return s, nil
	}

	m := s.derive()
	next := s.Tasks(list)
	next[index], next[other] = next[other], next[index]
	m[list] = next
	return buildSnapshot(m), nil
}

// ReplaceList replaces one list wholesale.
func (s Snapshot) ReplaceList(list models.ListID, tasks []models.TaskRecord) (Snapshot, error) {
	if err := checkList(list); err != nil {
		return s, err
	}
	m := s.derive()
	next := make([]models.TaskRecord, len(tasks))
	copy(next, tasks)
	m[list] = next
	return buildSnapshot(m), nil
}

// ReplaceAll replaces every list. Lists missing from mapping become empty and
// keys outside the fixed set are ignored.
func (s Snapshot) ReplaceAll(mapping map[models.ListID][]models.TaskRecord) Snapshot {
	m := make(map[models.ListID][]models.TaskRecord, len(models.AllLists()))
	for _, id := range models.AllLists() {
		next := make([]models.TaskRecord, len(mapping[id]))
		copy(next, mapping[id])
		m[id] = next
	}
	return buildSnapshot(m)
}

// Store holds the current snapshot for one session and tells subscribers
// about every change. A Store must not be shared between sessions.
type Store struct {
	mu      sync.RWMutex
	current Snapshot
	subs    map[int]func(Snapshot)
	nextSub int
}

// NewStore returns a store whose lists are all empty.
func NewStore() *Store {
	return &Store{
		current: NewSnapshot(),
		subs:    make(map[int]func(Snapshot)),
	}
}

// Snapshot returns the current snapshot.
func (st *Store) Snapshot() Snapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.current
}

// Subscribe registers fn to be called with the new snapshot after every
// mutation that changed state. The returned function removes the
// subscription.
func (st *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	st.mu.Lock()
	defer st.mu.Unlock()
	id := st.nextSub
	st.nextSub++
	st.subs[id] = fn
	return func() {
		st.mu.Lock()
		defer st.mu.Unlock()
		delete(st.subs, id)
	}
}

// Apply runs op against the current snapshot and installs the result. On
// error the store is left untouched. Subscribers run after the lock is
// released, in no particular order.
func (st *Store) Apply(op func(Snapshot) (Snapshot, error)) (Snapshot, error) {
	st.mu.Lock()
	prev := st.current
	next, err := op(prev)
	if err != nil {
		st.mu.Unlock()
		return prev, err
	}
	if next.Same(prev) {
		st.mu.Unlock()
		return prev, nil
	}
	st.current = next
	subs := make([]func(Snapshot), 0, len(st.subs))
	for _, fn := range st.subs {
		subs = append(subs, fn)
	}
	st.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return next, nil
}

func (st *Store) AddTask(list models.ListID, name, description string) (Snapshot, error) {
	return st.Apply(func(s Snapshot) (Snapshot, error) {
		return s.AddTask(list, name, description)
	})
}

func (st *Store) EditTask(list models.ListID, index int, name, description string) (Snapshot, error) {
	return st.Apply(func(s Snapshot) (Snapshot, error) {
		return s.EditTask(list, index, name, description)
	})
}

func (st *Store) DeleteTasks(list models.ListID, indices []int) (Snapshot, error) {
	return st.Apply(func(s Snapshot) (Snapshot, error) {
		return s.DeleteTasks(list, indices)
	})
}

func (st *Store) MoveTasks(source, target models.ListID, indices []int) (Snapshot, error) {
	return st.Apply(func(s Snapshot) (Snapshot, error) {
		return s.MoveTasks(source, target, indices)
	})
}

func (st *Store) SwapAdjacent(list models.ListID, index int, dir models.Direction) (Snapshot, error) {
	return st.Apply(func(s Snapshot) (Snapshot, error) {
		return s.SwapAdjacent(list, index, dir)
	})
}

func (st *Store) ReplaceList(list models.ListID, tasks []models.TaskRecord) (Snapshot, error) {
	return st.Apply(func(s Snapshot) (Snapshot, error) {
		return s.ReplaceList(list, tasks)
	})
}

func (st *Store) ReplaceAll(mapping map[models.ListID][]models.TaskRecord) (Snapshot, error) {
	return st.Apply(func(s Snapshot) (Snapshot, error) {
		return s.ReplaceAll(mapping), nil
	})
}
