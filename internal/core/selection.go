package core

import (
	"sort"

	"github.com/valter-silva-au/tasklists/pkg/models"
)

// Selection is the set of checked task positions in one list. It is bound to
// the list and task count it was made for; Validate drops it as soon as that
// binding no longer holds.
type Selection struct {
	list    models.ListID
	count   int
	indices map[int]bool
}

// NewSelection returns an empty selection bound to list with count tasks.
func NewSelection(list models.ListID, count int) *Selection {
	return &Selection{list: list, count: count, indices: make(map[int]bool)}
}

// List returns the list the selection refers to.
func (sel *Selection) List() models.ListID { return sel.list }

// Select replaces the selection with indices. Out-of-range indices are
// rejected and leave the previous selection in place.
func (sel *Selection) Select(indices []int) error {
	next := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i < 0 || i >= sel.count {
			return &InvalidIndexError{List: sel.list, Index: i, Len: sel.count}
		}
		next[i] = true
	}
	sel.indices = next
	return nil
}

// Toggle flips index in or out of the selection.
func (sel *Selection) Toggle(index int) error {
	if index < 0 || index >= sel.count {
		return &InvalidIndexError{List: sel.list, Index: index, Len: sel.count}
	}
	if sel.indices[index] {
		delete(sel.indices, index)
	} else {
		sel.indices[index] = true
	}
	return nil
}

// Clear empties the selection.
func (sel *Selection) Clear() {
	sel.indices = make(map[int]bool)
}

// IsSelected reports whether index is checked.
func (sel *Selection) IsSelected(index int) bool {
	return sel.indices[index]
}

// Indices returns the selected positions in ascending order.
func (sel *Selection) Indices() []int {
	out := make([]int, 0, len(sel.indices))
	for i := range sel.indices {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Len returns the number of selected tasks.
func (sel *Selection) Len() int {
	return len(sel.indices)
}

// Validate rebinds the selection to (list, count), clearing it if either
// differs from the current binding.
func (sel *Selection) Validate(list models.ListID, count int) {
	if list != sel.list || count != sel.count {
		sel.list = list
		sel.count = count
		sel.Clear()
	}
}

// grow records that count tasks now exist without touching existing
// indices. Appending never shifts earlier positions.
func (sel *Selection) grow(count int) {
	if count >= sel.count {
		sel.count = count
	}
}

// swap exchanges the selection state of positions a and b so the selection
// follows the tasks after an adjacent swap.
func (sel *Selection) swap(a, b int) {
	sa, sb := sel.indices[a], sel.indices[b]
	delete(sel.indices, a)
	delete(sel.indices, b)
	if sa {
		sel.indices[b] = true
	}
	if sb {
		sel.indices[a] = true
	}
}
