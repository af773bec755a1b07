package models

import "strings"

// ListID identifies one of the fixed task lists.
type ListID string

const (
	ListPersonal ListID = "list1"
	ListWork     ListID = "list2"
	ListShopping ListID = "list3"
	ListProjects ListID = "list4"
	ListBooks    ListID = "list5"
	ListMovies   ListID = "list6"
	ListGoals    ListID = "list7"
	ListMisc     ListID = "list8"
)

// allLists is the stable enumeration order used for display and encoding.
var allLists = []ListID{
	ListPersonal,
	ListWork,
	ListShopping,
	ListProjects,
	ListBooks,
	ListMovies,
	ListGoals,
	ListMisc,
}

var displayNames = map[ListID]string{
	ListPersonal: "Personal Tasks",
	ListWork:     "Work Tasks",
	ListShopping: "Shopping List",
	ListProjects: "Project Ideas",
	ListBooks:    "Books to Read",
	ListMovies:   "Movies to Watch",
	ListGoals:    "Goals",
	ListMisc:     "Miscellaneous",
}

var shortNames = map[string]ListID{
	"personal": ListPersonal,
	"work":     ListWork,
	"shopping": ListShopping,
	"project":  ListProjects,
	"projects": ListProjects,
	"books":    ListBooks,
	"movies":   ListMovies,
	"goals":    ListGoals,
	"misc":     ListMisc,
}

// AllLists returns every list identifier in display order.
func AllLists() []ListID {
	out := make([]ListID, len(allLists))
	copy(out, allLists)
	return out
}

// Valid reports whether id belongs to the fixed set.
func (id ListID) Valid() bool {
	_, ok := displayNames[id]
	return ok
}

// DisplayName returns the human-readable name, or the raw id when unknown.
func (id ListID) DisplayName() string {
	if name, ok := displayNames[id]; ok {
		return name
	}
	return string(id)
}

// ListByDisplayName looks a list up by its exact display name.
func ListByDisplayName(name string) (ListID, bool) {
	for _, id := range allLists {
		if displayNames[id] == name {
			return id, true
		}
	}
	return "", false
}

// ParseListID resolves user input to a list. It accepts the id ("list2"),
// the display name ("Work Tasks"), a short name ("work") or the 1-based
// position ("2"). Names are case-insensitive.
func ParseListID(s string) (ListID, bool) {
	s = strings.TrimSpace(s)
	if id := ListID(s); id.Valid() {
		return id, true
	}
	for _, id := range allLists {
		if strings.EqualFold(displayNames[id], s) {
			return id, true
		}
	}
	if id, ok := shortNames[strings.ToLower(s)]; ok {
		return id, true
	}
	if len(s) == 1 && s[0] >= '1' && s[0] <= '8' {
		return allLists[s[0]-'1'], true
	}
	return "", false
}

// TaskRecord is a single task. It has no identity beyond its position in
// the owning list.
type TaskRecord struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// NewTaskRecord returns a record with surrounding whitespace removed.
func NewTaskRecord(name, description string) TaskRecord {
	return TaskRecord{
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
	}
}

// Direction is the direction of an adjacent swap.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// SyncMode selects whether a sync covers every list or only the active one.
type SyncMode string

const (
	SyncAll    SyncMode = "all"
	SyncActive SyncMode = "active"
)

// Valid reports whether m is a known sync mode.
func (m SyncMode) Valid() bool {
	return m == SyncAll || m == SyncActive
}

// Format names a remote blob encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	switch f {
	case FormatText, FormatJSON, FormatYAML:
		return true
	}
	return false
}

// FormatForPath guesses the format from a file extension, defaulting to text.
func FormatForPath(path string) Format {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".json"):
		return FormatJSON
	case strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".yml"):
		return FormatYAML
	default:
		return FormatText
	}
}
