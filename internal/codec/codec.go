// Package codec converts task lists to and from the blob formats stored in
// the remote repository: an indented plain-text layout, a versioned JSON
// document and its YAML rendering.
package codec

import (
	"fmt"

	"github.com/valter-silva-au/tasklists/pkg/models"
)

// CurrentVersion is the schema version written by the structured codecs.
const CurrentVersion = 1

// Document is the result of decoding a blob.
type Document struct {
	// Lists holds one entry per list found in the blob. A list present in
	// the blob with no tasks maps to an empty, non-nil slice.
	Lists map[models.ListID][]models.TaskRecord

	// Dropped counts lines or entries that were discarded because they
	// referred to a list this program does not know.
	Dropped int
}

// Codec encodes and decodes task lists for one blob format.
type Codec interface {
	Format() models.Format
	// Encode renders every list in the fixed enumeration order.
	Encode(lists map[models.ListID][]models.TaskRecord) ([]byte, error)
	// EncodeList renders a single list.
	EncodeList(list models.ListID, tasks []models.TaskRecord) ([]byte, error)
	Decode(data []byte) (Document, error)
}

// UnsupportedVersionError is returned for documents written by a newer
// schema than this program understands.
type UnsupportedVersionError struct {
	Version int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported document version %d (max %d)", e.Version, CurrentVersion)
}

// For returns the codec for format.
func For(format models.Format) (Codec, error) {
	switch format {
	case models.FormatText:
		return Text{}, nil
	case models.FormatJSON:
		return JSON{}, nil
	case models.FormatYAML:
		return YAML{}, nil
	default:
		return nil, fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}

// resolveKey maps a document key to a list. Keys may be list ids or
// display names.
func resolveKey(key string) (models.ListID, bool) {
	if id := models.ListID(key); id.Valid() {
		return id, true
	}
	return models.ListByDisplayName(key)
}

// shadowed reports whether key is a display name for a list that the
// document also carries under its id. The id entry wins.
func shadowed(key string, id models.ListID, has func(string) bool) bool {
	return key != string(id) && has(string(id))
}

func newDocument() Document {
	return Document{Lists: make(map[models.ListID][]models.TaskRecord)}
}
