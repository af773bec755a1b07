package codec

import (
	"bytes"
	"strings"

	"github.com/valter-silva-au/tasklists/pkg/models"
)

const (
	headerPrefix      = "=== "
	headerSuffix      = " ==="
	taskPrefix        = "- "
	descriptionPrefix = "  Description:"
)

// Text is the human-readable line format:
//
//	=== Work Tasks ===
//	- write report
//	  Description: due friday
//
// Everything after "- " is the name, spaces included. Names containing a
// line break do not survive a round trip.
type Text struct{}

func (Text) Format() models.Format { return models.FormatText }

func (Text) Encode(lists map[models.ListID][]models.TaskRecord) ([]byte, error) {
	var b bytes.Buffer
	for _, id := range models.AllLists() {
		writeTextBlock(&b, id, lists[id])
	}
	return b.Bytes(), nil
}

func (Text) EncodeList(list models.ListID, tasks []models.TaskRecord) ([]byte, error) {
	var b bytes.Buffer
	writeTextBlock(&b, list, tasks)
	return b.Bytes(), nil
}

func writeTextBlock(b *bytes.Buffer, list models.ListID, tasks []models.TaskRecord) {
	b.WriteString(headerPrefix + list.DisplayName() + headerSuffix + "\n")
	for _, t := range tasks {
		b.WriteString(taskPrefix + t.Name + "\n")
		if desc := strings.TrimSpace(t.Description); desc != "" {
			b.WriteString(descriptionPrefix + " " + desc + "\n")
		}
	}
	b.WriteString("\n")
}

// Decode parses the line format. Task lines under a header whose name is not
// a known list are skipped and counted in Document.Dropped.
func (Text) Decode(data []byte) (Document, error) {
	doc := newDocument()
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")

	var current models.ListID
	known := false
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		switch {
		case strings.TrimSpace(line) == "":
			continue

		case isHeader(line):
			name := strings.TrimSpace(line[len(headerPrefix) : len(line)-len(headerSuffix)])
			current, known = models.ListByDisplayName(name)
			if known && doc.Lists[current] == nil {
				doc.Lists[current] = []models.TaskRecord{}
			}

		case strings.HasPrefix(line, taskPrefix):
			rec := models.TaskRecord{Name: line[len(taskPrefix):]}
			if i+1 < len(lines) && strings.HasPrefix(lines[i+1], descriptionPrefix) {
				rec.Description = strings.TrimSpace(lines[i+1][len(descriptionPrefix):])
				i++
			}
			if !known {
				doc.Dropped++
				continue
			}
			doc.Lists[current] = append(doc.Lists[current], rec)
		}
	}
	return doc, nil
}

func isHeader(line string) bool {
	return len(line) >= len(headerPrefix)+len(headerSuffix) &&
		strings.HasPrefix(line, headerPrefix) &&
		strings.HasSuffix(line, headerSuffix)
}
