package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/valter-silva-au/tasklists/pkg/models"
)

// JSON is the canonical structured format:
//
//	{"version": 1, "lists": {"list1": [{"name": "...", "description": "..."}]}}
//
// Decode also accepts the older unversioned layout, a bare object keyed by
// list id or display name whose records use either name/description or
// Task/Description. When a list appears under both its id and its display
// name, the id entry is used.
type JSON struct{}

type jsonDocument struct {
	Version int                            `json:"version"`
	Lists   map[models.ListID][]jsonRecord `json:"lists"`
}

type jsonRecord struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// legacyRecord accepts both field spellings found in saved files.
type legacyRecord struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Task           string `json:"Task"`
	DescriptionAlt string `json:"Description"`
}

func (r legacyRecord) record() models.TaskRecord {
	rec := models.TaskRecord{Name: r.Name, Description: r.Description}
	if rec.Name == "" {
		rec.Name = r.Task
	}
	if rec.Description == "" {
		rec.Description = r.DescriptionAlt
	}
	return rec
}

func (JSON) Format() models.Format { return models.FormatJSON }

func (JSON) Encode(lists map[models.ListID][]models.TaskRecord) ([]byte, error) {
	doc := jsonDocument{Version: CurrentVersion, Lists: make(map[models.ListID][]jsonRecord)}
	for _, id := range models.AllLists() {
		doc.Lists[id] = toJSONRecords(lists[id])
	}
	return marshalJSON(doc)
}

func (JSON) EncodeList(list models.ListID, tasks []models.TaskRecord) ([]byte, error) {
	doc := jsonDocument{
		Version: CurrentVersion,
		Lists:   map[models.ListID][]jsonRecord{list: toJSONRecords(tasks)},
	}
	return marshalJSON(doc)
}

func toJSONRecords(tasks []models.TaskRecord) []jsonRecord {
	out := make([]jsonRecord, len(tasks))
	for i, t := range tasks {
		out[i] = jsonRecord{Name: t.Name, Description: t.Description}
	}
	return out
}

func marshalJSON(doc jsonDocument) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling task lists: %w", err)
	}
	return append(data, '\n'), nil
}

func (JSON) Decode(data []byte) (Document, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(data), &raw); err != nil {
		return Document{}, fmt.Errorf("parsing task lists JSON: %w", err)
	}

	_, hasVersion := raw["version"]
	listsRaw, hasLists := raw["lists"]
	if !hasVersion || !hasLists {
		return decodeJSONLists(raw)
	}

	var version int
	if err := json.Unmarshal(raw["version"], &version); err != nil {
		return Document{}, fmt.Errorf("parsing document version: %w", err)
	}
	if version > CurrentVersion {
		return Document{}, &UnsupportedVersionError{Version: version}
	}

	var lists map[string]json.RawMessage
	if err := json.Unmarshal(listsRaw, &lists); err != nil {
		return Document{}, fmt.Errorf("parsing lists: %w", err)
	}
	return decodeJSONLists(lists)
}

func decodeJSONLists(raw map[string]json.RawMessage) (Document, error) {
	doc := newDocument()
	has := func(k string) bool {
		_, ok := raw[k]
		return ok
	}
	for key, value := range raw {
		id, ok := resolveKey(key)
		if !ok {
			doc.Dropped++
			continue
		}
		if shadowed(key, id, has) {
			continue
		}
		var records []legacyRecord
		if err := json.Unmarshal(value, &records); err != nil {
			return Document{}, fmt.Errorf("parsing list %q: %w", key, err)
		}
		tasks := make([]models.TaskRecord, len(records))
		for i, r := range records {
			tasks[i] = r.record()
		}
		doc.Lists[id] = tasks
	}
	return doc, nil
}
