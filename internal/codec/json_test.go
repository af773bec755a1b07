package codec

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/valter-silva-au/tasklists/pkg/models"
)

func TestJSON_EncodeWritesVersionedEnvelope(t *testing.T) {
	data, err := JSON{}.EncodeList(models.ListBooks, []models.TaskRecord{{Name: "Dune"}})
	if err != nil {
		t.Fatalf("EncodeList: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if v, ok := raw["version"].(float64); !ok || int(v) != CurrentVersion {
		t.Errorf("expected version %d, got %v", CurrentVersion, raw["version"])
	}
	lists, ok := raw["lists"].(map[string]any)
	if !ok {
		t.Fatalf("expected lists object, got %T", raw["lists"])
	}
	if len(lists) != 1 {
		t.Errorf("expected a single list, got %d", len(lists))
	}
	books, _ := lists["list5"].([]any)
	if len(books) != 1 {
		t.Fatalf("expected one book, got %v", lists["list5"])
	}
	rec := books[0].(map[string]any)
	if rec["name"] != "Dune" || rec["description"] != "" {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestJSON_EncodeIncludesEveryList(t *testing.T) {
	data, err := JSON{}.Encode(map[models.ListID][]models.TaskRecord{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	doc, err := JSON{}.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(doc.Lists) != len(models.AllLists()) {
		t.Errorf("expected %d lists, got %d", len(models.AllLists()), len(doc.Lists))
	}
}

func TestJSON_DecodeLegacyLayouts(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[models.ListID][]models.TaskRecord
	}{
		{
			name:  "display names with Task/Description",
			input: `{"Work Tasks": [{"Task": "deploy", "Description": "v2"}], "Goals": []}`,
			want: map[models.ListID][]models.TaskRecord{
				models.ListWork:  {{Name: "deploy", Description: "v2"}},
				models.ListGoals: {},
			},
		},
		{
			name:  "ids with name only",
			input: `{"list3": [{"name": "eggs"}]}`,
			want: map[models.ListID][]models.TaskRecord{
				models.ListShopping: {{Name: "eggs"}},
			},
		},
		{
			name:  "unknown keys and fields ignored",
			input: `{"list8": [{"name": "x", "done": true}], "Archive": [{"name": "y"}]}`,
			want: map[models.ListID][]models.TaskRecord{
				models.ListMisc: {{Name: "x"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := JSON{}.Decode([]byte(tt.input))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if diff := cmp.Diff(tt.want, doc.Lists); diff != "" {
				t.Errorf("lists mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestJSON_DecodeCountsUnknownLists(t *testing.T) {
	doc, err := JSON{}.Decode([]byte(`{"version": 1, "lists": {"list9": [], "list1": []}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if doc.Dropped != 1 {
		t.Errorf("expected 1 dropped list, got %d", doc.Dropped)
	}
}

func TestJSON_DecodeRejectsNewerVersion(t *testing.T) {
	_, err := JSON{}.Decode([]byte(`{"version": 2, "lists": {}}`))
	var verErr *UnsupportedVersionError
	if !errors.As(err, &verErr) {
		t.Fatalf("expected UnsupportedVersionError, got %v", err)
	}
	if verErr.Version != 2 {
		t.Errorf("expected version 2, got %d", verErr.Version)
	}
}

func TestJSON_DecodeMalformed(t *testing.T) {
	for _, input := range []string{`[]`, `{"list1": "nope"}`, `not json`} {
		if _, err := (JSON{}).Decode([]byte(input)); err == nil {
			t.Errorf("expected error for %q", input)
		}
	}
}

func TestFor(t *testing.T) {
	for _, f := range []models.Format{models.FormatText, models.FormatJSON, models.FormatYAML} {
		c, err := For(f)
		if err != nil {
			t.Fatalf("For(%s): %v", f, err)
		}
		if c.Format() != f {
			t.Errorf("For(%s) returned %s codec", f, c.Format())
		}
	}
	if _, err := For("toml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestJSON_DecodeIDBeatsDisplayName(t *testing.T) {
	inputs := []string{
		`{"list2":[{"name":"a"}],"Work Tasks":[{"name":"b"}]}`,
		`{"version":1,"lists":{"Work Tasks":[{"name":"b"}],"list2":[{"name":"a"}]}}`,
	}
	for _, input := range inputs {
		// Map iteration order varies, so decode repeatedly.
		for i := 0; i < 50; i++ {
			doc, err := JSON{}.Decode([]byte(input))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			want := map[models.ListID][]models.TaskRecord{models.ListWork: {{Name: "a"}}}
			if diff := cmp.Diff(want, doc.Lists); diff != "" {
				t.Fatalf("decode %d of %s (-want +got):\n%s", i, input, diff)
			}
			if doc.Dropped != 0 {
				t.Fatalf("a shadowed key is not an unknown list, dropped = %d", doc.Dropped)
			}
		}
	}
}
