package codec

import (
	"fmt"

	"github.com/valter-silva-au/tasklists/pkg/models"
	"gopkg.in/yaml.v3"
)

// YAML renders the same versioned document as JSON and resolves keys the
// same way.
type YAML struct{}

type yamlDocument struct {
	Version int                     `yaml:"version"`
	Lists   map[string][]yamlRecord `yaml:"lists"`
}

type yamlRecord struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

// yamlListsNode builds the lists mapping in the given key order.
func yamlListsNode(keys []models.ListID, lists map[models.ListID][]models.TaskRecord) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, id := range keys {
		records := make([]yamlRecord, len(lists[id]))
		for i, t := range lists[id] {
			records[i] = yamlRecord{Name: t.Name, Description: t.Description}
		}
		var value yaml.Node
		if err := value.Encode(records); err != nil {
			return nil, fmt.Errorf("encoding list %s: %w", id, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: string(id)},
			&value,
		)
	}
	return node, nil
}

func (YAML) Format() models.Format { return models.FormatYAML }

func (y YAML) Encode(lists map[models.ListID][]models.TaskRecord) ([]byte, error) {
	return y.encode(models.AllLists(), lists)
}

func (y YAML) EncodeList(list models.ListID, tasks []models.TaskRecord) ([]byte, error) {
	return y.encode([]models.ListID{list}, map[models.ListID][]models.TaskRecord{list: tasks})
}

func (YAML) encode(keys []models.ListID, lists map[models.ListID][]models.TaskRecord) ([]byte, error) {
	listsNode, err := yamlListsNode(keys, lists)
	if err != nil {
		return nil, err
	}
	root := &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
		{Kind: yaml.ScalarNode, Value: "version"},
		{Kind: yaml.ScalarNode, Tag: "!!int", Value: fmt.Sprint(CurrentVersion)},
		{Kind: yaml.ScalarNode, Value: "lists"},
		listsNode,
	}}
	data, err := yaml.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("marshalling task lists: %w", err)
	}
	return data, nil
}

func (YAML) Decode(data []byte) (Document, error) {
	var raw yamlDocument
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Document{}, fmt.Errorf("parsing task lists YAML: %w", err)
	}
	if raw.Version > CurrentVersion {
		return Document{}, &UnsupportedVersionError{Version: raw.Version}
	}

	doc := newDocument()
	has := func(k string) bool {
		_, ok := raw.Lists[k]
		return ok
	}
	for key, records := range raw.Lists {
		id, ok := resolveKey(key)
		if !ok {
			doc.Dropped++
			continue
		}
		if shadowed(key, id, has) {
			continue
		}
		tasks := make([]models.TaskRecord, len(records))
		for i, r := range records {
			tasks[i] = models.TaskRecord{Name: r.Name, Description: r.Description}
		}
		doc.Lists[id] = tasks
	}
	return doc, nil
}
