package loot

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// ExportJSON renders the loaded definitions as a JSON array.
func (r *DefRegistry) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(r.defs, "", "  ")
}

// ImportJSON appends definitions from a JSON array produced by ExportJSON.
// Returns the number added.
func (r *DefRegistry) ImportJSON(data []byte) (int, error) {
	var defs []ItemDef
	if err := json.Unmarshal(data, &defs); err != nil {
		return 0, errors.Wrap(err, "unmarshal item defs")
	}
	added := 0
	for _, d := range defs {
		if _, err := r.Add(d); err != nil {
			return added, err
		}
		added++
	}
	r.BuildIndex()
	return added, nil
}

// ExportJSONFile writes the definitions to a file.
func (r *DefRegistry) ExportJSONFile(path string) error {
	data, err := r.ExportJSON()
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(path, data, 0644), "write item defs %s", path)
}

// ImportJSONFile appends definitions from a JSON file.
func (r *DefRegistry) ImportJSONFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.Wrapf(err, "read item defs %s", path)
	}
	return r.ImportJSON(data)
}
