// Package actions translates symbolic action keys chosen by the model
// (e.g. "ACT_DANCES_MACARENA_FLOOR") into concrete robot routine paths.
//
// The key space is closed: keys come from a JSON map loaded at startup and
// the model is told the valid set through its system instructions. A key the
// table does not know is logged and dropped, never propagated.
package actions

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/naosocial/go-naochat/internal/log"
)

// NoAction is the sentinel the model uses when a turn needs no physical
// routine beyond per-chunk gestures.
const NoAction = "NO_ACTION"

// Table maps action keys to animation paths. It is read-only after load.
type Table struct {
	paths map[string]string
}

// Load reads the action map from a JSON file of the form
// {"ACT_...": "path", ...}. A missing or malformed file yields an empty
// table and an error; the caller may continue with no actions available.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Table{paths: map[string]string{}}, fmt.Errorf("actions: read %s: %w", path, err)
	}

	var paths map[string]string
	if err := json.Unmarshal(data, &paths); err != nil {
		return &Table{paths: map[string]string{}}, fmt.Errorf("actions: parse %s: %w", path, err)
	}
	return &Table{paths: paths}, nil
}

// NewTable builds a table from an in-memory map. Used by tests and by
// callers that source the map elsewhere.
func NewTable(paths map[string]string) *Table {
	if paths == nil {
		paths = map[string]string{}
	}
	return &Table{paths: paths}
}

// Translate resolves an action key to its path. The sentinel, an empty key
// and an unknown key all yield "": only fully resolved paths or emptiness
// ever leave this table. Unknown keys are logged as warnings.
func (t *Table) Translate(key string) string {
	if key == "" || key == NoAction {
		return ""
	}
	path, ok := t.paths[key]
	if !ok {
		log.Warn("unknown action key", "key", key)
		return ""
	}
	return path
}

// Keys returns the sorted action keys, for injection into the model's
// technical instructions.
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.paths))
	for k := range t.paths {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of known actions.
func (t *Table) Len() int {
	return len(t.paths)
}
