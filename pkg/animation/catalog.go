package animation

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadCatalog reads the movement token catalog from a JSON file of the form
// {"movements_library": ["Gestures/Hey_(7)", ...]}. The catalog is only used
// to tell the model which tokens exist; resolution itself accepts any token.
func LoadCatalog(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("animation: read catalog %s: %w", path, err)
	}

	var catalog struct {
		MovementsLibrary []string `json:"movements_library"`
	}
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("animation: parse catalog %s: %w", path, err)
	}
	return catalog.MovementsLibrary, nil
}
