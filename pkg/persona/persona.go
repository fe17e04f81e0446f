// Package persona manages the named instruction bundles that shape the
// robot's voice and behavior.
//
// Personas are plain text files in a prompts directory following the
// "<name>_system.txt" naming convention. Membership in that directory is the
// authority for validity: a switch to a name with no matching file fails.
// Every loaded persona is merged with a fixed technical-instructions block
// describing the JSON response contract; the merge is never optional.
package persona

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/naosocial/go-naochat/internal/log"
)

const fileSuffix = "_system.txt"

// Registry discovers and loads persona definitions from a directory.
type Registry struct {
	dir         string
	defaultName string
	technical   string
}

// NewRegistry creates a registry over dir. defaultName selects the persona
// used by sessions with none bound (empty means fallback personality only).
// technical is the rendered technical-instructions block appended to every
// persona.
func NewRegistry(dir, defaultName, technical string) *Registry {
	return &Registry{dir: dir, defaultName: defaultName, technical: technical}
}

// List enumerates the available persona names, sorted. Enumeration failure
// is logged and yields an empty list.
func (r *Registry) List() []string {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		log.Error("persona directory scan failed", "dir", r.dir, "error", err)
		return nil
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, fileSuffix) {
			names = append(names, strings.TrimSuffix(name, fileSuffix))
		}
	}
	sort.Strings(names)
	return names
}

// Load reads a named persona and merges it with the technical instructions.
// A missing or unreadable file returns an error, distinct from a valid but
// empty persona.
func (r *Registry) Load(name string) (string, error) {
	path := filepath.Join(r.dir, name+fileSuffix)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("persona: load %q: %w", name, err)
	}
	return string(data) + "\n" + r.technical, nil
}

// Default returns the instruction text for the startup-configured persona.
// If it is unset or fails to load, a hard-coded minimal personality is used
// instead; the technical instructions are merged in either way.
func (r *Registry) Default() string {
	if r.defaultName != "" {
		text, err := r.Load(r.defaultName)
		if err == nil {
			return text
		}
		log.Warn("default persona not loadable, using fallback", "persona", r.defaultName, "error", err)
	}
	return ErrorPersonality + "\n" + r.technical
}

// SystemInstruction builds the full system instruction for a persona text:
// the fixed base prompt plus the merged persona.
func SystemInstruction(personaText string) string {
	return BasePrompt + personaText
}
