package assignments

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chulminlee01/mrt-tech-test/internal/schemas"
	"github.com/chulminlee01/mrt-tech-test/internal/types"
)

// Output file names inside a run directory
const (
	JSONFile     = "assignments.json"
	MarkdownFile = "assignments.md"
)

// WriteJSON writes the assignment set as indented JSON without HTML escaping
func WriteJSON(set *types.AssignmentSet, path string) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(set); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// LoadJSON reads and schema-validates an existing assignments.json
func LoadJSON(path string) (*types.AssignmentSet, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := schemas.ValidateAssignments(string(data)); err != nil {
		return nil, fmt.Errorf("%s is not a valid assignment set: %w", path, err)
	}

	var set types.AssignmentSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &set, nil
}
