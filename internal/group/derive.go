package group

import (
	"encoding/json"
	"fmt"
	"os"
)

// remapperMappings is the slice of the remapper's own JSON config we care
// about: one keys_mappings entry per keyboard the remapper will drive, one
// pad_mappings entry per trackpad. Everything else is the remapper's
// business.
type remapperMappings struct {
	KeysMappings []json.RawMessage `json:"keys_mappings"`
	PadMappings  []json.RawMessage `json:"pad_mappings"`
}

// DeriveRequirement reads a remapper config file and derives the group
// requirement from its mapping counts, so the daemon asks for exactly the
// devices the remapper is configured to drive.
//
// Parameters:
//   - path: Path to the remapper's JSON config file
//
// Returns:
//   - Requirement: Keyboards = len(keys_mappings), Trackpads = len(pad_mappings)
//   - error: If the file cannot be read or parsed, or defines no mappings
func DeriveRequirement(path string) (Requirement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Requirement{}, fmt.Errorf("reading remapper config: %w", err)
	}

	var m remapperMappings
	if err := json.Unmarshal(data, &m); err != nil {
		return Requirement{}, fmt.Errorf("parsing remapper config: %w", err)
	}

	req := Requirement{
		Keyboards: len(m.KeysMappings),
		Trackpads: len(m.PadMappings),
	}

	if req.Keyboards == 0 && req.Trackpads == 0 {
		return Requirement{}, fmt.Errorf("remapper config %s defines no mappings to derive a requirement from", path)
	}

	return req, nil
}
