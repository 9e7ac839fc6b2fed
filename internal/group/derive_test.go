package group

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRemapperConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "trackjoy.json")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write remapper config: %v", err)
	}
	return path
}

func TestDeriveRequirement(t *testing.T) {
	path := writeRemapperConfig(t, `{
		"pad_mappings": [
			{"axes": ["ABS_X", "ABS_Y"], "buttons": ["KEY_1", "KEY_2", "KEY_3", "KEY_4"]}
		],
		"keys_mappings": [
			{"KEY_A": "KEY_B"},
			{"KEY_C": "KEY_D"}
		],
		"multitouch": true
	}`)

	req, err := DeriveRequirement(path)
	if err != nil {
		t.Fatalf("DeriveRequirement() error = %v", err)
	}

	if req.Keyboards != 2 {
		t.Errorf("Keyboards = %d, want 2", req.Keyboards)
	}
	if req.Trackpads != 1 {
		t.Errorf("Trackpads = %d, want 1", req.Trackpads)
	}
}

func TestDeriveRequirement_MissingFile(t *testing.T) {
	_, err := DeriveRequirement("/nonexistent/trackjoy.json")
	if err == nil {
		t.Error("DeriveRequirement() expected error for missing file, got nil")
	}
}

func TestDeriveRequirement_InvalidJSON(t *testing.T) {
	path := writeRemapperConfig(t, `{not json`)

	_, err := DeriveRequirement(path)
	if err == nil {
		t.Error("DeriveRequirement() expected error for invalid JSON, got nil")
	}
}

func TestDeriveRequirement_NoMappings(t *testing.T) {
	path := writeRemapperConfig(t, `{"pad_mappings": [], "keys_mappings": []}`)

	_, err := DeriveRequirement(path)
	if err == nil {
		t.Error("DeriveRequirement() expected error for empty mappings, got nil")
	}
}
