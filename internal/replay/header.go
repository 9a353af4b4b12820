package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// HeaderSchemaVersion tracks the schema version for replay header documents.
const HeaderSchemaVersion = 1

// RuleSet records which optional rules were active for the battle.
type RuleSet map[string]bool

// Clone returns a copy of the rule set.
func (r RuleSet) Clone() RuleSet {
	if len(r) == 0 {
		return nil
	}
	clone := make(RuleSet, len(r))
	for key, value := range r {
		clone[key] = value
	}
	return clone
}

// Enabled lists the active rules in name order.
func (r RuleSet) Enabled() []string {
	var names []string
	for name, on := range r {
		if on {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Header is the metadata persisted alongside a replay bundle. Seed and rules are enough
// to re-run the battle and compare against the recorded events.
type Header struct {
	SchemaVersion int     `json:"schema_version"`
	BattleID      string  `json:"battle_id"`
	Scenario      string  `json:"scenario,omitempty"`
	Seed          int64   `json:"seed"`
	Rules         RuleSet `json:"rules,omitempty"`
	Events        int     `json:"events"`
	Frames        int     `json:"frames"`
	FilePointer   string  `json:"file_pointer"`
}

// Validate ensures the header contains enough information for catalogue tooling.
func (h Header) Validate() error {
	if h.SchemaVersion <= 0 {
		return fmt.Errorf("schema_version must be positive")
	}
	if strings.TrimSpace(h.BattleID) == "" {
		return fmt.Errorf("battle_id must not be empty")
	}
	if strings.TrimSpace(h.FilePointer) == "" {
		return fmt.Errorf("file_pointer must not be empty")
	}
	return nil
}

// WriteHeader persists the supplied header to the provided file path.
func WriteHeader(path string, header Header) error {
	if err := header.Validate(); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(header, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(payload, '\n'), 0o644)
}

// ReadHeader loads and decodes a replay header from disk.
func ReadHeader(path string) (Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Header{}, err
	}
	var header Header
	if err := json.Unmarshal(data, &header); err != nil {
		return Header{}, err
	}
	if err := header.Validate(); err != nil {
		return Header{}, err
	}
	return header, nil
}
