package replay

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Entry captures a replay header alongside its resolved bundle directory.
type Entry struct {
	HeaderPath string `json:"header_path"`
	BundleDir  string `json:"bundle_dir"`
	Header     Header `json:"header"`
}

// List walks root and returns every bundle header, ordered by battle then path.
func List(root string) ([]Entry, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("root directory must be provided")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root must be a directory")
	}

	var entries []Entry
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || d.Name() != HeaderFile {
			return nil
		}
		header, err := ReadHeader(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		entries = append(entries, Entry{HeaderPath: path, BundleDir: filepath.Dir(path), Header: header})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Header.BattleID == entries[j].Header.BattleID {
			return entries[i].BundleDir < entries[j].BundleDir
		}
		return entries[i].Header.BattleID < entries[j].Header.BattleID
	})
	return entries, nil
}

// MarshalEntries produces a stable JSON representation of the entries for CLI output.
func MarshalEntries(entries []Entry) ([]byte, error) {
	return json.MarshalIndent(entries, "", "  ")
}
