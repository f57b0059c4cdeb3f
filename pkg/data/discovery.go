package data

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExtension is the file extension picked up by discovery
const DefaultExtension = ".csv"

// ErrUnreadableRoot is returned when an input root cannot be listed
var ErrUnreadableRoot = errors.New("input root is not readable")

// Discover lists regular files in root whose extension matches ext
// (case-insensitive). The listing is not recursive and is sorted by name.
func Discover(root, ext string) ([]string, error) {
	if ext == "" {
		ext = DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadableRoot, root, err)
	}

	var paths []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			continue
		}
		paths = append(paths, filepath.Join(root, entry.Name()))
	}

	sort.Strings(paths)
	return paths, nil
}
