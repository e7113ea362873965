package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// EnsureDir ensures the parent directory of a store file exists.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}

// ParseSeconds parses the decimal representation used by the key-value
// stores. Negative or non-numeric values are reported as ErrCorrupt.
func ParseSeconds(raw string) (int64, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrCorrupt, raw)
	}
	if value < 0 {
		return 0, fmt.Errorf("%w: negative value %d", ErrCorrupt, value)
	}
	return value, nil
}

// FormatSeconds renders seconds in the decimal form read by ParseSeconds.
func FormatSeconds(seconds int64) string {
	return strconv.FormatInt(seconds, 10)
}
