package serial

import (
	"path/filepath"
	"sort"

	"github.com/juju/errors"
)

// USB serial adapters on macOS and linux.
var DefaultDetectPatterns = []string{
	"/dev/tty.usb*",
	"/dev/ttyUSB*",
	"/dev/ttyACM*",
}

// List returns all existing devices matching patterns, grouped in pattern order,
// sorted within a pattern. Duplicates are reported once.
func List(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = DefaultDetectPatterns
	}
	seen := make(map[string]struct{})
	result := make([]string, 0, 4)
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, errors.Annotatef(err, "detect pattern=%s", p)
		}
		sort.Strings(matches)
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			result = append(result, m)
		}
	}
	return result, nil
}

// Detect returns first existing device matching patterns, in pattern order.
func Detect(patterns []string) (string, error) {
	list, err := List(patterns)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		if len(patterns) == 0 {
			patterns = DefaultDetectPatterns
		}
		return "", errors.NotFoundf("USB serial device patterns=%v", patterns)
	}
	return list[0], nil
}
