// Package internal provides small helpers shared across toolserver's internal packages.
package internal

import (
	"fmt"
	"strings"
)

// SnapshotEnv parses "KEY=VALUE" pairs, as returned by os.Environ, into a new map.
// Entries without a '=' or with an empty key are skipped. Later duplicates win.
func SnapshotEnv(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}

// ParseBoolFlag parses the boolean values accepted in toolserver's environment variables.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseBoolFlag(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value '%s', valid values are 'true' or 'false'", value)
	}
}
