package utils

import (
	"strconv"
	"strings"
)

// ParseLimit reads a ?limit= value. Missing, malformed, zero or negative
// values give def; anything above max is clamped to max.
func ParseLimit(raw string, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
