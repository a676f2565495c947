package ordinal

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse decodes s using whichever textual form it matches: name, degree,
// percentile, decimal, or plain integer, in that order of precedence.
func Parse(s string) (Identifier, error) {
	switch {
	case strings.ContainsFunc(s, func(r rune) bool { return r >= 'a' && r <= 'z' }):
		return ParseName(s)
	case strings.Contains(s, "°"):
		return ParseDegree(s)
	case strings.Contains(s, "%"):
		return ParsePercentile(s)
	case strings.Contains(s, "."):
		return ParseDecimal(s)
	default:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("ordinal: invalid identifier %q: %w", s, err)
		}
		if n > uint64(Last) {
			return 0, fmt.Errorf("ordinal: invalid identifier %d", n)
		}
		return Identifier(n), nil
	}
}
