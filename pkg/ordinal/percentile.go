package ordinal

import (
	"fmt"
	"strconv"
	"strings"
)

// Percentile formats id as its position within the supply, expressed as a
// percentage string in the shortest form that parses back to the same float
// (e.g. "0%", "49.99999999999998%" for Last/2, "100%" for Last).
func (id Identifier) Percentile() string {
	return fmt.Sprintf("%s%%", strconv.FormatFloat(float64(id)/float64(Last)*100.0, 'f', -1, 64))
}

// ParsePercentile parses a "N%" string into an identifier, rounding to the
// nearest identifier. The round trip id -> Percentile -> ParsePercentile
// reproduces id; the reverse direction does not hold, since many percentile
// strings round to the same identifier and Percentile returns only one of
// them.
func ParsePercentile(s string) (Identifier, error) {
	if !strings.HasSuffix(s, "%") {
		return 0, fmt.Errorf("ordinal: invalid percentile %q", s)
	}
	value, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return 0, fmt.Errorf("ordinal: invalid percentile %q: %w", s, err)
	}
	if value < 0.0 {
		return 0, fmt.Errorf("ordinal: invalid percentile %q", s)
	}
	n := uint64(value/100.0*float64(Last) + 0.5)
	if n > uint64(Last) {
		return 0, fmt.Errorf("ordinal: invalid percentile %q", s)
	}
	return Identifier(n), nil
}
