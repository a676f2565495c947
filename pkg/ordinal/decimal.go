package ordinal

import (
	"fmt"
	"strconv"
	"strings"
)

// Decimal is the "height.offset" textual form of an identifier.
type Decimal struct {
	Height Height
	Offset uint64
}

// Decimal converts id to its height.offset form.
func (id Identifier) Decimal() Decimal {
	return Decimal{Height: id.Height(), Offset: id.Third()}
}

func (d Decimal) String() string {
	return fmt.Sprintf("%d.%d", uint64(d.Height), d.Offset)
}

// ParseDecimal parses a "height.offset" string into an identifier.
func ParseDecimal(s string) (Identifier, error) {
	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("ordinal: invalid decimal %q", s)
	}
	height, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("ordinal: invalid decimal height in %q: %w", s, err)
	}
	offset, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("ordinal: invalid decimal offset in %q: %w", s, err)
	}
	subsidy := Height(height).Subsidy()
	if offset >= subsidy {
		return 0, fmt.Errorf("ordinal: invalid decimal offset %d, height %d subsidy is %d", offset, height, subsidy)
	}
	return Height(height).StartingIdentifier().Add(offset), nil
}
