package ordinal

import (
	"fmt"
	"strings"
)

const nameAlphabet = "abcdefghijklmnopqrstuvwxyz"

// Name encodes id in the base-26 "name" form. Magnitude is reversed: id 0
// encodes to the longest name ("nvtdijuwxlp"), Last encodes to "a".
func (id Identifier) Name() string {
	x := Supply - uint64(id)
	var b strings.Builder
	for x > 0 {
		b.WriteByte(nameAlphabet[(x-1)%26])
		x = (x - 1) / 26
	}
	s := []byte(b.String())
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
	return string(s)
}

// ParseName decodes a base-26 identifier name.
func ParseName(s string) (Identifier, error) {
	if s == "" {
		return 0, fmt.Errorf("ordinal: empty name")
	}
	var x uint64
	for _, c := range s {
		if c < 'a' || c > 'z' {
			return 0, fmt.Errorf("ordinal: invalid character in name: %q", c)
		}
		x = x*26 + uint64(c-'a') + 1
	}
	if x > Supply {
		return 0, fmt.Errorf("ordinal: name out of range")
	}
	return Identifier(Supply - x), nil
}
