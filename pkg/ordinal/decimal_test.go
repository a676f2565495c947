package ordinal

import "testing"

func TestFromStrDecimal(t *testing.T) {
	cases := []struct {
		s    string
		want Identifier
	}{
		{"0.0", 0},
		{"0.1", 1},
		{"1.0", 50 * CoinValue},
		{"6929999.0", 2099999997689999},
	}
	for _, c := range cases {
		got, err := Parse(c.s)
		if err != nil {
			t.Errorf("Parse(%q) returned error: %v", c.s, err)
			continue
		}
		if got != c.want {
			t.Errorf("Parse(%q) = %d, want %d", c.s, got, c.want)
		}
	}
	if _, err := Parse("0.5000000000"); err == nil {
		t.Errorf("expected error for out-of-range offset")
	}
	if _, err := Parse("6930000.0"); err == nil {
		t.Errorf("expected error for height past supply exhaustion")
	}
}
