package ordinal

import "testing"

func TestPercentile(t *testing.T) {
	if got := Identifier(0).Percentile(); got != "0%" {
		t.Errorf("Percentile(0) = %q, want 0%%", got)
	}
	if got := Identifier(uint64(Last) / 2).Percentile(); got != "49.99999999999998%" {
		t.Errorf("Percentile(Last/2) = %q, want 49.99999999999998%%", got)
	}
	if got := Last.Percentile(); got != "100%" {
		t.Errorf("Percentile(Last) = %q, want 100%%", got)
	}
}

func TestFromPercentile(t *testing.T) {
	if _, err := Parse("-1%"); err == nil {
		t.Errorf("expected error for negative percentile")
	}
	if _, err := Parse("101%"); err == nil {
		t.Errorf("expected error for percentile over 100")
	}
}

func TestPercentileRoundTrip(t *testing.T) {
	check := func(n uint64) {
		expected := Identifier(n)
		actual, err := Parse(expected.Percentile())
		if err != nil {
			t.Errorf("Parse(%q) returned error: %v", expected.Percentile(), err)
			return
		}
		if actual != expected {
			t.Errorf("round trip of %d through percentile gave %d", expected, actual)
		}
	}

	last := uint64(Last)
	for n := uint64(0); n < 1024; n++ {
		check(n)
		check(last/2 + n)
		check(last - n)
		check(last / (n + 1))
	}
}
