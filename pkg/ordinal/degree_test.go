package ordinal

import "testing"

func TestDegree(t *testing.T) {
	cases := []struct {
		id   Identifier
		want string
	}{
		{0, "0°0′0″0‴"},
		{1, "0°0′0″1‴"},
		{50*CoinValue - 1, "0°0′0″4999999999‴"},
		{50 * CoinValue, "0°1′1″0‴"},
		{50*CoinValue + 1, "0°1′1″1‴"},
		{50 * CoinValue * DiffchangeInterval - 1, "0°2015′2015″4999999999‴"},
		{50 * CoinValue * DiffchangeInterval, "0°2016′0″0‴"},
		{50*CoinValue*DiffchangeInterval + 1, "0°2016′0″1‴"},
		{50*CoinValue*SubsidyHalvingInterval - 1, "0°209999′335″4999999999‴"},
		{50 * CoinValue * SubsidyHalvingInterval, "0°0′336″0‴"},
		{50*CoinValue*SubsidyHalvingInterval + 1, "0°0′336″1‴"},
		{2067187500000000 - 1, "0°209999′2015″156249999‴"},
		{2067187500000000, "1°0′0″0‴"},
		{2067187500000000 + 1, "1°0′0″1‴"},
		{1054200000000000, "0°1680′0″0‴"},
		{1914226250000000, "0°122762′794″0‴"},
	}
	for _, c := range cases {
		if got := c.id.Degree().String(); got != c.want {
			t.Errorf("Identifier(%d).Degree() = %q, want %q", c.id, got, c.want)
		}
	}
}

func TestFromStrDegree(t *testing.T) {
	cases := []struct {
		s    string
		want Identifier
	}{
		{"0°0′0″0‴", 0},
		{"0°0′0″", 0},
		{"0°0′0″1‴", 1},
		{"0°2015′2015″0‴", 10075000000000},
		{"0°2016′0″0‴", 10080000000000},
		{"0°2017′1″0‴", 10085000000000},
		{"0°2016′0″1‴", 10080000000001},
		{"0°2017′1″1‴", 10085000000001},
		{"0°209999′335″0‴", 1049995000000000},
		{"0°0′336″0‴", 1050000000000000},
		{"0°0′672″0‴", 1575000000000000},
		{"0°209999′1007″0‴", 1837498750000000},
		{"0°0′1008″0‴", 1837500000000000},
		{"1°0′0″0‴", 2067187500000000},
		{"2°0′0″0‴", 2099487304530000},
		{"3°0′0″0‴", 2099991988080000},
		{"4°0′0″0‴", 2099999873370000},
		{"5°0′0″0‴", 2099999996220000},
		{"5°0′336″0‴", 2099999997060000},
		{"5°0′672″0‴", 2099999997480000},
		{"5°1′673″0‴", 2099999997480001},
		{"5°209999′1007″0‴", 2099999997689999},
		{"0°1680′0″0‴", 1054200000000000},
		{"0°122762′794″0‴", 1914226250000000},
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
}

func TestFromStrDegreeInvalidCycleNumber(t *testing.T) {
	if _, err := Parse("5°0′0″0‴"); err != nil {
		t.Errorf("expected 5°0′0″0‴ to be valid: %v", err)
	}
	if _, err := Parse("6°0′0″0‴"); err == nil {
		t.Errorf("expected 6°0′0″0‴ to be invalid")
	}
}

func TestFromStrDegreeInvalidEpochOffset(t *testing.T) {
	if _, err := Parse("0°209999′335″0‴"); err != nil {
		t.Errorf("expected valid: %v", err)
	}
	if _, err := Parse("0°210000′336″0‴"); err == nil {
		t.Errorf("expected invalid epoch offset to error")
	}
}

func TestFromStrDegreeInvalidPeriodOffset(t *testing.T) {
	if _, err := Parse("0°2015′2015″0‴"); err != nil {
		t.Errorf("expected valid: %v", err)
	}
	if _, err := Parse("0°2016′2016″0‴"); err == nil {
		t.Errorf("expected invalid period offset to error")
	}
}

func TestFromStrDegreeInvalidBlockOffset(t *testing.T) {
	if _, err := Parse("0°0′0″4999999999‴"); err != nil {
		t.Errorf("expected valid: %v", err)
	}
	if _, err := Parse("0°0′0″5000000000‴"); err == nil {
		t.Errorf("expected invalid block offset to error")
	}
	if _, err := Parse("0°209999′335″4999999999‴"); err != nil {
		t.Errorf("expected valid: %v", err)
	}
	if _, err := Parse("0°0′336″4999999999‴"); err == nil {
		t.Errorf("expected invalid block offset to error")
	}
}

func TestFromStrDegreeInvalidPeriodBlockRelationship(t *testing.T) {
	if _, err := Parse("0°2015′2015″0‴"); err != nil {
		t.Errorf("expected valid: %v", err)
	}
	if _, err := Parse("0°2016′0″0‴"); err != nil {
		t.Errorf("expected valid: %v", err)
	}
	if _, err := Parse("0°2016′1″0‴"); err == nil {
		t.Errorf("expected invalid relationship to error")
	}
	if _, err := Parse("0°0′336″0‴"); err != nil {
		t.Errorf("expected valid: %v", err)
	}
}

func TestFromStrDegreePostDistribution(t *testing.T) {
	if _, err := Parse("5°209999′1007″0‴"); err != nil {
		t.Errorf("expected valid: %v", err)
	}
	if _, err := Parse("5°0′1008″0‴"); err == nil {
		t.Errorf("expected invalid post-distribution degree to error")
	}
}
