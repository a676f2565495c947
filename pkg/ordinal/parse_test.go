package ordinal

import "testing"

func TestFromStrNumber(t *testing.T) {
	if id, err := Parse("0"); err != nil || id != 0 {
		t.Errorf("Parse(0) = %v, %v, want 0, nil", id, err)
	}
	if id, err := Parse("2099999997689999"); err != nil || id != 2099999997689999 {
		t.Errorf("Parse(2099999997689999) = %v, %v, want 2099999997689999, nil", id, err)
	}
	if _, err := Parse("2099999997690000"); err == nil {
		t.Errorf("expected error for identifier at supply boundary")
	}
}
