package rangemanifest

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

func outpoint(b byte, index uint32) wire.OutPoint {
	var h chainhash.Hash
	h[0] = b
	return wire.OutPoint{Hash: h, Index: index}
}

func TestEntryValue(t *testing.T) {
	e := Entry{Ranges: []Range{{10_000, 15_000}}}
	if e.Value() != 5_000 {
		t.Errorf("Value() = %d, want 5000", e.Value())
	}
}

func TestEntryIsCardinal(t *testing.T) {
	cardinal := Entry{Ranges: []Range{{10_000, 15_000}}}
	if !cardinal.IsCardinal() {
		t.Errorf("expected cardinal entry")
	}
	rare := Entry{Ranges: []Range{{0, 5_000}}}
	if rare.IsCardinal() {
		t.Errorf("expected entry starting at 0 to be non-cardinal")
	}
}

func TestEntryOffset(t *testing.T) {
	e := Entry{Ranges: []Range{{0, 10_000}}}
	off, ok := e.Offset(3_333)
	if !ok || off != 3_333 {
		t.Errorf("Offset(3333) = %d, %v, want 3333, true", off, ok)
	}
	if _, ok := e.Offset(20_000); ok {
		t.Errorf("expected id outside range to not be found")
	}
}

func TestManifestFind(t *testing.T) {
	m := Manifest{
		{OutPoint: outpoint(1, 0), Ranges: []Range{{10_000, 15_000}}},
		{OutPoint: outpoint(2, 0), Ranges: []Range{{0, 5_000}}},
	}
	idx, offset, ok := m.Find(14_950)
	if !ok || idx != 0 || offset != 4_950 {
		t.Errorf("Find(14950) = %d, %d, %v, want 0, 4950, true", idx, offset, ok)
	}
	if _, _, ok := m.Find(99_999); ok {
		t.Errorf("expected miss for id outside manifest")
	}
}

func TestManifestSortedDeterministic(t *testing.T) {
	m := Manifest{
		{OutPoint: outpoint(3, 0)},
		{OutPoint: outpoint(1, 0)},
		{OutPoint: outpoint(2, 1)},
		{OutPoint: outpoint(2, 0)},
	}
	sorted := m.Sorted()
	for i := 1; i < len(sorted); i++ {
		if !LessOutPoint(sorted[i-1].OutPoint, sorted[i].OutPoint) {
			t.Errorf("Sorted() not in ascending order at index %d", i)
		}
	}
}

func TestTakeWithinSingleRange(t *testing.T) {
	taken, rest, ok := Take([]Range{{0, 10_000}}, 4_000)
	if !ok {
		t.Fatalf("expected ok")
	}
	if len(taken) != 1 || taken[0] != (Range{0, 4_000}) {
		t.Errorf("taken = %v, want [{0 4000}]", taken)
	}
	if len(rest) != 1 || rest[0] != (Range{4_000, 10_000}) {
		t.Errorf("rest = %v, want [{4000 10000}]", rest)
	}
}

func TestTakeAcrossMultipleRanges(t *testing.T) {
	ranges := []Range{{0, 1_000}, {5_000, 8_000}, {20_000, 30_000}}
	taken, rest, ok := Take(ranges, 3_500)
	if !ok {
		t.Fatalf("expected ok")
	}
	want := []Range{{0, 1_000}, {5_000, 7_500}}
	if len(taken) != len(want) || taken[0] != want[0] || taken[1] != want[1] {
		t.Errorf("taken = %v, want %v", taken, want)
	}
	wantRest := []Range{{7_500, 8_000}, {20_000, 30_000}}
	if len(rest) != len(wantRest) || rest[0] != wantRest[0] || rest[1] != wantRest[1] {
		t.Errorf("rest = %v, want %v", rest, wantRest)
	}
}

func TestTakeExhaustsRanges(t *testing.T) {
	ranges := []Range{{0, 1_000}, {5_000, 6_000}}
	_, _, ok := Take(ranges, 5_000)
	if ok {
		t.Errorf("expected ok=false when ranges carry fewer identifiers than requested")
	}
}

func TestTakeZeroAmount(t *testing.T) {
	ranges := []Range{{0, 1_000}}
	taken, rest, ok := Take(ranges, 0)
	if !ok || len(taken) != 0 {
		t.Errorf("Take(ranges, 0) = %v, %v, %v, want [], ranges, true", taken, rest, ok)
	}
	if len(rest) != 1 || rest[0] != ranges[0] {
		t.Errorf("rest = %v, want %v", rest, ranges)
	}
}

func TestManifestValidate(t *testing.T) {
	ok := Manifest{{OutPoint: outpoint(1, 0), Ranges: []Range{{0, 10}}}}
	if err := ok.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	bad := Manifest{{OutPoint: outpoint(1, 0), Ranges: []Range{{10, 10}}}}
	if err := bad.Validate(); err == nil {
		t.Errorf("expected error for start==end range")
	}
}
