// Package rangemanifest tracks which ordinal identifier ranges live in which
// unspent transaction outputs.
package rangemanifest

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/wire"

	"github.com/rawblock/ordinal-engine/pkg/ordinal"
)

// Range is a half-open span of identifiers [Start, End) that entered an
// output together; ranges within one entry need not be contiguous.
type Range struct {
	Start uint64
	End   uint64
}

// Size returns how many identifiers the range carries.
func (r Range) Size() uint64 {
	return r.End - r.Start
}

// Contains reports whether id falls within the range.
func (r Range) Contains(id uint64) bool {
	return id >= r.Start && id < r.End
}

// Entry is one wallet-owned output and the ranges it currently holds.
type Entry struct {
	OutPoint wire.OutPoint
	Ranges   []Range
}

// Value returns the output's total value in satoshis: the sum of its range
// sizes.
func (e Entry) Value() uint64 {
	var total uint64
	for _, r := range e.Ranges {
		total += r.Size()
	}
	return total
}

// IsCardinal reports whether every range in the entry starts with a Common
// identifier. Ranges are only split at transaction boundaries, so a
// non-Common identifier can only ever appear at a range's start; checking
// starts alone is enough to classify the whole output.
func (e Entry) IsCardinal() bool {
	for _, r := range e.Ranges {
		if !ordinal.Identifier(r.Start).IsCommon() {
			return false
		}
	}
	return true
}

// Offset returns id's position within the entry's concatenated ranges, in
// range order, plus whether id was found at all.
func (e Entry) Offset(id uint64) (uint64, bool) {
	var offset uint64
	for _, r := range e.Ranges {
		if r.Contains(id) {
			return offset + (id - r.Start), true
		}
		offset += r.Size()
	}
	return 0, false
}

// Take splits amount identifiers off the front of ranges, in range order,
// returning the taken ranges and whatever remains. A range straddling the
// boundary is split in two. ok is false if ranges carry fewer than amount
// identifiers in total, in which case taken and rest are both nil.
func Take(ranges []Range, amount uint64) (taken []Range, rest []Range, ok bool) {
	for i, r := range ranges {
		if amount == 0 {
			return taken, ranges[i:], true
		}
		size := r.Size()
		if size <= amount {
			taken = append(taken, r)
			amount -= size
			continue
		}
		taken = append(taken, Range{Start: r.Start, End: r.Start + amount})
		rest = append(rest, Range{Start: r.Start + amount, End: r.End})
		rest = append(rest, ranges[i+1:]...)
		return taken, rest, true
	}
	if amount == 0 {
		return taken, nil, true
	}
	return nil, nil, false
}

// Manifest is a set of wallet-owned outputs, kept in a deterministic order
// so selection logic never depends on Go's randomized map iteration.
type Manifest []Entry

// LessOutPoint orders outpoints the way a BTreeMap<OutPoint, _> would: by
// txid bytes, then by output index.
func LessOutPoint(a, b wire.OutPoint) bool {
	if c := bytes.Compare(a.Hash[:], b.Hash[:]); c != 0 {
		return c < 0
	}
	return a.Index < b.Index
}

// Sorted returns a copy of m ordered by OutPoint.
func (m Manifest) Sorted() Manifest {
	out := make(Manifest, len(m))
	copy(out, m)
	sort.Slice(out, func(i, j int) bool {
		return LessOutPoint(out[i].OutPoint, out[j].OutPoint)
	})
	return out
}

// Find locates the unique entry whose ranges contain id, returning its index
// in m and id's offset within that entry's concatenated ranges.
func (m Manifest) Find(id uint64) (index int, offset uint64, ok bool) {
	for i, e := range m {
		if off, found := e.Offset(id); found {
			return i, off, true
		}
	}
	return 0, 0, false
}

// Without returns a copy of m with the entry at index removed.
func (m Manifest) Without(index int) Manifest {
	out := make(Manifest, 0, len(m)-1)
	out = append(out, m[:index]...)
	out = append(out, m[index+1:]...)
	return out
}

// Validate checks that every range of every entry is non-empty, i.e. has
// Start < End. It does not check that an entry has any ranges at all, nor
// how an entry's ranges are ordered relative to each other.
func (m Manifest) Validate() error {
	for _, e := range m {
		for _, r := range e.Ranges {
			if r.Start >= r.End {
				return &InvalidRangeError{OutPoint: e.OutPoint, Range: r}
			}
		}
	}
	return nil
}

// InvalidRangeError reports a range failing Start < End.
type InvalidRangeError struct {
	OutPoint wire.OutPoint
	Range    Range
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("rangemanifest: invalid range [%d,%d) in %s", e.Range.Start, e.Range.End, e.OutPoint.String())
}
