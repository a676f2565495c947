package ordinal

import (
	"fmt"
	"strconv"
	"strings"
)

// halvingIncrement is how much the relationship between epoch offset and
// period offset shifts on every halving: SubsidyHalvingInterval mod
// DiffchangeInterval.
const halvingIncrement = SubsidyHalvingInterval % DiffchangeInterval

// Degree is the "C°E′P″B‴" textual form of an identifier: cycle, offset
// into epoch, offset into difficulty period, offset into block.
type Degree struct {
	Cycle       uint64
	EpochOffset uint64
	PeriodOffset uint64
	BlockOffset uint64
}

// Degree converts id to its cycle/epoch/period/block form.
func (id Identifier) Degree() Degree {
	height := id.Height()
	epoch := id.Epoch()
	return Degree{
		Cycle:        id.Cycle(),
		EpochOffset:  uint64(height) - uint64(epoch.StartingHeight()),
		PeriodOffset: uint64(height) % DiffchangeInterval,
		BlockOffset:  id.Third(),
	}
}

func (d Degree) String() string {
	return fmt.Sprintf("%d°%d′%d″%d‴", d.Cycle, d.EpochOffset, d.PeriodOffset, d.BlockOffset)
}

// ParseDegree parses a "C°E′P″B‴" string into an identifier. The trailing
// "B‴" block-offset component is optional and defaults to 0.
func ParseDegree(s string) (Identifier, error) {
	cycleStr, rest, ok := strings.Cut(s, "°")
	if !ok {
		return 0, fmt.Errorf("ordinal: degree %q missing ° symbol", s)
	}
	cycleNumber, err := strconv.ParseUint(cycleStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("ordinal: invalid cycle in degree %q: %w", s, err)
	}

	epochOffsetStr, rest, ok := strings.Cut(rest, "′")
	if !ok {
		return 0, fmt.Errorf("ordinal: degree %q missing ′ symbol", s)
	}
	epochOffset, err := strconv.ParseUint(epochOffsetStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("ordinal: invalid epoch offset in degree %q: %w", s, err)
	}
	if epochOffset >= SubsidyHalvingInterval {
		return 0, fmt.Errorf("ordinal: invalid epoch offset %d", epochOffset)
	}

	periodOffsetStr, rest, ok := strings.Cut(rest, "″")
	if !ok {
		return 0, fmt.Errorf("ordinal: degree %q missing ″ symbol", s)
	}
	periodOffset, err := strconv.ParseUint(periodOffsetStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("ordinal: invalid period offset in degree %q: %w", s, err)
	}
	if periodOffset >= DiffchangeInterval {
		return 0, fmt.Errorf("ordinal: invalid period offset %d", periodOffset)
	}

	cycleStartEpoch := cycleNumber * CycleEpochs

	// For valid degrees the relationship between epoch offset and period
	// offset increments by halvingIncrement every halving.
	relationship := periodOffset + SubsidyHalvingInterval*CycleEpochs - epochOffset
	if relationship%halvingIncrement != 0 {
		return 0, fmt.Errorf("ordinal: relationship between epoch offset and period offset must be a multiple of %d", halvingIncrement)
	}

	epochsSinceCycleStart := (relationship % DiffchangeInterval) / halvingIncrement
	epoch := cycleStartEpoch + epochsSinceCycleStart
	height := Height(epoch*SubsidyHalvingInterval + epochOffset)

	var blockOffset uint64
	if blockOffsetStr, trailing, ok := strings.Cut(rest, "‴"); ok {
		blockOffset, err = strconv.ParseUint(blockOffsetStr, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("ordinal: invalid block offset in degree %q: %w", s, err)
		}
		rest = trailing
	}

	if rest != "" {
		return 0, fmt.Errorf("ordinal: trailing characters in degree %q", s)
	}

	if blockOffset >= height.Subsidy() {
		return 0, fmt.Errorf("ordinal: invalid block offset %d", blockOffset)
	}

	return height.StartingIdentifier().Add(blockOffset), nil
}
