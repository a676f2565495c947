package ordinal

// Epoch is a halving epoch: a range of consecutive blocks sharing a subsidy.
type Epoch uint64

// EpochFromHeight returns the epoch containing block height h.
func EpochFromHeight(h Height) Epoch {
	return Epoch(uint64(h) / SubsidyHalvingInterval)
}

// EpochFromIdentifier returns the epoch that minted id.
func EpochFromIdentifier(id Identifier) Epoch {
	var epoch Epoch
	var minted uint64
	for {
		size := epoch.Size()
		if size == 0 {
			// Supply is exhausted before epoch; id must already have been
			// accounted for by an earlier epoch, or id is out of range.
			return epoch
		}
		if uint64(id) < minted+size {
			return epoch
		}
		minted += size
		epoch++
	}
}

// StartingHeight returns the block height at which epoch e begins.
func (e Epoch) StartingHeight() Height {
	return Height(uint64(e) * SubsidyHalvingInterval)
}

// Subsidy returns the per-block coinbase emission throughout epoch e.
func (e Epoch) Subsidy() uint64 {
	return e.StartingHeight().Subsidy()
}

// Size returns how many identifiers epoch e mints in total.
func (e Epoch) Size() uint64 {
	return SubsidyHalvingInterval * e.Subsidy()
}

// StartingIdentifier returns the first identifier minted in epoch e. The sum
// converges after a bounded number of epochs since Subsidy halves to zero;
// callers may pass arbitrarily large e without unbounded work.
func (e Epoch) StartingIdentifier() Identifier {
	var total uint64
	for i := Epoch(0); i < e; i++ {
		size := i.Size()
		if size == 0 {
			break
		}
		total += size
	}
	return Identifier(total)
}
