// Package ordinal implements the arithmetic and textual encodings for
// ordinal identifiers: the stable, globally unique integer assigned to every
// atomic unit minted by the emission schedule, determined by issuance order.
package ordinal

import "fmt"

// CoinValue is the number of atomic units in one full coin (1 BTC = 1e8 sat).
const CoinValue = 100_000_000

// SubsidyHalvingInterval is the number of blocks between subsidy halvings.
const SubsidyHalvingInterval = 210_000

// DiffchangeInterval is the number of blocks in one difficulty period.
const DiffchangeInterval = 2016

// CycleEpochs is the number of epochs in one cycle: chosen so that epoch and
// difficulty-period boundaries realign (CycleEpochs*SubsidyHalvingInterval
// is a multiple of DiffchangeInterval).
const CycleEpochs = 6

// Supply is the total number of identifiers ever minted.
const Supply uint64 = 2_099_999_997_690_000

// Identifier is an integer in [0, Supply) naming a single atomic unit by its
// issuance order.
type Identifier uint64

// Last is the highest valid identifier.
const Last Identifier = Identifier(Supply - 1)

// Add returns the identifier n positions after id.
func (id Identifier) Add(n uint64) Identifier {
	return Identifier(uint64(id) + n)
}

// N returns the identifier's underlying integer value.
func (id Identifier) N() uint64 {
	return uint64(id)
}

// Epoch returns the halving epoch id belongs to.
func (id Identifier) Epoch() Epoch {
	return EpochFromIdentifier(id)
}

// EpochPosition returns id's offset from the start of its epoch.
func (id Identifier) EpochPosition() uint64 {
	return uint64(id) - uint64(id.Epoch().StartingIdentifier())
}

// Height returns the block height at which id was mined.
func (id Identifier) Height() Height {
	epoch := id.Epoch()
	subsidy := epoch.Subsidy()
	if subsidy == 0 {
		return epoch.StartingHeight()
	}
	return epoch.StartingHeight() + Height(id.EpochPosition()/subsidy)
}

// Third returns id's position within the emission of the block that mined it.
func (id Identifier) Third() uint64 {
	subsidy := id.Epoch().Subsidy()
	if subsidy == 0 {
		return 0
	}
	return id.EpochPosition() % subsidy
}

// Period returns the difficulty-adjustment period id's block falls in.
func (id Identifier) Period() uint64 {
	return uint64(id.Height()) / DiffchangeInterval
}

// Cycle returns the cycle number id's epoch falls in.
func (id Identifier) Cycle() uint64 {
	return uint64(id.Epoch()) / CycleEpochs
}

// IsCommon is a fast equivalent of Rarity() == Common, used on hot paths
// where the full classification isn't needed.
func (id Identifier) IsCommon() bool {
	epoch := id.Epoch()
	subsidy := epoch.Subsidy()
	if subsidy == 0 {
		return false
	}
	return id.EpochPosition()%subsidy != 0
}

// Rarity classifies id: Mythic for identifier 0; Legendary for the first
// identifier of an epoch that starts a cycle, Epic for the first identifier
// of any other epoch; Rare for the first identifier of a block that starts a
// difficulty period; Uncommon for the first identifier of any other block;
// Common otherwise.
func (id Identifier) Rarity() Rarity {
	if id == 0 {
		return Mythic
	}

	epoch := id.Epoch()
	subsidy := epoch.Subsidy()
	if subsidy == 0 {
		return Common
	}

	epochPosition := id.EpochPosition()
	third := epochPosition % subsidy

	if third != 0 {
		return Common
	}

	if epochPosition == 0 {
		if uint64(epoch)%CycleEpochs == 0 {
			return Legendary
		}
		return Epic
	}

	if uint64(id.Height())%DiffchangeInterval == 0 {
		return Rare
	}

	return Uncommon
}

func (id Identifier) String() string {
	return fmt.Sprintf("%d", uint64(id))
}
