package ordinal

// Rarity classifies an identifier by how special its position in the
// emission schedule is. Ordered Common < Uncommon < Rare < Epic < Legendary
// < Mythic so callers can compare with `>` (e.g. "is this UTXO's first
// identifier rarer than Common?").
type Rarity int

const (
	Common Rarity = iota
	Uncommon
	Rare
	Epic
	Legendary
	Mythic
)

func (r Rarity) String() string {
	switch r {
	case Common:
		return "common"
	case Uncommon:
		return "uncommon"
	case Rare:
		return "rare"
	case Epic:
		return "epic"
	case Legendary:
		return "legendary"
	case Mythic:
		return "mythic"
	default:
		return "unknown"
	}
}
