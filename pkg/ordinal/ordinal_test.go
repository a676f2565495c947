package ordinal

import "testing"

func TestN(t *testing.T) {
	if Identifier(1).N() != 1 {
		t.Errorf("expected 1")
	}
	if Identifier(100).N() != 100 {
		t.Errorf("expected 100")
	}
}

func TestHeight(t *testing.T) {
	cases := []struct {
		id   Identifier
		want Height
	}{
		{0, 0},
		{1, 0},
		{Identifier(Epoch(0).Subsidy()), 1},
		{Identifier(Epoch(0).Subsidy() * 2), 2},
		{Identifier(50 * CoinValue), 1},
		{2099999997689999, 6929999},
		{2099999997689998, 6929998},
	}
	for _, c := range cases {
		if got := c.id.Height(); got != c.want {
			t.Errorf("Identifier(%d).Height() = %d, want %d", c.id, got, c.want)
		}
	}
	if Epoch(2).StartingIdentifier().Height() != Height(SubsidyHalvingInterval*2) {
		t.Errorf("epoch 2 starting height mismatch")
	}
}

func TestEpoch(t *testing.T) {
	cases := []struct {
		id   Identifier
		want Epoch
	}{
		{0, 0},
		{1, 0},
		{Identifier(50 * CoinValue * SubsidyHalvingInterval), 1},
		{2099999997689999, 32},
	}
	for _, c := range cases {
		if got := c.id.Epoch(); got != c.want {
			t.Errorf("Identifier(%d).Epoch() = %d, want %d", c.id, got, c.want)
		}
	}
}

func TestEpochPosition(t *testing.T) {
	if Epoch(0).StartingIdentifier().EpochPosition() != 0 {
		t.Errorf("expected 0")
	}
	if Epoch(0).StartingIdentifier().Add(100).EpochPosition() != 100 {
		t.Errorf("expected 100")
	}
	if Epoch(1).StartingIdentifier().EpochPosition() != 0 {
		t.Errorf("expected 0")
	}
	if Epoch(2).StartingIdentifier().EpochPosition() != 0 {
		t.Errorf("expected 0")
	}
}

func TestThird(t *testing.T) {
	h0subsidy := Height(0).Subsidy()
	cases := []struct {
		id   Identifier
		want uint64
	}{
		{0, 0},
		{1, 1},
		{Identifier(h0subsidy - 1), h0subsidy - 1},
		{Identifier(h0subsidy), 0},
		{Identifier(h0subsidy + 1), 1},
		{Identifier(uint64(Epoch(1).StartingIdentifier()) + Epoch(1).Subsidy()), 0},
		{Last, 0},
	}
	for _, c := range cases {
		if got := c.id.Third(); got != c.want {
			t.Errorf("Identifier(%d).Third() = %d, want %d", c.id, got, c.want)
		}
	}
}

func TestSupply(t *testing.T) {
	var mined uint64
	for height := Height(0); ; height++ {
		subsidy := height.Subsidy()
		if subsidy == 0 {
			break
		}
		mined += subsidy
	}
	if mined != Supply {
		t.Errorf("summed subsidy = %d, want %d", mined, Supply)
	}
}

func TestLast(t *testing.T) {
	if Last != Identifier(Supply-1) {
		t.Errorf("Last mismatch")
	}
}

func TestAdd(t *testing.T) {
	if Identifier(0).Add(1) != 1 {
		t.Errorf("expected 1")
	}
	if Identifier(1).Add(100) != 101 {
		t.Errorf("expected 101")
	}
}

func TestCycle(t *testing.T) {
	if (SubsidyHalvingInterval*CycleEpochs)%DiffchangeInterval != 0 {
		t.Errorf("cycle epochs do not realign with difficulty periods")
	}
	for i := uint64(1); i < CycleEpochs; i++ {
		if (i*SubsidyHalvingInterval)%DiffchangeInterval == 0 {
			t.Errorf("epoch %d unexpectedly realigns", i)
		}
	}

	cases := []struct {
		id   Identifier
		want uint64
	}{
		{0, 0},
		{2067187500000000 - 1, 0},
		{2067187500000000, 1},
		{2067187500000000 + 1, 1},
	}
	for _, c := range cases {
		if got := c.id.Cycle(); got != c.want {
			t.Errorf("Identifier(%d).Cycle() = %d, want %d", c.id, got, c.want)
		}
	}
}

func TestIsCommon(t *testing.T) {
	cases := []Identifier{
		0, 1,
		50*CoinValue - 1, 50 * CoinValue, 50*CoinValue + 1,
		2067187500000000 - 1, 2067187500000000, 2067187500000000 + 1,
	}
	for _, id := range cases {
		if id.IsCommon() != (id.Rarity() == Common) {
			t.Errorf("Identifier(%d).IsCommon() disagrees with Rarity()", id)
		}
	}
}
