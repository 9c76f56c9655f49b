package consumables

import "testing"

func TestRecalculateDerivedFields(t *testing.T) {
	c := &Consumable{ItemsOut: 2, ItemsOnStock: 3, UnitsConsumed: 4}
	Recalculate(c)

	if c.BalanceStock != 5 {
		t.Errorf("BalanceStock = %d, want 5", c.BalanceStock)
	}
	if c.PreviousMonthStock != 9 {
		t.Errorf("PreviousMonthStock = %d, want 9", c.PreviousMonthStock)
	}
}

func TestRecalculateClampsNegatives(t *testing.T) {
	c := &Consumable{ItemsOut: -1, ItemsOnStock: -5, UnitsConsumed: -2}
	Recalculate(c)

	if c.ItemsOut != 0 || c.ItemsOnStock != 0 || c.UnitsConsumed != 0 {
		t.Errorf("quantities not clamped: out=%d stock=%d consumed=%d", c.ItemsOut, c.ItemsOnStock, c.UnitsConsumed)
	}
	if c.BalanceStock != 0 || c.PreviousMonthStock != 0 {
		t.Errorf("derived fields not zero: balance=%d prev=%d", c.BalanceStock, c.PreviousMonthStock)
	}
}

func TestRecalculateIdempotent(t *testing.T) {
	c := &Consumable{ItemsOut: 1, ItemsOnStock: 7, UnitsConsumed: 2, BalanceStock: 99, PreviousMonthStock: 99}
	Recalculate(c)
	first := *c
	Recalculate(c)

	if *c != first {
		t.Errorf("second Recalculate changed the row: %+v != %+v", *c, first)
	}
}
