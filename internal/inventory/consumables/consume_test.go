package consumables

import "testing"

func lot(id int64, expiration string, onStock int) *Consumable {
	return &Consumable{ConsumableID: id, Description: "Ethanol 95%", Expiration: expiration, ItemsOnStock: onStock}
}

func totalOnStock(rows []*Consumable) int {
	sum := 0
	for _, r := range rows {
		sum += r.ItemsOnStock
	}
	return sum
}

func TestGroupFifoDrainsSoonestExpirationFirst(t *testing.T) {
	rows := []*Consumable{
		lot(1, "2029-01-01", 5),
		lot(2, "N/A", 5),
		lot(3, "2025-01-01", 5),
	}

	remainder := GroupFifoConsumption{}.Consume(rows, 7)
	if remainder != 0 {
		t.Fatalf("remainder = %d, want 0", remainder)
	}

	// 2025-01-01 のロットが先に空になり、次が 2029-01-01、N/A は最後
	if rows[2].ItemsOnStock != 0 {
		t.Errorf("soonest-expiring lot = %d, want 0", rows[2].ItemsOnStock)
	}
	if rows[0].ItemsOnStock != 3 {
		t.Errorf("later-expiring lot = %d, want 3", rows[0].ItemsOnStock)
	}
	if rows[1].ItemsOnStock != 5 {
		t.Errorf("unknown-expiration lot = %d, want 5 (untouched)", rows[1].ItemsOnStock)
	}
}

func TestGroupFifoShortfallDrainsEverything(t *testing.T) {
	rows := []*Consumable{
		lot(1, "2025-01-01", 5),
	}

	remainder := GroupFifoConsumption{}.Consume(rows, 8)
	if remainder != 3 {
		t.Errorf("remainder = %d, want 3", remainder)
	}
	if rows[0].ItemsOnStock != 0 {
		t.Errorf("ItemsOnStock = %d, want 0", rows[0].ItemsOnStock)
	}
}

func TestGroupFifoFullSatisfaction(t *testing.T) {
	rows := []*Consumable{lot(1, "2025-01-01", 5)}

	remainder := GroupFifoConsumption{}.Consume(rows, 3)
	if remainder != 0 {
		t.Errorf("remainder = %d, want 0", remainder)
	}
	if rows[0].ItemsOnStock != 2 {
		t.Errorf("ItemsOnStock = %d, want 2", rows[0].ItemsOnStock)
	}
}

func TestGroupFifoConservation(t *testing.T) {
	rows := []*Consumable{
		lot(1, "2026-03-01", 2),
		lot(2, "2026-04-01", 3),
		lot(3, "N/A", 4),
	}
	before := totalOnStock(rows)
	requested := 6

	remainder := GroupFifoConsumption{}.Consume(rows, requested)
	consumed := before - totalOnStock(rows)

	if want := requested - remainder; consumed != want {
		t.Errorf("consumed %d units, want %d", consumed, want)
	}
}

func TestGroupFifoZeroAndNegativeAreNoops(t *testing.T) {
	for _, qty := range []int{0, -4} {
		rows := []*Consumable{lot(1, "2025-01-01", 5)}
		remainder := GroupFifoConsumption{}.Consume(rows, qty)
		if remainder != 0 {
			t.Errorf("Consume(%d): remainder = %d, want 0", qty, remainder)
		}
		if rows[0].ItemsOnStock != 5 {
			t.Errorf("Consume(%d): stock mutated to %d", qty, rows[0].ItemsOnStock)
		}
	}
}

func TestGroupFifoSkipsEmptyLots(t *testing.T) {
	rows := []*Consumable{
		lot(1, "2025-01-01", 0),
		lot(2, "2026-01-01", 4),
	}
	remainder := GroupFifoConsumption{}.Consume(rows, 2)
	if remainder != 0 {
		t.Errorf("remainder = %d, want 0", remainder)
	}
	if rows[1].ItemsOnStock != 2 {
		t.Errorf("second lot = %d, want 2", rows[1].ItemsOnStock)
	}
}

func TestSingleRowConsumesItemsOutOnly(t *testing.T) {
	row := &Consumable{ConsumableID: 1, ItemsOut: 4, ItemsOnStock: 10}

	remainder := SingleRowConsumption{}.Consume([]*Consumable{row}, 6)
	if remainder != 2 {
		t.Errorf("remainder = %d, want 2", remainder)
	}
	if row.ItemsOut != 0 {
		t.Errorf("ItemsOut = %d, want 0", row.ItemsOut)
	}
	if row.ItemsOnStock != 10 {
		t.Errorf("ItemsOnStock = %d, want 10 (untouched)", row.ItemsOnStock)
	}
}

func TestSingleRowNoRowsReturnsFullRequest(t *testing.T) {
	remainder := SingleRowConsumption{}.Consume(nil, 5)
	if remainder != 5 {
		t.Errorf("remainder = %d, want 5", remainder)
	}
}

func TestPolicyFromName(t *testing.T) {
	if _, ok := PolicyFromName("single_row").(SingleRowConsumption); !ok {
		t.Error(`PolicyFromName("single_row") is not SingleRowConsumption`)
	}
	if _, ok := PolicyFromName("").(GroupFifoConsumption); !ok {
		t.Error(`PolicyFromName("") is not GroupFifoConsumption`)
	}
	if _, ok := PolicyFromName("group_fifo").(GroupFifoConsumption); !ok {
		t.Error(`PolicyFromName("group_fifo") is not GroupFifoConsumption`)
	}
}
