package consumables

import "sort"

// ConsumptionPolicy は消費要求を在庫行へ適用し、満たせなかった残量を返す。
// どの行からいくつ引くかの方針だけを担い、units_consumed の加算や
// 導出値の再計算は呼び出し側（Service）が行う。
type ConsumptionPolicy interface {
	Consume(rows []*Consumable, quantity int) int
}

// GroupFifoConsumption は同一 description の全ロットを期限昇順に
// items_on_stock から消費する。不明期限（"N/A"等）のロットは最後。
type GroupFifoConsumption struct{}

func (GroupFifoConsumption) Consume(rows []*Consumable, quantity int) int {
	remaining := ClampNonNeg(quantity)
	if remaining == 0 {
		return 0
	}

	sorted := make([]*Consumable, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return lessByExpiration(sorted[i].Expiration, sorted[j].Expiration)
	})

	for _, r := range sorted {
		on := ClampNonNeg(r.ItemsOnStock)
		if on <= 0 {
			continue
		}
		take := on
		if remaining < take {
			take = remaining
		}
		r.ItemsOnStock = on - take
		remaining -= take
		if remaining == 0 {
			break
		}
	}
	return remaining
}

// SingleRowConsumption は対象行の items_out だけを減らす。ロット横断はしない。
type SingleRowConsumption struct{}

func (SingleRowConsumption) Consume(rows []*Consumable, quantity int) int {
	remaining := ClampNonNeg(quantity)
	if remaining == 0 || len(rows) == 0 {
		return remaining
	}

	r := rows[0]
	out := ClampNonNeg(r.ItemsOut)
	take := out
	if remaining < take {
		take = remaining
	}
	r.ItemsOut = out - take
	return remaining - take
}

// PolicyFromName: 設定値からポリシーを選ぶ。未知・空は group_fifo。
func PolicyFromName(name string) ConsumptionPolicy {
	if name == "single_row" {
		return SingleRowConsumption{}
	}
	return GroupFifoConsumption{}
}
