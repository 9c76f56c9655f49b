package consumables

// Recalculate は行の量フィールドを正規化し、導出値を再計算する。
// 冪等・インプレース。生フィールドを触った後は必ずこれを通すこと —
// 導出値の整合性はここ1箇所だけで保証する。
func Recalculate(c *Consumable) {
	c.ItemsOut = ClampNonNeg(c.ItemsOut)
	c.ItemsOnStock = ClampNonNeg(c.ItemsOnStock)
	c.UnitsConsumed = ClampNonNeg(c.UnitsConsumed)

	c.BalanceStock = c.ItemsOut + c.ItemsOnStock
	c.PreviousMonthStock = ClampNonNeg(c.ItemsOut + c.ItemsOnStock + c.UnitsConsumed)
}
