package consumables

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

var csvHeader = []string{
	"description", "balance_stock", "unit", "is_returnable",
	"expiration", "lot_number", "date_received", "items_out",
	"items_on_stock", "previous_month_stock", "units_consumed", "units_expired",
}

// ExportCSV: 一覧の検索・ソート条件をそのまま反映したCSVを返す。
// 一覧と違いページングはせず、該当する全行を書き出す。
// Excel（Windows）でそのまま開けるよう Shift_JIS で出力する。
func (s *Service) ExportCSV(ctx context.Context, f ConsumableFilter) ([]byte, error) {
	items, err := s.store.ListAll(ctx, f)
	if err != nil {
		return nil, err
	}

	var b bytes.Buffer
	enc := japanese.ShiftJIS.NewEncoder()
	w := csv.NewWriter(transform.NewWriter(&b, enc))

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for i := range items {
		c := &items[i]
		returnable := "No"
		if c.IsReturnable {
			returnable = "Yes"
		}
		expired := ""
		if c.UnitsExpired != nil {
			expired = strconv.Itoa(*c.UnitsExpired)
		}
		rec := []string{
			c.Description,
			strconv.Itoa(c.BalanceStock),
			c.Unit,
			returnable,
			c.Expiration,
			c.LotNumber,
			c.DateReceived,
			strconv.Itoa(c.ItemsOut),
			strconv.Itoa(c.ItemsOnStock),
			strconv.Itoa(c.PreviousMonthStock),
			strconv.Itoa(c.UnitsConsumed),
			expired,
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
