package consumables

import (
	"strconv"
	"strings"
)

// ToInt は緩い型の入力（数値・数値文字列・空文字・"N/A"）を整数に寄せる。
// 解釈できないものは def。エラーは返さない — 不正入力で台帳を壊さないための方針。
func ToInt(v any, def int) int {
	switch x := v.(type) {
	case nil:
		return def
	case int:
		return x
	case int32:
		return int(x)
	case int64:
		return int(x)
	case float64:
		// JSONの数値は float64 で来る
		return int(x)
	case string:
		s := strings.TrimSpace(x)
		if s == "" || strings.EqualFold(s, "N/A") {
			return def
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return def
		}
		return n
	default:
		return def
	}
}

// ClampNonNeg: ToInt で整数化したうえで 0 未満を 0 に切り上げる。
func ClampNonNeg(v any) int {
	n := ToInt(v, 0)
	if n < 0 {
		return 0
	}
	return n
}

// expirationRank: 整形されたISO日付（10文字・ハイフン2個）を 0、
// "N/A" や空などの不明値を 1 とする。不明在庫は「最後に期限が来る」扱い。
func expirationRank(exp string) int {
	s := strings.TrimSpace(exp)
	if len(s) == 10 && strings.Count(s, "-") == 2 {
		return 0
	}
	return 1
}

// lessByExpiration: FIFO並べ替え用。ISO日付同士は文字列順（= 日付順）、
// 不明値は常に最後で、不明値同士は同順とみなす。
func lessByExpiration(a, b string) bool {
	ra, rb := expirationRank(a), expirationRank(b)
	if ra != rb {
		return ra < rb
	}
	if ra == 1 {
		return false
	}
	return strings.TrimSpace(a) < strings.TrimSpace(b)
}
