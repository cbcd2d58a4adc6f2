package sales

import (
	"fmt"
	"time"
)

const saleNumberPrefix = "POS"

// FormatSaleNumber renders the human-readable sale identifier for the
// given calendar day and per-day sequence value, e.g. POS202608280003.
// The sequence itself must come from an atomic per-day counter; counting
// existing rows races under concurrent commits.
func FormatSaleNumber(day time.Time, seq int) string {
	return fmt.Sprintf("%s%s%04d", saleNumberPrefix, day.Format("20060102"), seq)
}
