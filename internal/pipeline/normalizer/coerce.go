package normalizer

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Date layouts seen across vendor extracts, tried in order. Everything
// normalizes to a single canonical time.Time before it reaches the store.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// parseMoney normalizes a monetary field to a canonical decimal string.
func parseMoney(raw string) (string, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return "", fmt.Errorf("invalid amount %q", raw)
	}
	return d.String(), nil
}

// parseQty accepts integer quantities, tolerating the "10.0" float form
// some vendor extracts emit.
func parseQty(raw string) (int64, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil || !d.IsInteger() {
		return 0, fmt.Errorf("invalid quantity %q", raw)
	}
	return d.IntPart(), nil
}
