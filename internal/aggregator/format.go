package aggregator

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// FormatMagnitude renders a number for a metric card: "2.3Bn", "1.5M" or a
// comma-grouped integer. nil renders as "-"; strings that are not numbers are
// returned unchanged and other non-numeric values fall back to fmt.Sprint.
func FormatMagnitude(value any) string {
	var f float64
	switch v := value.(type) {
	case nil:
		return "-"
	case *float64:
		if v == nil {
			return "-"
		}
		f = *v
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case bool:
		if v {
			f = 1
		}
	case decimal.Decimal:
		f = v.InexactFloat64()
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return v
		}
		f = parsed
	default:
		return fmt.Sprint(v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "-"
	}

	switch abs := math.Abs(f); {
	case abs >= 1_000_000_000:
		return strconv.FormatFloat(f/1_000_000_000, 'f', 1, 64) + "Bn"
	case abs >= 1_000_000:
		return strconv.FormatFloat(f/1_000_000, 'f', 1, 64) + "M"
	default:
		return humanize.Comma(int64(math.RoundToEven(f)))
	}
}
