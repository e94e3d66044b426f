package models

import (
	"strconv"
	"strings"
	"time"
)

// Month is a calendar month, 1 through 12. The zero value is not a valid month.
type Month int

var monthNames = [...]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

func (m Month) Valid() bool {
	return m >= 1 && m <= 12
}

func (m Month) String() string {
	if !m.Valid() {
		return ""
	}
	return monthNames[m-1]
}

// ParseMonth accepts a month number ("6", "06", "6.0") or an English month
// name, full or abbreviated, in any case.
func ParseMonth(s string) (Month, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		m := Month(n)
		if float64(m) != n || !m.Valid() {
			return 0, false
		}
		return m, true
	}
	lower := strings.ToLower(s)
	for i, name := range monthNames {
		full := strings.ToLower(name)
		if lower == full || (len(lower) == 3 && strings.HasPrefix(full, lower)) {
			return Month(i + 1), true
		}
	}
	return 0, false
}

// Record is one scraped sales row for a product. Records are read-only after
// the dataset is loaded.
type Record struct {
	Month       Month
	Brand       string
	Category    string
	ProductName string
	PriceRange  string
	Sales       float64
	Revenue     float64
	Rating      float64
	HasRating   bool
	ScrapedAt   time.Time
}
