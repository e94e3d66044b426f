package aggregator

import (
	"regexp"
	"strconv"
	"strings"
)

var digitsPattern = regexp.MustCompile(`\d+`)

// ShortenName cuts name to maxLen runes and appends "..." when it was longer.
func ShortenName(name string, maxLen int) string {
	if maxLen <= 0 {
		return name
	}
	runes := []rune(name)
	if len(runes) <= maxLen {
		return name
	}
	return string(runes[:maxLen]) + "..."
}

// ExtractMinPrice reads the first number of a price bucket such as
// "Rp 10.000 - Rp 25.000", ignoring thousands separators. Buckets without
// digits give 0.
func ExtractMinPrice(bucket string) int64 {
	cleaned := strings.NewReplacer(",", "", ".", "").Replace(bucket)
	match := digitsPattern.FindString(cleaned)
	if match == "" {
		return 0
	}
	n, err := strconv.ParseInt(match, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
