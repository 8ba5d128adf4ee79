package normalize

import (
	"regexp"
	"strconv"
)

var firstDecimal = regexp.MustCompile(`\d+(?:\.\d*)?`)

// MaxRating is the top of the client rating scale.
const MaxRating = 5.0

// ParseRating extracts the first number from a title attribute shaped like
// "4.75 of 5.00". Returns nil if the text holds no number or the number
// falls outside 0..MaxRating.
func ParseRating(attr string) *float64 {
	m := firstDecimal.FindString(attr)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || v > MaxRating {
		return nil
	}
	return &v
}

// FirstInt returns the first integer run in text, e.g. "12 proposals" -> 12.
func FirstInt(text string) *int {
	m := digitRun.FindString(text)
	if m == "" {
		return nil
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return &n
}
