package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"jobmate/harvester-service/internal/model"
)

var digitRun = regexp.MustCompile(`\d+`)

// Budget is the parsed form of a budget string.
type Budget struct {
	Min  *float64
	Max  *float64
	Type model.BudgetType
}

// ParseBudget classifies and bounds a free-text budget:
//
//	"USD 50 - 100"       -> min 50, max 100, fixed
//	"Over USD 45 / hour" -> min 45, hourly
//	"Less than USD 50"   -> max 50, fixed
//
// This is a heuristic. Mixed phrasing such as "over USD 45 - 100" only
// yields min 45; that is an accepted limitation of the parser.
func ParseBudget(text string) Budget {
	s := strings.TrimSpace(text)
	if s == "" {
		return Budget{Type: model.BudgetUnknown}
	}
	lower := strings.ToLower(s)

	b := Budget{Type: model.BudgetFixed}
	if strings.Contains(lower, "/ hour") || strings.Contains(lower, "hourly") {
		b.Type = model.BudgetHourly
	}

	nums := integerRuns(strings.ReplaceAll(s, ",", ""))

	switch {
	case strings.Contains(lower, "over") || strings.Contains(lower, "more than"):
		if len(nums) > 0 {
			b.Min = &nums[0]
		}
	case strings.Contains(lower, "less than") || strings.Contains(lower, "under"):
		if len(nums) > 0 {
			b.Max = &nums[0]
		}
	case len(nums) >= 2:
		b.Min, b.Max = &nums[0], &nums[1]
	case len(nums) == 1:
		b.Min = &nums[0]
	}
	return b
}

func integerRuns(s string) []float64 {
	runs := digitRun.FindAllString(s, -1)
	out := make([]float64, 0, len(runs))
	for _, r := range runs {
		n, err := strconv.ParseInt(r, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, float64(n))
	}
	return out
}
