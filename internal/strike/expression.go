package strike

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var legRefPattern = regexp.MustCompile(`\{LEG(\d+)\.(STRIKE|PREMIUM)\}`)

// substituteLegRefs replaces every {LEGn.STRIKE} / {LEGn.PREMIUM} token in
// expr with the corresponding numeric value from legs (1-indexed), so the
// result is a plain arithmetic expression govaluate can evaluate.
func substituteLegRefs(expr string, legs []LegRef) (string, error) {
	matches := legRefPattern.FindAllStringSubmatch(expr, -1)
	if matches == nil {
		return expr, nil
	}

	out := expr
	for _, m := range matches {
		idx, _ := strconv.Atoi(m[1])
		idx-- // LEG1 -> index 0
		if idx < 0 || idx >= len(legs) {
			return "", fmt.Errorf("strike: leg index out of range in %q (have %d legs)", m[0], len(legs))
		}

		var value float64
		if m[2] == "STRIKE" {
			value = legs[idx].Strike
		} else {
			value = legs[idx].OpenPremium
		}

		out = strings.Replace(out, m[0], strconv.FormatFloat(value, 'f', -1, 64), 1)
	}
	return out, nil
}
