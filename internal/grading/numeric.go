package grading

import (
	"math"
	"strconv"
	"strings"
)

// numericEqual reports whether both strings read as the same number, so
// "0.50" matches ".5". Values within a relative 1e-9 are equal.
func numericEqual(resp, key string) bool {
	rv, rOK := parseFloatLoose(resp)
	kv, kOK := parseFloatLoose(key)
	if !rOK || !kOK {
		return false
	}
	diff := math.Abs(rv - kv)
	return diff == 0 || diff <= 1e-9*math.Max(math.Abs(rv), math.Abs(kv))
}

// parseFloatLoose accepts a bare number or a number followed by a unit.
func parseFloatLoose(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}
	if sp := strings.Fields(s); len(sp) > 0 {
		if v, err := strconv.ParseFloat(sp[0], 64); err == nil {
			return v, true
		}
	}
	return 0, false
}
