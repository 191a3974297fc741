package grading

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// leadingNumber matches the longest numeric prefix, the way browsers'
// parseFloat reads "4.0", "  9.81 m/s2" or "1e3". Go-only spellings such as
// hex floats, "inf" or "nan" do not match.
var leadingNumber = regexp.MustCompile(`^[+-]?(?:Infinity|(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?)`)

// parseFloatLoose parses the numeric prefix of s. ok is false when s does not
// start with a number.
func parseFloatLoose(s string) (float64, bool) {
	m := leadingNumber.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return v, true
}
