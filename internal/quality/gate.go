// Package quality decides whether already-extracted text is rich enough to
// drive text-only inference, or whether the whole document must be submitted.
package quality

import "strings"

// Thresholds configures the sufficiency heuristic.
type Thresholds struct {
	MinLength          int     // minimum trimmed length
	MinNumericLinesPct float64 // minimum percentage of lines containing a digit
}

// DefaultThresholds returns the production gate settings. Data-bearing
// documents (lab results, structured reports) have a measurable density of
// numeric lines; prose and boilerplate do not.
func DefaultThresholds() Thresholds {
	return Thresholds{MinLength: 300, MinNumericLinesPct: 5}
}

// IsSufficient reports whether text alone can drive inference. Fail-closed:
// any internal panic is treated as "insufficient" and never propagates.
func IsSufficient(text string, th Thresholds) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	if th.MinLength <= 0 {
		th.MinLength = DefaultThresholds().MinLength
	}
	if th.MinNumericLinesPct <= 0 {
		th.MinNumericLinesPct = DefaultThresholds().MinNumericLinesPct
	}

	trimmed := strings.TrimSpace(text)
	if len(trimmed) < th.MinLength {
		return false
	}

	var lines, numeric int
	for _, line := range strings.Split(trimmed, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines++
		if containsDigit(line) {
			numeric++
		}
	}
	if lines == 0 {
		return false
	}

	pct := float64(numeric) / float64(lines) * 100
	return pct >= th.MinNumericLinesPct
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
