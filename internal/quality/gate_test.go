package quality

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSufficient(t *testing.T) {
	numericDense := strings.Repeat("Hemoglobin 13.5 g/dL\nHematocrit 41%\n", 20)
	proseOnly := strings.Repeat("The patient reports feeling well overall.\n", 20)

	tests := []struct {
		name string
		text string
		th   Thresholds
		want bool
	}{
		{"empty", "", DefaultThresholds(), false},
		{"whitespace only", "   \n\t\n  ", DefaultThresholds(), false},
		{"below min length", "Glucose 92 mg/dL", DefaultThresholds(), false},
		{"long but no numeric lines", proseOnly, DefaultThresholds(), false},
		{"numeric dense report", numericDense, DefaultThresholds(), true},
		{"zero-value thresholds fall back to defaults", numericDense, Thresholds{}, true},
		{
			"numeric density just under threshold",
			strings.Repeat("plain prose line without digits\n", 99) + "value 42\n",
			Thresholds{MinLength: 100, MinNumericLinesPct: 5},
			false,
		},
		{
			"numeric density at threshold",
			strings.Repeat("plain prose line without digits\n", 95) + strings.Repeat("value 42\n", 5),
			Thresholds{MinLength: 100, MinNumericLinesPct: 5},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSufficient(tt.text, tt.th))
		})
	}
}

func TestIsSufficientShortTextAlwaysFails(t *testing.T) {
	// Property: any trimmed text shorter than MinLength is insufficient,
	// regardless of numeric density.
	th := DefaultThresholds()
	for _, text := range []string{"1 2 3 4 5", "99.9%", strings.Repeat("7\n", 50)} {
		if len(strings.TrimSpace(text)) < th.MinLength {
			assert.False(t, IsSufficient(text, th), "text %q", text)
		}
	}
}
