package scraper

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripDeliveredPrefix(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected string
	}{
		{
			name:     "standard line",
			line:     "Delivered on Mon, 5 Jan 2024, 10:30",
			expected: "Mon, 5 Jan 2024, 10:30",
		},
		{
			name:     "case insensitive prefix",
			line:     "DELIVERED ON Tue, 6 Feb 2024, 13:05",
			expected: "Tue, 6 Feb 2024, 13:05",
		},
		{
			name:     "comma after the prefix",
			line:     "Delivered on, Mon, 5 Jan 2024, 10:30",
			expected: ", Mon, 5 Jan 2024, 10:30",
		},
		{
			name:     "no prefix",
			line:     "Mon, 5 Jan 2024, 10:30",
			expected: "Mon, 5 Jan 2024, 10:30",
		},
		{
			name:     "empty line",
			line:     "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripDeliveredPrefix(tt.line))
		})
	}
}

func TestCaptureName(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected string
		valid    bool
	}{
		{
			name:     "standard delivered line",
			line:     "Delivered on Mon, 5 Jan 2024, 10:30",
			expected: "5_Jan_2024_10_30.png",
			valid:    true,
		},
		{
			name:     "comma after the prefix",
			line:     "Delivered on, Mon, 5 Jan 2024, 10:30",
			expected: "_5_Jan_2024_10_30.png",
			valid:    true,
		},
		{
			name:  "empty line",
			line:  "",
			valid: false,
		},
		{
			name:  "prefix only",
			line:  "Delivered on",
			valid: false,
		},
		{
			name:  "too short after truncation",
			line:  "Delivered on Mon",
			valid: false,
		},
		{
			name:  "too long after truncation",
			line:  "Delivered on " + strings.Repeat("x", 80),
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, ok := CaptureName(tt.line)

			if !tt.valid {
				assert.False(t, ok)
				assert.Empty(t, result)
				return
			}

			require.True(t, ok)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestCaptureNameIsDeterministic(t *testing.T) {
	line := "Delivered on Wed, 7 Feb 2024, 20:45"

	first, ok := CaptureName(line)
	require.True(t, ok)
	second, ok := CaptureName(line)
	require.True(t, ok)

	assert.Equal(t, first, second)
	assert.True(t, strings.HasSuffix(first, ".png"))
	assert.NotContains(t, first, " ")
	assert.NotContains(t, first, ":")
	assert.NotContains(t, first, ",")
}

func TestDefaultCaptureName(t *testing.T) {
	assert.Equal(t, "swiggy_order_details_1.png", DefaultCaptureName(1))
	assert.Equal(t, "swiggy_order_details_12.png", DefaultCaptureName(12))
}
