package scraper

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	captureExt        = ".png"
	maxCaptureNameLen = 50
	captureNamePrefix = 4
)

var deliveredPrefixPattern = regexp.MustCompile(`(?i)delivered on\s*`)

// StripDeliveredPrefix returns the date portion of a "Delivered on ..." line.
func StripDeliveredPrefix(line string) string {
	return strings.TrimSpace(deliveredPrefixPattern.ReplaceAllString(line, ""))
}

var captureNameSanitizer = strings.NewReplacer(",", "", " ", "_", ":", "_")

// CaptureName derives a capture filename from a delivered-date line. The
// weekday abbreviation at the front of the sanitized date is dropped, so
// "Delivered on Mon, 5 Jan 2024, 10:30" becomes "5_Jan_2024_10_30.png".
// Names that come out empty or longer than 50 characters are rejected; the
// caller falls back to DefaultCaptureName.
func CaptureName(line string) (string, bool) {
	sanitized := captureNameSanitizer.Replace(StripDeliveredPrefix(line))

	runes := []rune(sanitized)
	if len(runes) <= captureNamePrefix {
		return "", false
	}
	name := string(runes[captureNamePrefix:])

	if strings.TrimSpace(name) == "" || len([]rune(name)) > maxCaptureNameLen {
		return "", false
	}
	return name + captureExt, true
}

// DefaultCaptureName names a capture after its 1-based position in the order
// list.
func DefaultCaptureName(position int) string {
	return fmt.Sprintf("swiggy_order_details_%d%s", position, captureExt)
}
