package synth

import (
	"strings"
	"unicode"

	"github.com/recipeclip/recipeclip/internal/scrape"
)

// durationKeys are the schema.org Recipe fields that carry ISO-8601
// durations.
var durationKeys = []string{"prepTime", "cookTime", "totalTime", "performTime"}

// normalizeDurations returns a copy of the document with ISO-8601 duration
// strings replaced by integer minutes. Other fields pass through untouched.
func normalizeDurations(data scrape.StructuredData) scrape.StructuredData {
	out := make(scrape.StructuredData, len(data))
	for k, v := range data {
		out[k] = v
	}
	for _, key := range durationKeys {
		if s, ok := out[key].(string); ok {
			if minutes, ok := MinutesFromISO8601(s); ok {
				out[key] = minutes
			}
		}
	}
	return out
}

// MinutesFromISO8601 converts an ISO-8601 duration (e.g. "PT1H30M") to
// integer minutes. Seconds round to the nearest minute. It returns false
// for anything that does not parse as a duration.
func MinutesFromISO8601(s string) (int, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 2 || s[0] != 'P' {
		return 0, false
	}

	var minutes, num, seconds int
	inTime := false
	sawComponent := false

	for _, r := range s[1:] {
		switch {
		case unicode.IsDigit(r):
			num = num*10 + int(r-'0')
		case r == 'T':
			inTime = true
			num = 0
		case r == 'D':
			minutes += num * 24 * 60
			num = 0
			sawComponent = true
		case r == 'H':
			if !inTime {
				return 0, false
			}
			minutes += num * 60
			num = 0
			sawComponent = true
		case r == 'M':
			if !inTime {
				// Months are ambiguous for cooking times; reject.
				return 0, false
			}
			minutes += num
			num = 0
			sawComponent = true
		case r == 'S':
			if !inTime {
				return 0, false
			}
			seconds = num
			num = 0
			sawComponent = true
		default:
			return 0, false
		}
	}

	if !sawComponent {
		return 0, false
	}
	if seconds >= 30 {
		minutes++
	}
	return minutes, true
}
