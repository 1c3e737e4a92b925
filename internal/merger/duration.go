package merger

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	hmsRe     = regexp.MustCompile(`^(\d+):(\d{2}):(\d{2})$`)
	msRe      = regexp.MustCompile(`^(\d+):(\d{2})$`)
	minutesRe = regexp.MustCompile(`^~?\s*(\d+(?:\.\d+)?)\s*(?:minutes?|min)\s*$`)
	bareNumRe = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*$`)
)

// ParseDuration accepts "MM:SS", "HH:MM:SS", "N minutes", "~N min", "N"
// (treated as minutes), and the literal "Unknown" (-> 0), returning seconds.
func ParseDuration(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "unknown") {
		return 0
	}
	if m := hmsRe.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mi, _ := strconv.Atoi(m[2])
		se, _ := strconv.Atoi(m[3])
		return float64(h*3600 + mi*60 + se)
	}
	if m := msRe.FindStringSubmatch(s); m != nil {
		mi, _ := strconv.Atoi(m[1])
		se, _ := strconv.Atoi(m[2])
		return float64(mi*60 + se)
	}
	if m := minutesRe.FindStringSubmatch(s); m != nil {
		mins, _ := strconv.ParseFloat(m[1], 64)
		return mins * 60
	}
	if m := bareNumRe.FindStringSubmatch(s); m != nil {
		mins, _ := strconv.ParseFloat(m[1], 64)
		return mins * 60
	}
	return 0
}

// FormatHMS formats a duration in seconds as HH:MM:SS.
func FormatHMS(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds + 0.5)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
