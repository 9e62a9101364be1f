package fraud

import (
	"regexp"
	"strconv"
	"time"
)

// Medical council registration formats. Council prefixes are fixed by
// the registering body; the trailing component is the year of
// registration.
var (
	allopathicPattern  = regexp.MustCompile(`^([A-Z]{2})/(\d{4,6})/(\d{4})$`)
	ayurvedicPattern   = regexp.MustCompile(`^AYUR/([A-Z]{2})/(\d{3,5})/(\d{4})$`)
	homeopathicPattern = regexp.MustCompile(`^HOM/([A-Z]{2})/(\d{3,5})/(\d{4})$`)
	dentalPattern      = regexp.MustCompile(`^([A-Z]{2})/D/(\d{3,5})/(\d{4})$`)
)

// stateCodes are the state medical council codes accepted for
// allopathic registrations.
var stateCodes = map[string]bool{
	"AP": true, "AR": true, "AS": true, "BR": true, "CG": true,
	"DL": true, "GA": true, "GJ": true, "HR": true, "HP": true,
	"JH": true, "JK": true, "KA": true, "KL": true, "MH": true,
	"ML": true, "MN": true, "MP": true, "MZ": true, "NL": true,
	"OD": true, "PB": true, "RJ": true, "SK": true, "TN": true,
	"TR": true, "TS": true, "UK": true, "UP": true, "WB": true,
}

// ValidRegistration reports whether a doctor registration string
// matches a recognized council format with a plausible year.
func ValidRegistration(reg string, now time.Time) bool {
	if reg == "" {
		return false
	}

	if m := dentalPattern.FindStringSubmatch(reg); m != nil {
		return validYear(m[3], now)
	}
	if m := ayurvedicPattern.FindStringSubmatch(reg); m != nil {
		return validYear(m[3], now)
	}
	if m := homeopathicPattern.FindStringSubmatch(reg); m != nil {
		return validYear(m[3], now)
	}
	if m := allopathicPattern.FindStringSubmatch(reg); m != nil {
		return stateCodes[m[1]] && validYear(m[3], now)
	}
	return false
}

func validYear(s string, now time.Time) bool {
	year, err := strconv.Atoi(s)
	if err != nil {
		return false
	}
	return year >= 1950 && year <= now.Year()
}
