package intent

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/unicode/norm"
)

var (
	accentStripper = runes.Remove(runes.In(unicode.Mn))
	yearRe         = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	clockRe        = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
)

// foldAccents lowercases s and strips combining marks so that "Reunión"
// and "reunion" compare equal in fuzzy title matching.
func foldAccents(s string) string {
	decomposed := norm.NFD.String(s)
	stripped := accentStripper.String(decomposed)
	return strings.ToLower(stripped)
}

// mentionsYear reports whether the text carries an explicit 4-digit year,
// in which case model-produced dates are trusted as-is.
func mentionsYear(text string) bool {
	return yearRe.MatchString(text)
}

// combineDateTime builds an instant from a "2006-01-02" date and a "15:04"
// clock, interpreted in loc and returned in UTC.
func combineDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// parseDate parses a bare "2006-01-02" date in loc, returned in UTC.
func parseDate(date string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// adjustYearIfMissing re-anchors a model-produced date to the current year
// when the user never said one: models habitually answer with their
// training-data year. Dates that then land in the past roll forward one
// year so "el 3 de enero" said in December means next January.
func adjustYearIfMissing(date string, userText string, now time.Time, loc *time.Location) string {
	if date == "" || mentionsYear(userText) {
		return date
	}
	parsed, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return date
	}
	nowLocal := now.In(loc)
	anchored := time.Date(nowLocal.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, loc)
	today := time.Date(nowLocal.Year(), nowLocal.Month(), nowLocal.Day(), 0, 0, 0, 0, loc)
	if anchored.Before(today) {
		anchored = anchored.AddDate(1, 0, 0)
	}
	return anchored.Format("2006-01-02")
}

// parseClock normalizes a clock fragment like "9", "09:30", "3pm" or
// "3:15 PM" to 24h "15:04". The empty string means no clock found.
func parseClock(raw string) string {
	m := clockRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return ""
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil || hour > 23 {
		return ""
	}
	minute := 0
	if m[2] != "" {
		minute, err = strconv.Atoi(m[2])
		if err != nil || minute > 59 {
			return ""
		}
	}
	switch strings.ToLower(m[3]) {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	return twoDigits(hour) + ":" + twoDigits(minute)
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
