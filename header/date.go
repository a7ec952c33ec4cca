package header

import (
	"strings"
	"time"
)

// DateTime is a parsed RFC 5322 date-time. TZOffset is seconds east of
// UTC; Indeterminate marks the obsolete zones that RFC 5322 maps to
// "-0000", i.e. a known UTC time with an unknown local zone.
type DateTime struct {
	Year, Month, Day     int
	Hour, Minute, Second int
	TZOffset             int
	Indeterminate        bool `json:"indeterminate,omitempty" bson:"indeterminate,omitempty"`
}

// Time converts the components to a time.Time in the parsed zone.
// Indeterminate zones convert as UTC.
func (d *DateTime) Time() time.Time {
	loc := time.UTC
	if d.TZOffset != 0 {
		loc = time.FixedZone("", d.TZOffset)
	}
	return time.Date(d.Year, time.Month(d.Month), d.Day, d.Hour, d.Minute, d.Second, 0, loc)
}

var monthNums = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// namedZones are the obsolete zone names RFC 5322 assigns offsets to.
var namedZones = map[string]int{
	"ut": 0, "gmt": 0, "utc": 0,
	"est": -5 * 3600, "edt": -4 * 3600,
	"cst": -6 * 3600, "cdt": -5 * 3600,
	"mst": -7 * 3600, "mdt": -6 * 3600,
	"pst": -8 * 3600, "pdt": -7 * 3600,
}

// ParseDate parses an RFC 5322 date-time, tolerating the obsolete forms:
// optional day-of-week, two-digit years, comments, missing seconds, and
// the obsolete zone names. Military single-letter zones carry no reliable
// offset and parse as an indeterminate -0000. A value that cannot be read
// as a date returns nil; it is never an error.
func ParseDate(value []byte) *DateTime {
	words := splitDateWords(value)
	if len(words) == 0 {
		return nil
	}
	// Optional "Mon," day-of-week; also tolerated without the comma.
	if len(words) > 0 && isAlphaWord(words[0]) {
		if _, isMonth := monthNums[strings.ToLower(trimComma(words[0]))]; !isMonth {
			words = words[1:]
		}
	}
	if len(words) < 4 {
		return nil
	}

	d := &DateTime{}
	day, ok := atoiSafe(trimComma(words[0]))
	if !ok {
		// Obsolete "month day" ordering.
		if m, isMonth := monthNums[strings.ToLower(trimComma(words[0]))]; isMonth {
			d.Month = m
			day, ok = atoiSafe(trimComma(words[1]))
			if !ok {
				return nil
			}
			d.Day = day
			words = words[2:]
		} else {
			return nil
		}
	} else {
		d.Day = day
		m, isMonth := monthNums[strings.ToLower(trimComma(words[1]))]
		if !isMonth {
			return nil
		}
		d.Month = m
		words = words[2:]
	}

	if len(words) < 2 {
		return nil
	}
	year, ok := atoiSafe(words[0])
	if !ok {
		return nil
	}
	switch {
	case year < 50:
		year += 2000
	case year < 100:
		year += 1900
	}
	d.Year = year

	if !parseClock(words[1], d) {
		return nil
	}

	if len(words) >= 3 {
		parseZone(words[2], d)
	} else {
		d.Indeterminate = true
	}

	if d.Month < 1 || d.Month > 12 || d.Day < 1 || d.Day > 31 ||
		d.Hour > 23 || d.Minute > 59 || d.Second > 60 {
		return nil
	}
	return d
}

// parseClock reads HH:MM[:SS].
func parseClock(w string, d *DateTime) bool {
	parts := strings.Split(w, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return false
	}
	h, ok1 := atoiSafe(parts[0])
	m, ok2 := atoiSafe(parts[1])
	if !ok1 || !ok2 {
		return false
	}
	d.Hour, d.Minute = h, m
	if len(parts) == 3 {
		s, ok := atoiSafe(parts[2])
		if !ok {
			return false
		}
		d.Second = s
	}
	return true
}

// parseZone reads ±HHMM, a named zone, or an obsolete military letter.
func parseZone(w string, d *DateTime) {
	if w == "" {
		d.Indeterminate = true
		return
	}
	if w[0] == '+' || w[0] == '-' {
		if n, ok := atoiSafe(w[1:]); ok && len(w) >= 4 {
			off := (n/100)*3600 + (n%100)*60
			if w[0] == '-' {
				off = -off
				if n == 0 {
					// "-0000": zone unknown by declaration.
					d.Indeterminate = true
				}
			}
			d.TZOffset = off
			return
		}
		d.Indeterminate = true
		return
	}
	name := strings.ToLower(w)
	if off, ok := namedZones[name]; ok {
		d.TZOffset = off
		return
	}
	// Military letters and anything unrecognized: -0000 per RFC 5322 4.3.
	d.Indeterminate = true
}

// splitDateWords splits on whitespace with comments removed.
func splitDateWords(value []byte) []string {
	var words []string
	var cur strings.Builder
	depth := 0
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case depth > 0:
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return words
}

func trimComma(w string) string { return strings.TrimSuffix(w, ",") }

func isAlphaWord(w string) bool {
	w = trimComma(w)
	if w == "" {
		return false
	}
	for i := 0; i < len(w); i++ {
		c := w[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}

func atoiSafe(s string) (int, bool) {
	if s == "" || len(s) > 9 {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
		n = n*10 + int(s[i]-'0')
	}
	return n, true
}
