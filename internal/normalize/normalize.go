// Package normalize provides pure string, time and number helpers used by
// field computations.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// TitleCase converts a free-text name or address line to title case using
// English capitalization rules. Input casing is discarded first, so
// shouting-case source data ("123 MAIN STREET") comes out readable.
func TitleCase(s string) string {
	return titleCaser.String(strings.ToLower(strings.TrimSpace(s)))
}

// Tags extracts a lowercase, deduplicated token set from a list of free-text
// fields, preserving first-seen order. Used for fuzzy search indexing.
func Tags(parts ...string) []string {
	seen := map[string]bool{}
	var tags []string
	for _, part := range parts {
		for _, tok := range splitTokens(part) {
			tok = strings.ToLower(tok)
			if tok == "" || seen[tok] {
				continue
			}
			seen[tok] = true
			tags = append(tags, tok)
		}
	}
	return tags
}

func splitTokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// PostalCode canonicalizes a postal code: strip all whitespace, uppercase.
func PostalCode(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// Phone combines an area code with a local number into one display string.
func Phone(areaCode, number string) string {
	areaCode = strings.TrimSpace(areaCode)
	number = strings.TrimSpace(number)
	switch {
	case areaCode == "" && number == "":
		return ""
	case areaCode == "":
		return number
	default:
		return fmt.Sprintf("(%s) %s", areaCode, number)
	}
}

// MinutesSinceMidnight parses a clock string ("9:30 AM", "21:00") into
// minutes since midnight.
func MinutesSinceMidnight(s string) (int, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" {
		return 0, fmt.Errorf("empty clock value")
	}

	meridiem := ""
	for _, suffix := range []string{"AM", "PM"} {
		if strings.HasSuffix(s, suffix) {
			meridiem = suffix
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
			break
		}
	}

	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		hh, mm = s, "0"
	}
	hours, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("bad hour in clock value %q", s)
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("bad minute in clock value %q", s)
	}
	if minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("clock value %q out of range", s)
	}
	// 12-hour values carry a meridiem; bare values are 24-hour.
	if meridiem != "" {
		if hours < 1 || hours > 12 {
			return 0, fmt.Errorf("clock value %q out of range", s)
		}
	} else if hours < 0 || hours > 23 {
		return 0, fmt.Errorf("clock value %q out of range", s)
	}

	switch meridiem {
	case "AM":
		if hours == 12 {
			hours = 0
		}
	case "PM":
		if hours != 12 {
			hours += 12
		}
	}
	return hours*60 + minutes, nil
}

// FlagFromCode reports whether an external code value equals the
// sentinel "yes" marker.
func FlagFromCode(code string) bool {
	return strings.TrimSpace(strings.ToUpper(code)) == "Y"
}
