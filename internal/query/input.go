// Package query validates user query input at the boundary of the pipeline.
// Each validator returns a typed outcome instead of re-prompting; the CLI
// owns the prompt loop.
package query

import (
	"regexp"
	"strconv"
	"time"
)

// DateStatus classifies a departure date input.
type DateStatus int

const (
	DateOK DateStatus = iota
	// DateMalformed: not YYYY-MM-DD, or an impossible month/day.
	DateMalformed
	// DateOutOfRange: well-formed but outside the year the loaded dataset
	// covers. Distinct from malformed so the CLI can explain the limit.
	DateOutOfRange
)

var (
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

// ParseDate validates a YYYY-MM-DD departure date against the supported
// year. The year check runs before month/day validation: any date outside
// the supported year is out of range, not malformed.
func ParseDate(input string, supportedYear int) (time.Time, DateStatus) {
	if !dateRe.MatchString(input) {
		return time.Time{}, DateMalformed
	}
	year, _ := strconv.Atoi(input[0:4])
	month, _ := strconv.Atoi(input[5:7])
	day, _ := strconv.Atoi(input[8:10])

	if year != supportedYear {
		return time.Time{}, DateOutOfRange
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, DateMalformed
	}
	if month == 2 && day > 28 {
		return time.Time{}, DateMalformed
	}
	switch month {
	case 4, 6, 9, 11:
		if day > 30 {
			return time.Time{}, DateMalformed
		}
	}

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local), DateOK
}

// ParseClock validates an HH:MM 24-hour departure time and returns it in
// canonical form.
func ParseClock(input string) (string, bool) {
	if !timeRe.MatchString(input) {
		return "", false
	}
	return input, true
}

// ResolveRouteChoice maps a menu selection onto route short names: option 1
// selects every scoped short name, options 2..9 select one. The input must
// be the bare decimal digits of a valid option.
func ResolveRouteChoice(input string, shortNames []string) ([]string, bool) {
	option, err := strconv.Atoi(input)
	if err != nil || input != strconv.Itoa(option) {
		return nil, false
	}
	if option < 1 || option > 9 {
		return nil, false
	}
	if option == 1 {
		return shortNames, true
	}
	if option-2 >= len(shortNames) {
		return nil, false
	}
	return []string{shortNames[option-2]}, true
}
