package gtfs

import "time"

// IsServiceActive reports whether the service runs on the given date.
//
// A calendar_dates removal for that exact date wins over everything else.
// Otherwise the base calendar row decides: the date must fall inside
// [start_date, end_date] and the date's weekday flag must be set. A service
// with no calendar row is inactive.
//
// Added exceptions (exception_type=1) are parsed and retained but not
// applied positively: a service outside its base calendar is never
// activated by one. Known gap, kept to match observed feed behavior.
func (idx *Index) IsServiceActive(serviceID string, date time.Time) bool {
	day := dateKey(date)

	for _, ex := range idx.CalendarDates {
		if ex.ServiceID == serviceID && ex.Date == day && ex.ExceptionType == ExceptionRemoved {
			return false
		}
	}

	weekday := date.Weekday()
	for _, entry := range idx.Calendar {
		if entry.ServiceID != serviceID {
			continue
		}
		if day < entry.StartDate || day > entry.EndDate {
			continue
		}
		if entry.Weekdays[weekday] {
			return true
		}
	}
	return false
}
