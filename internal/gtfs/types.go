package gtfs

import "time"

// Route is a scoped row of routes.txt.
type Route struct {
	RouteID        string
	RouteShortName string
	RouteLongName  string
}

// Trip is a scoped row of trips.txt.
type Trip struct {
	TripID       string
	RouteID      string
	ServiceID    string
	TripHeadsign string
}

// StopTime is a scoped row of stop_times.txt. ArrivalTime keeps the raw
// HH:MM:SS text because GTFS hours may exceed 24 to describe post-midnight
// service on the previous service day.
type StopTime struct {
	TripID       string
	StopID       string
	ArrivalTime  string
	StopSequence int
}

// Stop is a scoped row of stops.txt.
type Stop struct {
	StopID   string
	StopName string
}

// CalendarEntry is a row of calendar.txt. Weekdays is indexed by
// time.Weekday (Sunday=0 .. Saturday=6). Dates are kept in their YYYYMMDD
// form; that encoding orders lexicographically.
type CalendarEntry struct {
	ServiceID string
	Weekdays  [7]bool
	StartDate string
	EndDate   string
}

// ExceptionType is the calendar_dates.txt exception_type column.
type ExceptionType int

const (
	ExceptionAdded   ExceptionType = 1
	ExceptionRemoved ExceptionType = 2
)

// CalendarException is a row of calendar_dates.txt.
type CalendarException struct {
	ServiceID     string
	Date          string // YYYYMMDD
	ExceptionType ExceptionType
}

// dateKey renders a date in the YYYYMMDD form used by calendar tables.
func dateKey(t time.Time) string {
	return t.Format("20060102")
}
