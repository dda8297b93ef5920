package gtfs

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestIsServiceActive(t *testing.T) {
	idx := NewIndex(testScope(), testTables())

	tests := []struct {
		name      string
		serviceID string
		date      time.Time
		want      bool
	}{
		{"weekday service on a Monday", "WD", date(2023, time.April, 24), true},
		{"weekday service on a Sunday", "WD", date(2023, time.April, 23), false},
		{"saturday service on a Saturday", "SAT", date(2023, time.April, 22), true},
		{"saturday service on a Monday", "SAT", date(2023, time.April, 24), false},
		{"before start date", "WD", date(2022, time.December, 30), false},
		{"after end date", "WD", date(2024, time.January, 1), false},
		{"start date boundary is inclusive", "SAT", date(2023, time.January, 7), true},
		{"no calendar row", "GHOST", date(2023, time.April, 24), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := idx.IsServiceActive(tt.serviceID, tt.date); got != tt.want {
				t.Errorf("IsServiceActive(%s, %s) = %v, want %v",
					tt.serviceID, tt.date.Format("2006-01-02"), got, tt.want)
			}
		})
	}
}

// A removal exception wins over a base calendar row that would otherwise
// match. 2023-04-17 is a Monday inside WD's range.
func TestIsServiceActive_RemovedExceptionOverrides(t *testing.T) {
	idx := NewIndex(testScope(), testTables())

	if idx.IsServiceActive("WD", date(2023, time.April, 17)) {
		t.Error("WD should be inactive on its removal-exception date")
	}
	// The surrounding Mondays are unaffected.
	if !idx.IsServiceActive("WD", date(2023, time.April, 10)) {
		t.Error("WD should be active the Monday before the exception")
	}
	if !idx.IsServiceActive("WD", date(2023, time.April, 24)) {
		t.Error("WD should be active the Monday after the exception")
	}
}

// Added exceptions are not applied positively: HOL has an added exception
// for 2023-04-18 but no base calendar row, and stays inactive.
func TestIsServiceActive_AddedExceptionIgnored(t *testing.T) {
	idx := NewIndex(testScope(), testTables())

	if idx.IsServiceActive("HOL", date(2023, time.April, 18)) {
		t.Error("added exceptions must not activate a service without a base calendar row")
	}
}
