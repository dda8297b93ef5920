package gtfs

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
)

// ErrUnknownTable reports a table name outside the closed set this tracker
// consumes. It marks a programming error, not bad input data.
var ErrUnknownTable = errors.New("unknown table name")

// Table names accepted by Loader.Load.
const (
	TableRoutes        = "routes"
	TableTrips         = "trips"
	TableStopTimes     = "stop_times"
	TableCalendar      = "calendar"
	TableCalendarDates = "calendar_dates"
	TableStops         = "stops"
)

// Table holds the typed rows of one parsed static table. Exactly one field
// is populated, matching the name the table was loaded under.
type Table struct {
	Routes        []Route
	Trips         []Trip
	StopTimes     []StopTime
	Calendar      []CalendarEntry
	CalendarDates []CalendarException
	Stops         []Stop
}

// Loader reads the delimited static tables from a directory, one <name>.txt
// file per table.
type Loader struct {
	dir    string
	logger *slog.Logger
}

// NewLoader creates a Loader rooted at dir.
func NewLoader(dir string, logger *slog.Logger) *Loader {
	return &Loader{dir: dir, logger: logger}
}

// Load parses the named table into typed records. Missing or unreadable
// files surface as wrapped filesystem errors so callers can degrade to an
// empty table; malformed values fail the whole call.
func (l *Loader) Load(name string) (*Table, error) {
	path := filepath.Join(l.dir, name+".txt")
	t := &Table{}
	var err error

	switch name {
	case TableRoutes:
		t.Routes, err = parseTableFile[Route](path)
	case TableTrips:
		t.Trips, err = parseTableFile[Trip](path)
	case TableStopTimes:
		var raw []rawStopTime
		if raw, err = parseTableFile[rawStopTime](path); err == nil {
			t.StopTimes, err = coerceStopTimes(raw)
		}
	case TableCalendar:
		var raw []rawCalendar
		if raw, err = parseTableFile[rawCalendar](path); err == nil {
			t.Calendar, err = coerceCalendar(raw)
		}
	case TableCalendarDates:
		var raw []rawCalendarDate
		if raw, err = parseTableFile[rawCalendarDate](path); err == nil {
			t.CalendarDates, err = coerceCalendarDates(raw)
		}
	case TableStops:
		t.Stops, err = parseTableFile[Stop](path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}

	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	l.logger.Debug("static table loaded", "table", name,
		"rows", len(t.Routes)+len(t.Trips)+len(t.StopTimes)+
			len(t.Calendar)+len(t.CalendarDates)+len(t.Stops))
	return t, nil
}

// Raw row shapes for tables whose columns need numeric or boolean coercion.
// All other tables decode straight into their typed records.

type rawStopTime struct {
	TripID       string `csv:"trip_id"`
	StopID       string `csv:"stop_id"`
	ArrivalTime  string `csv:"arrival_time"`
	StopSequence string `csv:"stop_sequence"`
}

type rawCalendar struct {
	ServiceID string `csv:"service_id"`
	Monday    string `csv:"monday"`
	Tuesday   string `csv:"tuesday"`
	Wednesday string `csv:"wednesday"`
	Thursday  string `csv:"thursday"`
	Friday    string `csv:"friday"`
	Saturday  string `csv:"saturday"`
	Sunday    string `csv:"sunday"`
	StartDate string `csv:"start_date"`
	EndDate   string `csv:"end_date"`
}

type rawCalendarDate struct {
	ServiceID     string `csv:"service_id"`
	Date          string `csv:"date"`
	ExceptionType string `csv:"exception_type"`
}

func coerceStopTimes(raw []rawStopTime) ([]StopTime, error) {
	out := make([]StopTime, 0, len(raw))
	for i, r := range raw {
		seq, err := strconv.Atoi(r.StopSequence)
		if err != nil {
			return nil, fmt.Errorf("row %d: stop_sequence %q: %w", i+1, r.StopSequence, err)
		}
		out = append(out, StopTime{
			TripID:       r.TripID,
			StopID:       r.StopID,
			ArrivalTime:  r.ArrivalTime,
			StopSequence: seq,
		})
	}
	return out, nil
}

func coerceCalendar(raw []rawCalendar) ([]CalendarEntry, error) {
	out := make([]CalendarEntry, 0, len(raw))
	for i, r := range raw {
		e := CalendarEntry{
			ServiceID: r.ServiceID,
			StartDate: r.StartDate,
			EndDate:   r.EndDate,
		}
		// Indexed by time.Weekday: Sunday first.
		cols := [7]struct {
			name, value string
		}{
			{"sunday", r.Sunday},
			{"monday", r.Monday},
			{"tuesday", r.Tuesday},
			{"wednesday", r.Wednesday},
			{"thursday", r.Thursday},
			{"friday", r.Friday},
			{"saturday", r.Saturday},
		}
		for day, col := range cols {
			switch col.value {
			case "0":
				// inactive
			case "1":
				e.Weekdays[day] = true
			default:
				return nil, fmt.Errorf("row %d: %s flag %q", i+1, col.name, col.value)
			}
		}
		out = append(out, e)
	}
	return out, nil
}

func coerceCalendarDates(raw []rawCalendarDate) ([]CalendarException, error) {
	out := make([]CalendarException, 0, len(raw))
	for i, r := range raw {
		var et ExceptionType
		switch r.ExceptionType {
		case "1":
			et = ExceptionAdded
		case "2":
			et = ExceptionRemoved
		default:
			return nil, fmt.Errorf("row %d: exception_type %q", i+1, r.ExceptionType)
		}
		out = append(out, CalendarException{
			ServiceID:     r.ServiceID,
			Date:          r.Date,
			ExceptionType: et,
		})
	}
	return out, nil
}

// parseTableFile reads a header-delimited text file and decodes it into a
// slice of T using `csv` struct tags.
func parseTableFile[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	// Strip BOM from first field if present
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\xef\xbb\xbf")
	}

	fieldMap := buildFieldMap[T](header)

	var results []T
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		results = append(results, decodeRecord[T](record, fieldMap))
	}
	return results, nil
}

type fieldMapping struct {
	csvIndex   int
	fieldIndex int
}

// buildFieldMap creates a mapping from column positions to struct field
// positions. Fields without a csv tag map by their snake_cased name, so the
// typed records do not need redundant tags.
func buildFieldMap[T any](header []string) []fieldMapping {
	var t T
	typ := reflect.TypeOf(t)

	tagToField := make(map[string]int)
	for i := 0; i < typ.NumField(); i++ {
		tag := typ.Field(i).Tag.Get("csv")
		if tag == "" {
			tag = snakeCase(typ.Field(i).Name)
		}
		tagToField[tag] = i
	}

	var mappings []fieldMapping
	for csvIdx, colName := range header {
		colName = strings.TrimSpace(colName)
		if fieldIdx, ok := tagToField[colName]; ok {
			mappings = append(mappings, fieldMapping{csvIndex: csvIdx, fieldIndex: fieldIdx})
		}
	}
	return mappings
}

// decodeRecord fills a struct T from a record using the field mapping. Only
// string fields participate; typed columns go through the raw row shapes.
func decodeRecord[T any](record []string, fieldMap []fieldMapping) T {
	var t T
	v := reflect.ValueOf(&t).Elem()
	for _, fm := range fieldMap {
		if fm.csvIndex < len(record) && v.Field(fm.fieldIndex).Kind() == reflect.String {
			v.Field(fm.fieldIndex).SetString(strings.TrimSpace(record[fm.csvIndex]))
		}
	}
	return t
}

// snakeCase converts an exported field name like RouteShortName to its
// column form route_short_name. Consecutive capitals (as in RouteID) fold
// into one segment.
func snakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			prevLower := i > 0 && name[i-1] >= 'a' && name[i-1] <= 'z'
			if prevLower {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
