package gtfs

import (
	"log/slog"
	"strings"
	"sync"
)

// Scope describes the station the index is narrowed to.
type Scope struct {
	RouteToken     string // case-insensitive substring of route_long_name
	StopToken      string // case-insensitive substring of stop_name
	ExcludedStopID string // parent place id, never an arrival point
	WindowMinutes  int    // arrival match window after the requested time
}

// Index holds the static tables narrowed to the target station, plus the
// lookup maps the matcher and composer work from. It is built once at
// startup and never mutated afterwards.
type Index struct {
	scope Scope

	Routes        []Route
	Trips         []Trip
	StopTimes     []StopTime
	Calendar      []CalendarEntry
	CalendarDates []CalendarException
	Stops         []Stop

	tripsByID       map[string][]Trip
	tripsByRouteID  map[string][]Trip
	stopTimesByTrip map[string][]StopTime
	routesByID      map[string][]Route
	hubStopIDs      map[string]struct{}
}

// Tables holds the six raw static tables before scoping.
type Tables struct {
	Routes        []Route
	Trips         []Trip
	StopTimes     []StopTime
	Calendar      []CalendarEntry
	CalendarDates []CalendarException
	Stops         []Stop
}

// BuildIndex loads the six static tables and derives the scoped views. The
// raw loads run concurrently; the narrowing chain is sequential because each
// table can only be pruned once its parent is known. A missing or broken
// table degrades to an empty one.
func BuildIndex(loader *Loader, scope Scope, logger *slog.Logger) *Index {
	names := []string{
		TableRoutes, TableTrips, TableStopTimes,
		TableCalendar, TableCalendarDates, TableStops,
	}

	loaded := make(map[string]*Table, len(names))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			t, err := loader.Load(name)
			if err != nil {
				logger.Warn("static table unavailable, using empty table",
					"table", name, "error", err)
				t = &Table{}
			}
			mu.Lock()
			loaded[name] = t
			mu.Unlock()
		}(name)
	}
	wg.Wait()

	idx := NewIndex(scope, Tables{
		Routes:        loaded[TableRoutes].Routes,
		Trips:         loaded[TableTrips].Trips,
		StopTimes:     loaded[TableStopTimes].StopTimes,
		Calendar:      loaded[TableCalendar].Calendar,
		CalendarDates: loaded[TableCalendarDates].CalendarDates,
		Stops:         loaded[TableStops].Stops,
	})

	logger.Info("static index built",
		"routes", len(idx.Routes),
		"trips", len(idx.Trips),
		"stop_times", len(idx.StopTimes),
		"stops", len(idx.Stops),
		"calendar", len(idx.Calendar),
		"calendar_dates", len(idx.CalendarDates),
	)
	return idx
}

// NewIndex derives the scoped views from raw tables. The narrowing is pure:
// every derived row's parent key is present in its upstream derived table,
// and an empty upstream table simply yields empty derived tables.
func NewIndex(scope Scope, tables Tables) *Index {
	idx := &Index{scope: scope}

	// routes: long name must mention the station.
	token := strings.ToLower(scope.RouteToken)
	for _, r := range tables.Routes {
		if strings.Contains(strings.ToLower(r.RouteLongName), token) {
			idx.Routes = append(idx.Routes, r)
		}
	}

	// trips: route must be in scope.
	routeIDs := make(map[string]struct{}, len(idx.Routes))
	for _, r := range idx.Routes {
		routeIDs[r.RouteID] = struct{}{}
	}
	for _, t := range tables.Trips {
		if _, ok := routeIDs[t.RouteID]; ok {
			idx.Trips = append(idx.Trips, t)
		}
	}

	// stop_times: trip must be in scope.
	tripIDs := make(map[string]struct{}, len(idx.Trips))
	for _, t := range idx.Trips {
		tripIDs[t.TripID] = struct{}{}
	}
	for _, st := range tables.StopTimes {
		if _, ok := tripIDs[st.TripID]; ok {
			idx.StopTimes = append(idx.StopTimes, st)
		}
	}

	// stops: referenced by a scoped stop_time, named for the station, and
	// not the grouping pseudo-stop.
	stopIDs := make(map[string]struct{}, len(idx.StopTimes))
	for _, st := range idx.StopTimes {
		stopIDs[st.StopID] = struct{}{}
	}
	stopToken := strings.ToLower(scope.StopToken)
	for _, s := range tables.Stops {
		if _, ok := stopIDs[s.StopID]; !ok {
			continue
		}
		if !strings.Contains(strings.ToLower(s.StopName), stopToken) {
			continue
		}
		if s.StopID == scope.ExcludedStopID {
			continue
		}
		idx.Stops = append(idx.Stops, s)
	}

	// calendar tables stay unfiltered; lookups are service-id driven.
	idx.Calendar = tables.Calendar
	idx.CalendarDates = tables.CalendarDates

	idx.buildLookups()
	return idx
}

func (idx *Index) buildLookups() {
	idx.tripsByID = make(map[string][]Trip)
	idx.tripsByRouteID = make(map[string][]Trip)
	for _, t := range idx.Trips {
		idx.tripsByID[t.TripID] = append(idx.tripsByID[t.TripID], t)
		idx.tripsByRouteID[t.RouteID] = append(idx.tripsByRouteID[t.RouteID], t)
	}
	idx.stopTimesByTrip = make(map[string][]StopTime)
	for _, st := range idx.StopTimes {
		idx.stopTimesByTrip[st.TripID] = append(idx.stopTimesByTrip[st.TripID], st)
	}
	idx.routesByID = make(map[string][]Route)
	for _, r := range idx.Routes {
		idx.routesByID[r.RouteID] = append(idx.routesByID[r.RouteID], r)
	}
	idx.hubStopIDs = make(map[string]struct{}, len(idx.Stops))
	for _, s := range idx.Stops {
		idx.hubStopIDs[s.StopID] = struct{}{}
	}
}

// UniqueShortNames returns the scoped route short names in first-appearance
// order, deduplicated. This is the route selection menu.
func (idx *Index) UniqueShortNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, r := range idx.Routes {
		if _, ok := seen[r.RouteShortName]; ok {
			continue
		}
		seen[r.RouteShortName] = struct{}{}
		names = append(names, r.RouteShortName)
	}
	return names
}

// LongNamesForShortName returns the distinct long names carried by routes
// with the given short name, in table order.
func (idx *Index) LongNamesForShortName(short string) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, r := range idx.Routes {
		if r.RouteShortName != short {
			continue
		}
		if _, ok := seen[r.RouteLongName]; ok {
			continue
		}
		seen[r.RouteLongName] = struct{}{}
		names = append(names, r.RouteLongName)
	}
	return names
}

// RouteIDsForShortNames resolves route short names to every scoped route id
// carrying one of them.
func (idx *Index) RouteIDsForShortNames(shorts []string) []string {
	want := make(map[string]struct{}, len(shorts))
	for _, s := range shorts {
		want[s] = struct{}{}
	}
	var ids []string
	for _, r := range idx.Routes {
		if _, ok := want[r.RouteShortName]; ok {
			ids = append(ids, r.RouteID)
		}
	}
	return ids
}

// TripsByID returns the scoped trips with the given trip id.
func (idx *Index) TripsByID(tripID string) []Trip {
	return idx.tripsByID[tripID]
}

// ShortNameForTrip resolves a trip id to its route's short name. Empty when
// the trip or its route is not in scope.
func (idx *Index) ShortNameForTrip(tripID string) string {
	trips := idx.tripsByID[tripID]
	if len(trips) == 0 {
		return ""
	}
	routes := idx.routesByID[trips[0].RouteID]
	if len(routes) == 0 {
		return ""
	}
	return routes[0].RouteShortName
}

// IsHubStop reports whether stopID is one of the station's arrival points.
func (idx *Index) IsHubStop(stopID string) bool {
	_, ok := idx.hubStopIDs[stopID]
	return ok
}
