package gtfs

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Arrival pairs a matched stop-time with its trip.
type Arrival struct {
	StopTime StopTime
	Trip     Trip
}

// FindArrivals returns the stop-times at the station's stops, on trips of
// the given routes, whose service runs on date and whose arrival falls in
// [departure, departure + window] inclusive. departure is HH:MM.
//
// Arrival times compare as minutes since midnight on the hour and minute
// only; hours past 24 describe post-midnight service and must not wrap.
// Multiple qualifying stop-times for one trip are all returned; the
// composer handles duplicates by trip identity.
func (idx *Index) FindArrivals(routeIDs []string, date time.Time, departure string) ([]Arrival, error) {
	departureMin, err := minuteOfDay(departure)
	if err != nil {
		return nil, fmt.Errorf("departure time %q: %w", departure, err)
	}

	var matches []Arrival
	for _, routeID := range routeIDs {
		for _, trip := range idx.tripsByRouteID[routeID] {
			if !idx.IsServiceActive(trip.ServiceID, date) {
				continue
			}
			for _, st := range idx.stopTimesByTrip[trip.TripID] {
				if !idx.IsHubStop(st.StopID) {
					continue
				}
				arrivalMin, err := minuteOfDay(st.ArrivalTime)
				if err != nil {
					continue
				}
				delta := arrivalMin - departureMin
				if delta < 0 || delta > idx.scope.WindowMinutes {
					continue
				}
				matches = append(matches, Arrival{StopTime: st, Trip: trip})
			}
		}
	}
	return matches, nil
}

// minuteOfDay converts HH:MM or HH:MM:SS to minutes since midnight,
// discarding seconds. Hours may exceed 24.
func minuteOfDay(t string) (int, error) {
	parts := strings.SplitN(t, ":", 3)
	if len(parts) < 2 {
		return 0, fmt.Errorf("not an HH:MM value")
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	return hours*60 + minutes, nil
}
