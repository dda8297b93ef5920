// Package tracker joins matched static arrivals with live feed data into
// display-ready rows.
package tracker

import (
	"fmt"
	"time"

	"uqbus/internal/gtfs"
	"uqbus/internal/realtime"
)

// NoLiveData is the display sentinel for absent live fields. It is produced
// only at the presentation boundary; rows carry tagged optional values.
const NoLiveData = "no live data"

// LiveArrival is an optional live arrival prediction in epoch seconds.
type LiveArrival struct {
	Unix int64
	OK   bool
}

// Display renders the prediction as a local HH:MM:SS clock time.
func (a LiveArrival) Display() string {
	if !a.OK {
		return NoLiveData
	}
	return time.Unix(a.Unix, 0).Format("15:04:05")
}

// LivePosition is an optional live vehicle position. Coordinates stay
// float32 as carried on the wire so display renders them as published.
type LivePosition struct {
	Latitude  float32
	Longitude float32
	OK        bool
}

// Display renders the position in the tracker's coordinate format.
func (p LivePosition) Display() string {
	if !p.OK {
		return NoLiveData
	}
	return fmt.Sprintf("(latitude: %v, longitude: %v)", p.Latitude, p.Longitude)
}

// Row is one display-ready arrival. Rows are rebuilt for every query and
// discarded after display.
type Row struct {
	ShortName        string
	LongName         string
	ServiceID        string
	Headsign         string
	ScheduledArrival string
	LiveArrival      LiveArrival
	Position         LivePosition
}

// Compose joins matched stop-times with live records by trip identity. One
// row is emitted per matched stop-time, per trip sharing that trip id, per
// distinct long name of the trip's route; a route with several long names
// yields several rows for the same arrival.
func Compose(arrivals []gtfs.Arrival, idx *gtfs.Index, live *realtime.Manager) []Row {
	var rows []Row
	for _, a := range arrivals {
		short := idx.ShortNameForTrip(a.StopTime.TripID)
		for _, trip := range idx.TripsByID(a.StopTime.TripID) {
			liveArrival := liveArrivalFor(live, trip.TripID)
			position := positionFor(live, trip.TripID)
			for _, longName := range idx.LongNamesForShortName(short) {
				rows = append(rows, Row{
					ShortName:        short,
					LongName:         longName,
					ServiceID:        trip.ServiceID,
					Headsign:         trip.TripHeadsign,
					ScheduledArrival: a.StopTime.ArrivalTime,
					LiveArrival:      liveArrival,
					Position:         position,
				})
			}
		}
	}
	return rows
}

// liveArrivalFor applies the arrival-time precedence: the first stop-time
// update's arrival, else its departure, else nothing.
func liveArrivalFor(live *realtime.Manager, tripID string) LiveArrival {
	tu := live.TripUpdateFor(tripID)
	if tu == nil {
		return LiveArrival{}
	}
	stus := tu.GetStopTimeUpdate()
	if len(stus) == 0 {
		return LiveArrival{}
	}
	if arr := stus[0].GetArrival(); arr != nil && arr.Time != nil {
		return LiveArrival{Unix: arr.GetTime(), OK: true}
	}
	if dep := stus[0].GetDeparture(); dep != nil && dep.Time != nil {
		return LiveArrival{Unix: dep.GetTime(), OK: true}
	}
	return LiveArrival{}
}

func positionFor(live *realtime.Manager, tripID string) LivePosition {
	vp := live.VehicleFor(tripID)
	if vp == nil || vp.GetPosition() == nil {
		return LivePosition{}
	}
	pos := vp.GetPosition()
	return LivePosition{
		Latitude:  pos.GetLatitude(),
		Longitude: pos.GetLongitude(),
		OK:        true,
	}
}
