package tracker

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"uqbus/internal/gtfs"
	"uqbus/internal/realtime"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testIndex() *gtfs.Index {
	return gtfs.NewIndex(gtfs.Scope{
		RouteToken:     "uq ",
		StopToken:      "uq lakes",
		ExcludedStopID: "place_uqlksa",
		WindowMinutes:  10,
	}, gtfs.Tables{
		Routes: []gtfs.Route{
			{RouteID: "66-3136", RouteShortName: "66", RouteLongName: "UQ Lakes - City"},
			{RouteID: "192-3195", RouteShortName: "192", RouteLongName: "UQ Lakes - Eight Mile Plains"},
		},
		Trips: []gtfs.Trip{
			{TripID: "T66-1", RouteID: "66-3136", ServiceID: "WD", TripHeadsign: "UQ Lakes"},
			{TripID: "T192-1", RouteID: "192-3195", ServiceID: "WD", TripHeadsign: "Eight Mile Plains"},
		},
		StopTimes: []gtfs.StopTime{
			{TripID: "T66-1", StopID: "1853", ArrivalTime: "08:07:00", StopSequence: 5},
			{TripID: "T192-1", StopID: "1853", ArrivalTime: "08:09:00", StopSequence: 7},
		},
		Calendar: []gtfs.CalendarEntry{
			{ServiceID: "WD", Weekdays: [7]bool{false, true, true, true, true, true, false},
				StartDate: "20230101", EndDate: "20231231"},
		},
		Stops: []gtfs.Stop{
			{StopID: "1853", StopName: "UQ Lakes station, platform A"},
		},
	})
}

// testManager builds a cache manager whose adopted snapshots come from an
// httptest endpoint serving the given feeds.
func testManager(t *testing.T, trips, vehicles *gtfsrt.FeedMessage) *realtime.Manager {
	t.Helper()
	marshal := protojson.MarshalOptions{AllowPartial: true}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var feed *gtfsrt.FeedMessage
		switch filepath.Base(r.URL.Path) {
		case realtime.TripUpdatesFeed:
			feed = trips
		case realtime.VehiclePositionsFeed:
			feed = vehicles
		}
		if feed == nil {
			http.NotFound(w, r)
			return
		}
		data, err := marshal.Marshal(feed)
		if err != nil {
			t.Errorf("marshal test feed: %v", err)
			return
		}
		w.Write(data)
	}))
	t.Cleanup(srv.Close)

	m := realtime.NewManager(realtime.Options{
		BaseURL:           srv.URL,
		CacheDir:          t.TempDir(),
		MinRefreshSeconds: 300,
		FetchTimeout:      time.Second,
		RouteIDs:          []string{"66-3136", "192-3195"},
		StopIDs:           []string{"1853"},
	}, testLogger())
	m.Init(context.Background())
	return m
}

func header(ts uint64) *gtfsrt.FeedHeader {
	return &gtfsrt.FeedHeader{
		GtfsRealtimeVersion: proto.String("2.0"),
		Timestamp:           proto.Uint64(ts),
	}
}

func tripFeed(entities ...*gtfsrt.FeedEntity) *gtfsrt.FeedMessage {
	return &gtfsrt.FeedMessage{Header: header(1000), Entity: entities}
}

func tripUpdate(id, tripID string, arrival, departure int64) *gtfsrt.FeedEntity {
	stu := &gtfsrt.TripUpdate_StopTimeUpdate{StopId: proto.String("1853")}
	if arrival != 0 {
		stu.Arrival = &gtfsrt.TripUpdate_StopTimeEvent{Time: proto.Int64(arrival)}
	}
	if departure != 0 {
		stu.Departure = &gtfsrt.TripUpdate_StopTimeEvent{Time: proto.Int64(departure)}
	}
	return &gtfsrt.FeedEntity{
		Id: proto.String(id),
		TripUpdate: &gtfsrt.TripUpdate{
			Trip: &gtfsrt.TripDescriptor{
				TripId:  proto.String(tripID),
				RouteId: proto.String("66-3136"),
			},
			StopTimeUpdate: []*gtfsrt.TripUpdate_StopTimeUpdate{stu},
		},
	}
}

func vehicle(id, tripID string, lat, lon float32) *gtfsrt.FeedEntity {
	return &gtfsrt.FeedEntity{
		Id: proto.String(id),
		Vehicle: &gtfsrt.VehiclePosition{
			Trip: &gtfsrt.TripDescriptor{TripId: proto.String(tripID)},
			Position: &gtfsrt.Position{
				Latitude:  proto.Float32(lat),
				Longitude: proto.Float32(lon),
			},
		},
	}
}

func matchedArrivals(t *testing.T, idx *gtfs.Index, shortNames ...string) []gtfs.Arrival {
	t.Helper()
	monday := time.Date(2023, time.April, 24, 0, 0, 0, 0, time.Local)
	arrivals, err := idx.FindArrivals(idx.RouteIDsForShortNames(shortNames), monday, "08:00")
	if err != nil {
		t.Fatal(err)
	}
	return arrivals
}

// Route 66, active Monday calendar, departure 08:00, hub arrival 08:07:00:
// exactly one row with the scheduled time carried through.
func TestCompose_ScheduledRow(t *testing.T) {
	idx := testIndex()
	live := testManager(t, tripFeed(), tripFeed())

	rows := Compose(matchedArrivals(t, idx, "66"), idx, live)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	row := rows[0]
	if row.ShortName != "66" || row.LongName != "UQ Lakes - City" {
		t.Errorf("route names = %q / %q", row.ShortName, row.LongName)
	}
	if row.ServiceID != "WD" || row.Headsign != "UQ Lakes" {
		t.Errorf("trip fields = %q / %q", row.ServiceID, row.Headsign)
	}
	if row.ScheduledArrival != "08:07:00" {
		t.Errorf("scheduled arrival = %q, want 08:07:00", row.ScheduledArrival)
	}
}

func TestCompose_NoLiveDataSentinels(t *testing.T) {
	idx := testIndex()
	live := testManager(t, tripFeed(), tripFeed())

	rows := Compose(matchedArrivals(t, idx, "66"), idx, live)
	if rows[0].LiveArrival.OK {
		t.Error("no trip-update match should leave live arrival unset")
	}
	if got := rows[0].LiveArrival.Display(); got != NoLiveData {
		t.Errorf("live arrival display = %q, want %q", got, NoLiveData)
	}
	if rows[0].Position.OK {
		t.Error("no vehicle match should leave position unset")
	}
	if got := rows[0].Position.Display(); got != NoLiveData {
		t.Errorf("position display = %q, want %q", got, NoLiveData)
	}
}

func TestCompose_LiveArrivalPrecedence(t *testing.T) {
	tests := []struct {
		name      string
		arrival   int64
		departure int64
		want      int64
	}{
		{"arrival preferred", 1700000100, 1700000200, 1700000100},
		{"departure fallback", 0, 1700000200, 1700000200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := testIndex()
			live := testManager(t,
				tripFeed(tripUpdate("1", "T66-1", tt.arrival, tt.departure)),
				tripFeed())

			rows := Compose(matchedArrivals(t, idx, "66"), idx, live)
			if !rows[0].LiveArrival.OK {
				t.Fatal("live arrival should be set")
			}
			if rows[0].LiveArrival.Unix != tt.want {
				t.Errorf("live arrival = %d, want %d", rows[0].LiveArrival.Unix, tt.want)
			}
		})
	}
}

func TestCompose_VehiclePosition(t *testing.T) {
	idx := testIndex()
	live := testManager(t, tripFeed(),
		tripFeed(vehicle("v1", "T66-1", -27.5, 153.01)))

	rows := Compose(matchedArrivals(t, idx, "66"), idx, live)
	if !rows[0].Position.OK {
		t.Fatal("position should be set")
	}
	if got := rows[0].Position.Display(); got != "(latitude: -27.5, longitude: 153.01)" {
		t.Errorf("position display = %q", got)
	}
}

// A short name carried by routes with several long names yields one row per
// long name for the same matched arrival.
func TestCompose_RowPerLongName(t *testing.T) {
	idx := gtfs.NewIndex(gtfs.Scope{
		RouteToken:     "uq ",
		StopToken:      "uq lakes",
		ExcludedStopID: "place_uqlksa",
		WindowMinutes:  10,
	}, gtfs.Tables{
		Routes: []gtfs.Route{
			{RouteID: "66-3136", RouteShortName: "66", RouteLongName: "UQ Lakes - City"},
			{RouteID: "66-3195", RouteShortName: "66", RouteLongName: "City - UQ Lakes"},
		},
		Trips: []gtfs.Trip{
			{TripID: "T66-1", RouteID: "66-3136", ServiceID: "WD", TripHeadsign: "UQ Lakes"},
		},
		StopTimes: []gtfs.StopTime{
			{TripID: "T66-1", StopID: "1853", ArrivalTime: "08:07:00", StopSequence: 5},
		},
		Calendar: []gtfs.CalendarEntry{
			{ServiceID: "WD", Weekdays: [7]bool{false, true, true, true, true, true, false},
				StartDate: "20230101", EndDate: "20231231"},
		},
		Stops: []gtfs.Stop{
			{StopID: "1853", StopName: "UQ Lakes station, platform A"},
		},
	})
	live := testManager(t, tripFeed(), tripFeed())

	rows := Compose(matchedArrivals(t, idx, "66"), idx, live)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want one per long name", len(rows))
	}
	if rows[0].LongName == rows[1].LongName {
		t.Errorf("rows should carry distinct long names, both = %q", rows[0].LongName)
	}
}

func TestLiveArrival_Display(t *testing.T) {
	at := time.Date(2023, time.April, 24, 8, 5, 30, 0, time.Local)
	a := LiveArrival{Unix: at.Unix(), OK: true}
	if got := a.Display(); got != "08:05:30" {
		t.Errorf("Display = %q, want 08:05:30", got)
	}
}
