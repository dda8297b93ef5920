package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"uqbus/internal/config"
	"uqbus/internal/gtfs"
	"uqbus/internal/query"
	"uqbus/internal/realtime"
	"uqbus/internal/tracker"
)

// app owns the interactive prompt loop and table rendering. Everything it
// does goes through the query validators and the pipeline APIs; invalid
// input never reaches the core.
type app struct {
	cfg    *config.Config
	index  *gtfs.Index
	live   *realtime.Manager
	in     *bufio.Scanner
	out    io.Writer
	logger *slog.Logger
}

func newApp(cfg *config.Config, index *gtfs.Index, live *realtime.Manager, in io.Reader, out io.Writer, logger *slog.Logger) *app {
	return &app{
		cfg:    cfg,
		index:  index,
		live:   live,
		in:     bufio.NewScanner(in),
		out:    out,
		logger: logger,
	}
}

func (a *app) run(ctx context.Context) {
	for {
		a.live.Refresh(ctx)

		fmt.Fprintln(a.out, "Welcome to the UQ Lakes station bus tracker!")

		date, ok := a.askDate()
		if !ok {
			return
		}
		clock, ok := a.askTime()
		if !ok {
			return
		}
		shortNames, ok := a.askRoute()
		if !ok {
			return
		}

		routeIDs := a.index.RouteIDsForShortNames(shortNames)
		arrivals, err := a.index.FindArrivals(routeIDs, date, clock)
		if err != nil {
			// The validators guarantee a well-formed time; anything else is
			// a bug worth surfacing, not re-prompting for.
			a.logger.Error("arrival match failed", "error", err)
			arrivals = nil
		}

		rows := tracker.Compose(arrivals, a.index, a.live)
		if len(rows) == 0 {
			fmt.Fprintln(a.out, "No trips found for the given information :(")
		} else {
			a.renderTable(rows)
		}

		if !a.askSearchAgain() {
			fmt.Fprintln(a.out, "Thanks for using the UQ Lakes station bus tracker!")
			return
		}
	}
}

// prompt prints the question and returns the next input line. ok is false
// when input is exhausted.
func (a *app) prompt(question string) (string, bool) {
	fmt.Fprintln(a.out, question)
	if !a.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(a.in.Text()), true
}

func (a *app) askDate() (time.Time, bool) {
	for {
		input, more := a.prompt("What date will you depart UQ Lakes station by bus?")
		if !more {
			return time.Time{}, false
		}
		d, status := query.ParseDate(input, a.cfg.SupportedYear)
		switch status {
		case query.DateOK:
			return d, true
		case query.DateOutOfRange:
			fmt.Fprintf(a.out, "Only supports data within year %d. Please try again.\n", a.cfg.SupportedYear)
		default:
			fmt.Fprintln(a.out, "Incorrect date format. Please use YYYY-MM-DD")
		}
	}
}

func (a *app) askTime() (string, bool) {
	for {
		input, more := a.prompt("What time will you depart UQ Lakes station by bus?")
		if !more {
			return "", false
		}
		if clock, valid := query.ParseClock(input); valid {
			return clock, true
		}
		fmt.Fprintln(a.out, "Incorrect time format. Please use HH:mm")
	}
}

func (a *app) askRoute() ([]string, bool) {
	shortNames := a.index.UniqueShortNames()
	var menu strings.Builder
	menu.WriteString("What Bus Route would you like to take?\n")
	menu.WriteString("1 - Show All Routes\n")
	for i, name := range shortNames {
		if i >= 8 {
			break
		}
		fmt.Fprintf(&menu, "%d - %s\n", i+2, name)
	}

	for {
		input, more := a.prompt(strings.TrimRight(menu.String(), "\n"))
		if !more {
			return nil, false
		}
		if choice, valid := query.ResolveRouteChoice(input, shortNames); valid {
			return choice, true
		}
		fmt.Fprintln(a.out, "Please enter a valid option for a bus route.")
	}
}

func (a *app) askSearchAgain() bool {
	for {
		input, more := a.prompt("Would you like to search again?")
		if !more {
			return false
		}
		switch strings.ToLower(input) {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
		fmt.Fprintln(a.out, "Please enter a valid option.")
	}
}

func (a *app) renderTable(rows []tracker.Row) {
	w := tabwriter.NewWriter(a.out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Short Name\tLong Name\tService Id\tHeading Sign\tScheduled Arrival Time\tLive Arrival Time\tLive Position")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			row.ShortName,
			row.LongName,
			row.ServiceID,
			row.Headsign,
			row.ScheduledArrival,
			row.LiveArrival.Display(),
			row.Position.Display(),
		)
	}
	w.Flush()
}
