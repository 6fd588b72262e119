package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/msservices/internal/calendar"
)

func newCalendarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "List calendars and events",
	}

	ls := &cobra.Command{
		Use:   "ls <owner>",
		Short: "List a user's calendars",
		Args:  cobra.ExactArgs(1),
		RunE:  runCalendarLs,
	}

	events := &cobra.Command{
		Use:   "events <owner> <calendar-id>",
		Short: "List events in a window, or the next N events",
		Args:  cobra.ExactArgs(2),
		RunE:  runCalendarEvents,
	}
	events.Flags().String("from", "", "window start, RFC 3339 or YYYY-MM-DD (default now)")
	events.Flags().String("to", "", "window end, RFC 3339 or YYYY-MM-DD (default one week after --from)")
	events.Flags().Int("next", 0, "list the next N events instead of a window")

	cmd.AddCommand(ls, events)

	return cmd
}

// parseWhen accepts RFC 3339 or a local calendar date.
func parseWhen(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: use RFC 3339 or YYYY-MM-DD", s)
	}

	return t, nil
}

func runCalendarLs(cmd *cobra.Command, args []string) error {
	svc, err := newCalendarService(resolvedCfg, buildLogger())
	if err != nil {
		return err
	}

	cals, err := svc.Calendars(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(os.Stdout, cals)
	}

	rows := make([][]string, 0, len(cals))
	for _, c := range cals {
		def := ""
		if c.IsDefaultCalendar {
			def = "yes"
		}

		rows = append(rows, []string{c.Name, def, c.ID})
	}

	printTable(os.Stdout, []string{"CALENDAR", "DEFAULT", "ID"}, rows)

	return nil
}

func runCalendarEvents(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	fromRaw, _ := flags.GetString("from") //nolint:errcheck // registered above
	toRaw, _ := flags.GetString("to")     //nolint:errcheck // registered above
	next, _ := flags.GetInt("next")       //nolint:errcheck // registered above

	from := time.Now()
	if fromRaw != "" {
		t, err := parseWhen(fromRaw)
		if err != nil {
			return err
		}

		from = t
	}

	to := from.AddDate(0, 0, 7)
	if toRaw != "" {
		t, err := parseWhen(toRaw)
		if err != nil {
			return err
		}

		to = t
	}

	svc, err := newCalendarService(resolvedCfg, buildLogger())
	if err != nil {
		return err
	}

	var events []calendar.Event
	if next > 0 {
		events, err = svc.UpcomingEvents(cmd.Context(), args[0], args[1], from, next)
	} else {
		events, err = svc.Events(cmd.Context(), args[0], args[1], from, to)
	}

	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(os.Stdout, events)
	}

	rows := make([][]string, 0, len(events))
	for i := range events {
		rows = append(rows, []string{
			formatTime(events[i].Start), formatTime(events[i].End), events[i].Subject, events[i].Location,
		})
	}

	printTable(os.Stdout, []string{"START", "END", "SUBJECT", "LOCATION"}, rows)

	return nil
}
