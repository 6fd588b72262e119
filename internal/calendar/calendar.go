// Package calendar lists a user's calendars and their events through the
// Graph API.
package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tonimelisma/msservices/internal/apierr"
	"github.com/tonimelisma/msservices/internal/graph"
)

// Graph returns event times without an offset, in the zone named next to
// them, with up to seven fractional digits.
const graphDateTimeLayout = "2006-01-02T15:04:05.9999999"

// filterTimeLayout is the form OData filters compare start/dateTime against.
const filterTimeLayout = "2006-01-02T15:04:05"

// Calendar is one of a user's calendars.
type Calendar struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Color             string `json:"color,omitempty"`
	CanEdit           bool   `json:"canEdit"`
	IsDefaultCalendar bool   `json:"isDefaultCalendar"`
	Owner             string `json:"owner,omitempty"`
}

type emailAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type calendarResponse struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Color             string        `json:"color"`
	CanEdit           bool          `json:"canEdit"`
	IsDefaultCalendar bool          `json:"isDefaultCalendar"`
	Owner             *emailAddress `json:"owner"`
}

func (r *calendarResponse) toCalendar() Calendar {
	c := Calendar{
		ID:                r.ID,
		Name:              r.Name,
		Color:             r.Color,
		CanEdit:           r.CanEdit,
		IsDefaultCalendar: r.IsDefaultCalendar,
	}

	if r.Owner != nil {
		c.Owner = r.Owner.Address
	}

	return c
}

// Event is a calendar event with its times resolved to instants.
type Event struct {
	ID          string    `json:"id"`
	Subject     string    `json:"subject"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	IsAllDay    bool      `json:"isAllDay"`
	Location    string    `json:"location,omitempty"`
	Organizer   string    `json:"organizer,omitempty"`
	BodyPreview string    `json:"bodyPreview,omitempty"`
	WebLink     string    `json:"webLink,omitempty"`
}

type dateTimeTimeZone struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// instant resolves the zone-less timestamp. Zones Go cannot load (Windows
// names) are read as UTC; unparseable values become the zero time.
func (d dateTimeTimeZone) instant() time.Time {
	loc := time.UTC

	if d.TimeZone != "" && d.TimeZone != "UTC" {
		if l, err := time.LoadLocation(d.TimeZone); err == nil {
			loc = l
		}
	}

	t, err := time.ParseInLocation(graphDateTimeLayout, d.DateTime, loc)
	if err != nil {
		return time.Time{}
	}

	return t
}

type eventResponse struct {
	ID       string           `json:"id"`
	Subject  string           `json:"subject"`
	Start    dateTimeTimeZone `json:"start"`
	End      dateTimeTimeZone `json:"end"`
	IsAllDay bool             `json:"isAllDay"`
	Location struct {
		DisplayName string `json:"displayName"`
	} `json:"location"`
	Organizer *struct {
		EmailAddress emailAddress `json:"emailAddress"`
	} `json:"organizer"`
	BodyPreview string `json:"bodyPreview"`
	WebLink     string `json:"webLink"`
}

func (r *eventResponse) toEvent() Event {
	e := Event{
		ID:          r.ID,
		Subject:     r.Subject,
		Start:       r.Start.instant(),
		End:         r.End.instant(),
		IsAllDay:    r.IsAllDay,
		Location:    r.Location.DisplayName,
		BodyPreview: r.BodyPreview,
		WebLink:     r.WebLink,
	}

	if r.Organizer != nil {
		e.Organizer = r.Organizer.EmailAddress.Address
	}

	return e
}

func toEvents(raw []eventResponse) []Event {
	events := make([]Event, 0, len(raw))
	for i := range raw {
		events = append(events, raw[i].toEvent())
	}

	return events
}

// Service reads calendars through the Graph API.
type Service struct {
	tokens     graph.TokenProvider
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Service. A nil logger uses slog.Default().
func New(tokens graph.TokenProvider, baseURL string, httpClient *http.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{tokens: tokens, baseURL: baseURL, httpClient: httpClient, logger: logger}
}

func (s *Service) connect(ctx context.Context) (*graph.Client, error) {
	c, err := graph.Connect(ctx, s.baseURL, s.httpClient, s.tokens, s.logger)
	if err != nil {
		return nil, fmt.Errorf("calendar: %w", err)
	}

	return c, nil
}

func calendarPath(owner, calendarID string) string {
	return fmt.Sprintf("/users/%s/calendars/%s", url.PathEscape(owner), url.PathEscape(calendarID))
}

// queryValue escapes v for a query string with spaces as %20.
func queryValue(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}

// Calendars returns every calendar owned by owner.
func (s *Service) Calendars(ctx context.Context, owner string) ([]Calendar, error) {
	s.logger.Info("listing calendars", slog.String("owner", owner))

	c, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := graph.Drain[calendarResponse](ctx, c, http.MethodGet, "/users/"+url.PathEscape(owner)+"/calendars", nil)
	if err != nil {
		return nil, fmt.Errorf("calendar: listing calendars: %w", err)
	}

	cals := make([]Calendar, 0, len(raw))
	for i := range raw {
		cals = append(cals, raw[i].toCalendar())
	}

	return cals, nil
}

// Events returns every event occurring between start and end, recurring
// occurrences expanded, ordered by start time.
func (s *Service) Events(ctx context.Context, owner, calendarID string, start, end time.Time) ([]Event, error) {
	if end.Before(start) {
		return nil, apierr.Configuration("Event window end must not be before its start")
	}

	s.logger.Info("listing events",
		slog.String("owner", owner),
		slog.String("calendar_id", calendarID),
		slog.Time("start", start),
		slog.Time("end", end),
	)

	c, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	path := calendarPath(owner, calendarID) + "/calendarView" +
		"?startDateTime=" + queryValue(start.UTC().Format(time.RFC3339)) +
		"&endDateTime=" + queryValue(end.UTC().Format(time.RFC3339)) +
		"&$orderby=start/dateTime"

	raw, err := graph.Drain[eventResponse](ctx, c, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("calendar: listing events: %w", err)
	}

	return toEvents(raw), nil
}

// UpcomingEvents returns at most n events that start or are still running
// at from, ordered by start time. Paging stops once n events are collected.
func (s *Service) UpcomingEvents(ctx context.Context, owner, calendarID string, from time.Time, n int) ([]Event, error) {
	if n <= 0 {
		return nil, apierr.Configuration("Event count must be positive")
	}

	s.logger.Info("listing upcoming events",
		slog.String("owner", owner),
		slog.String("calendar_id", calendarID),
		slog.Int("count", n),
	)

	c, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	at := from.UTC().Format(filterTimeLayout)
	filter := fmt.Sprintf("start/dateTime ge '%s' or end/dateTime ge '%s'", at, at)

	path := calendarPath(owner, calendarID) + "/events" +
		"?$filter=" + queryValue(filter) +
		"&$top=" + strconv.Itoa(n) +
		"&$orderby=start/dateTime"

	p := graph.NewPager[eventResponse](c, http.MethodGet, path, nil)

	var raw []eventResponse

	for len(raw) < n && !p.IsExhausted() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("calendar: listing upcoming events: page %d failed: %w", p.Pages()+1, err)
		}

		raw = append(raw, page.Items...)
	}

	if len(raw) > n {
		raw = raw[:n]
	}

	return toEvents(raw), nil
}
