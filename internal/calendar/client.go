package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/tailortalk/internal/google"
	"github.com/teemow/tailortalk/internal/schedule"
)

// DefaultCalendarID is the calendar used when none is configured.
const DefaultCalendarID = "primary"

// Client wraps the Google Calendar service
type Client struct {
	svc        *gcal.Service
	account    string
	calendarID string
}

// Account returns the account name this client is associated with
func (c *Client) Account() string {
	return c.account
}

// CalendarID returns the calendar events are read from and written to
func (c *Client) CalendarID() string {
	return c.calendarID
}

// NewClient creates a Calendar client with OAuth2 authentication for account.
// The OAuth token is retrieved from tokenProvider.
func NewClient(ctx context.Context, account, calendarID string, tokenProvider google.TokenProvider) (*Client, error) {
	httpClient, err := google.NewHTTPClient(ctx, tokenProvider, account)
	if err != nil {
		return nil, err
	}

	svc, err := gcal.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	c := NewClientWithService(svc, calendarID)
	c.account = account
	return c, nil
}

// NewClientWithService wraps an existing service. Tests use it to point the
// client at a fake endpoint.
func NewClientWithService(svc *gcal.Service, calendarID string) *Client {
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}
	return &Client{svc: svc, calendarID: calendarID}
}

// GetBusy queries free/busy information for the configured calendar
func (c *Client) GetBusy(ctx context.Context, window schedule.TimeRange) ([]schedule.BusyInterval, error) {
	query := &gcal.FreeBusyRequest{
		TimeMin: window.Start.UTC().Format(time.RFC3339),
		TimeMax: window.End.UTC().Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: c.calendarID}},
	}

	result, err := c.svc.Freebusy.Query(query).Context(ctx).Do()
	if err != nil {
		return nil, classify("failed to query freebusy", err)
	}

	cal, ok := result.Calendars[c.calendarID]
	if !ok {
		return nil, fmt.Errorf("%w: no free/busy data for calendar %s", schedule.ErrCalendarUnavailable, c.calendarID)
	}
	if len(cal.Errors) > 0 {
		return nil, fmt.Errorf("%w: free/busy error for calendar %s: %s", schedule.ErrCalendarUnavailable, c.calendarID, cal.Errors[0].Reason)
	}

	busy := make([]schedule.BusyInterval, 0, len(cal.Busy))
	for _, period := range cal.Busy {
		start, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			return nil, fmt.Errorf("invalid busy start %q: %w", period.Start, err)
		}
		end, err := time.Parse(time.RFC3339, period.End)
		if err != nil {
			return nil, fmt.Errorf("invalid busy end %q: %w", period.End, err)
		}
		busy = append(busy, schedule.BusyInterval{Start: start, End: end})
	}
	return busy, nil
}

// CreateEvent books req. The idempotency key is used as the event ID, so a
// retry after a lost response finds the event created by the first attempt
// instead of inserting a duplicate.
func (c *Client) CreateEvent(ctx context.Context, req schedule.BookingRequest) (string, error) {
	if !req.Range.Valid() {
		return "", schedule.ErrInvalidRange
	}

	if req.IdempotencyKey != "" {
		id, found, err := c.existingEvent(ctx, req.IdempotencyKey)
		if err != nil {
			return "", err
		}
		if found {
			return id, nil
		}
	}

	busy, err := c.GetBusy(ctx, req.Range)
	if err != nil {
		return "", err
	}
	if len(overlapping(busy, req.Range)) > 0 {
		return "", schedule.ErrSlotConflict
	}

	event := &gcal.Event{
		Id:          req.IdempotencyKey,
		Summary:     req.Summary,
		Description: req.Description,
		Start:       &gcal.EventDateTime{DateTime: req.Range.Start.Format(time.RFC3339), TimeZone: req.TimeZone},
		End:         &gcal.EventDateTime{DateTime: req.Range.End.Format(time.RFC3339), TimeZone: req.TimeZone},
	}

	created, err := c.svc.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		if isStatus(err, http.StatusConflict) && req.IdempotencyKey != "" {
			// A concurrent attempt with the same key won the race.
			id, found, getErr := c.existingEvent(ctx, req.IdempotencyKey)
			if getErr != nil {
				return "", getErr
			}
			if found {
				return id, nil
			}
			return "", schedule.ErrSlotConflict
		}
		return "", classify("failed to create event", err)
	}
	return created.Id, nil
}

func (c *Client) existingEvent(ctx context.Context, id string) (string, bool, error) {
	event, err := c.svc.Events.Get(c.calendarID, id).Context(ctx).Do()
	if err != nil {
		if isStatus(err, http.StatusNotFound) || isStatus(err, http.StatusGone) {
			return "", false, nil
		}
		return "", false, classify("failed to look up event", err)
	}
	if event.Status == "cancelled" {
		return "", false, nil
	}
	return event.Id, true, nil
}

func isStatus(err error, code int) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// ListEvents lists single events of the configured calendar, expanding
// recurring ones, ordered by start time.
func (c *Client) ListEvents(ctx context.Context, q EventQuery) ([]Event, error) {
	call := c.svc.Events.List(c.calendarID).
		TimeMin(q.From.UTC().Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(int64(q.limit()))
	if text := strings.TrimSpace(q.Text); text != "" {
		call = call.Q(text)
	}

	result, err := call.Context(ctx).Do()
	if err != nil {
		return nil, classify("failed to list events", err)
	}

	events := make([]Event, 0, len(result.Items))
	for _, item := range result.Items {
		start, err := eventTime(item.Start)
		if err != nil {
			return nil, fmt.Errorf("event %s: invalid start: %w", item.Id, err)
		}
		end, err := eventTime(item.End)
		if err != nil {
			return nil, fmt.Errorf("event %s: invalid end: %w", item.Id, err)
		}
		summary := item.Summary
		if summary == "" {
			summary = "(no title)"
		}
		events = append(events, Event{
			ID:          item.Id,
			Summary:     summary,
			Description: item.Description,
			Location:    item.Location,
			Start:       start,
			End:         end,
		})
	}
	return events, nil
}

// eventTime reads a timed or all-day event boundary. All-day dates are
// taken as midnight UTC.
func eventTime(t *gcal.EventDateTime) (time.Time, error) {
	switch {
	case t == nil:
		return time.Time{}, errors.New("missing time")
	case t.DateTime != "":
		return time.Parse(time.RFC3339, t.DateTime)
	default:
		return time.Parse(time.DateOnly, t.Date)
	}
}

// classify marks throttling and server errors as the calendar being
// unavailable. Context errors keep their identity.
func classify(msg string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500) {
		return fmt.Errorf("%s: %w: %v", msg, schedule.ErrCalendarUnavailable, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
