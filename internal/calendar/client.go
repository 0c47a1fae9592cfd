// Package calendar mirrors appointments into a Google Calendar through a
// service-account credential and answers busy-time queries for a day.
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

	"lexcrm/backend/internal/domain"
)

const (
	DefaultEventDuration = 60 * time.Minute
	DefaultCallTimeout   = 10 * time.Second

	sendUpdatesAll = "all"
)

const (
	OpCreateEvent   = "create_event"
	OpUpdateEvent   = "update_event"
	OpDeleteEvent   = "delete_event"
	OpListBusyTimes = "list_busy_times"
)

// Observer receives one observation per provider call.
type Observer interface {
	ObserveCall(operation, outcome string, elapsed time.Duration)
}

type Config struct {
	CalendarID      string
	CredentialsJSON []byte
	Location        *time.Location
	EventDuration   time.Duration
	CallTimeout     time.Duration
	Observer        Observer
}

type EventInput struct {
	Title         string
	Description   string
	Date          time.Time
	Time          string
	Duration      time.Duration
	AttendeeEmail string
}

// EventPatch overlays an existing event. Empty Title/Description are kept as
// is; start and end move only when both Date and Time are set.
type EventPatch struct {
	Title       string
	Description string
	Date        *time.Time
	Time        string
	Duration    time.Duration
}

type Client struct {
	svc        *gcal.Service
	calendarID string
	loc        *time.Location
	duration   time.Duration
	timeout    time.Duration
	observer   Observer
}

// NewFromCredentials authenticates with the service-account JSON in cfg.
// Extra options are appended after the credential options.
func NewFromCredentials(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.CalendarID) == "" {
		return nil, &ConfigurationError{Field: "calendar id"}
	}
	if len(cfg.CredentialsJSON) == 0 {
		return nil, &ConfigurationError{Field: "credentials"}
	}

	all := append([]option.ClientOption{
		option.WithCredentialsJSON(cfg.CredentialsJSON),
		option.WithScopes(gcal.CalendarScope),
	}, opts...)
	svc, err := gcal.NewService(ctx, all...)
	if err != nil {
		return nil, &ConfigurationError{Field: "credentials", Err: err}
	}
	return New(svc, cfg)
}

func New(svc *gcal.Service, cfg Config) (*Client, error) {
	if svc == nil {
		return nil, &ConfigurationError{Field: "calendar service"}
	}
	if strings.TrimSpace(cfg.CalendarID) == "" {
		return nil, &ConfigurationError{Field: "calendar id"}
	}

	c := &Client{
		svc:        svc,
		calendarID: cfg.CalendarID,
		loc:        cfg.Location,
		duration:   cfg.EventDuration,
		timeout:    cfg.CallTimeout,
		observer:   cfg.Observer,
	}
	if c.loc == nil {
		c.loc = time.UTC
	}
	if c.duration <= 0 {
		c.duration = DefaultEventDuration
	}
	if c.timeout <= 0 {
		c.timeout = DefaultCallTimeout
	}
	return c, nil
}

func (c *Client) CreateEvent(ctx context.Context, in EventInput) (string, error) {
	start, end, err := c.span(in.Date, in.Time, in.Duration)
	if err != nil {
		return "", err
	}

	ev := &gcal.Event{
		Summary:     in.Title,
		Description: in.Description,
		Start:       c.eventTime(start),
		End:         c.eventTime(end),
		Reminders: &gcal.EventReminders{
			UseDefault: false,
			Overrides: []*gcal.EventReminder{
				{Method: "email", Minutes: 24 * 60},
				{Method: "popup", Minutes: 60},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}
	if email := strings.TrimSpace(in.AttendeeEmail); email != "" {
		ev.Attendees = []*gcal.EventAttendee{{Email: email}}
	}

	var created *gcal.Event
	err = c.call(ctx, OpCreateEvent, func(ctx context.Context) error {
		var err error
		created, err = c.svc.Events.Insert(c.calendarID, ev).
			SendUpdates(sendUpdatesAll).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return "", err
	}
	return created.Id, nil
}

func (c *Client) UpdateEvent(ctx context.Context, eventID string, patch EventPatch) error {
	var ev *gcal.Event
	err := c.call(ctx, OpUpdateEvent, func(ctx context.Context) error {
		var err error
		ev, err = c.svc.Events.Get(c.calendarID, eventID).Context(ctx).Do()
		return err
	})
	if err != nil {
		return err
	}

	if patch.Title != "" {
		ev.Summary = patch.Title
	}
	if patch.Description != "" {
		ev.Description = patch.Description
	}
	if patch.Date != nil && patch.Time != "" {
		start, end, err := c.span(*patch.Date, patch.Time, patch.Duration)
		if err != nil {
			return err
		}
		ev.Start = c.eventTime(start)
		ev.End = c.eventTime(end)
	}

	return c.call(ctx, OpUpdateEvent, func(ctx context.Context) error {
		_, err := c.svc.Events.Update(c.calendarID, eventID, ev).
			SendUpdates(sendUpdatesAll).
			Context(ctx).
			Do()
		return err
	})
}

// DeleteEvent treats an event that is already gone as deleted.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	err := c.call(ctx, OpDeleteEvent, func(ctx context.Context) error {
		return c.svc.Events.Delete(c.calendarID, eventID).
			SendUpdates(sendUpdatesAll).
			Context(ctx).
			Do()
	})
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// ListBusyTimes returns the start time (HH:MM, local) of every timed event on
// date, in start order without duplicates. All-day events are ignored.
func (c *Client) ListBusyTimes(ctx context.Context, date time.Time) ([]string, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, c.loc)
	dayEnd := time.Date(date.Year(), date.Month(), date.Day(), 23, 59, 59, 0, c.loc)

	var times []string
	seen := make(map[string]struct{})
	err := c.call(ctx, OpListBusyTimes, func(ctx context.Context) error {
		return c.svc.Events.List(c.calendarID).
			TimeMin(dayStart.Format(time.RFC3339)).
			TimeMax(dayEnd.Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime").
			Pages(ctx, func(page *gcal.Events) error {
				for _, item := range page.Items {
					if item.Start == nil || item.Start.DateTime == "" {
						continue
					}
					start, err := time.Parse(time.RFC3339, item.Start.DateTime)
					if err != nil {
						return fmt.Errorf("event %s start %q: %w", item.Id, item.Start.DateTime, err)
					}
					hm := start.In(c.loc).Format(domain.TimeOfDayLayout)
					if _, dup := seen[hm]; dup {
						continue
					}
					seen[hm] = struct{}{}
					times = append(times, hm)
				}
				return nil
			})
	})
	if err != nil {
		return nil, err
	}
	return times, nil
}

func (c *Client) span(date time.Time, timeOfDay string, d time.Duration) (time.Time, time.Time, error) {
	start, err := domain.CivilTime(date, timeOfDay, c.loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if d <= 0 {
		d = c.duration
	}
	return start, start.Add(d), nil
}

func (c *Client) eventTime(t time.Time) *gcal.EventDateTime {
	return &gcal.EventDateTime{
		DateTime: t.Format(time.RFC3339),
		TimeZone: c.loc.String(),
	}
}

func (c *Client) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	err := translate(op, fn(ctx))
	if c.observer != nil {
		c.observer.ObserveCall(op, outcome(err), time.Since(started))
	}
	return err
}

func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		if gErr.Code == http.StatusNotFound || gErr.Code == http.StatusGone {
			return fmt.Errorf("calendar %s: %w", op, ErrNotFound)
		}
		return &ExternalServiceError{Op: op, StatusCode: gErr.Code, Err: err}
	}
	return &ExternalServiceError{Op: op, Err: err}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
