// Package calendar pushes confirmed bookings to the shared lab calendar
// and keeps the two systems reconciled. The calendar is always secondary:
// nothing here may block or fail a booking.
package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/lab-scheduler/backend/internal/booking"
)

// eventPayload is the wire form of a calendar event.
type eventPayload struct {
	Summary     string    `json:"summary"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

type eventResponse struct {
	ID string `json:"id"`
}

// Client is the HTTP booking.CalendarSink. Transient failures are retried
// with backoff inside each call; persistent failures surface to the
// caller, who logs them and moves on.
type Client struct {
	http *resty.Client
	log  *zap.Logger
}

func NewClient(baseURL, token string, log *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if token != "" {
		client.SetAuthToken(token)
	}

	return &Client{http: client, log: log}
}

// AddEvent creates a calendar event and returns its opaque id.
func (c *Client) AddEvent(ctx context.Context, ev booking.Event) (string, error) {
	var result eventResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payloadFor(ev)).
		SetResult(&result).
		Post("/api/events")
	if err != nil {
		return "", fmt.Errorf("creating calendar event: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("creating calendar event: calendar returned %s", resp.Status())
	}
	if result.ID == "" {
		return "", fmt.Errorf("creating calendar event: calendar returned no event id")
	}

	c.log.Debug("calendar event created", zap.String("event_id", result.ID))
	return result.ID, nil
}

// UpdateEvent rewrites an existing calendar event.
func (c *Client) UpdateEvent(ctx context.Context, eventID string, ev booking.Event) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payloadFor(ev)).
		Put("/api/events/" + eventID)
	if err != nil {
		return fmt.Errorf("updating calendar event %s: %w", eventID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("updating calendar event %s: calendar returned %s", eventID, resp.Status())
	}
	return nil
}

// RemoveEvent deletes a calendar event. A 404 counts as success, the
// event is gone either way.
func (c *Client) RemoveEvent(ctx context.Context, eventID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Delete("/api/events/" + eventID)
	if err != nil {
		return fmt.Errorf("removing calendar event %s: %w", eventID, err)
	}
	if resp.IsError() && resp.StatusCode() != 404 {
		return fmt.Errorf("removing calendar event %s: calendar returned %s", eventID, resp.Status())
	}
	return nil
}

func payloadFor(ev booking.Event) eventPayload {
	return eventPayload{
		Summary:     ev.Summary,
		Location:    ev.Location,
		Description: ev.Description,
		Start:       ev.Start,
		End:         ev.End,
	}
}
