package calendar

import (
	"context"
	"time"
)

// Disabled stands in for the client when no calendar is configured. Every
// call fails with the configuration error it was built with.
type Disabled struct {
	Reason *ConfigurationError
}

func (d Disabled) err() error {
	if d.Reason == nil {
		return &ConfigurationError{Field: "calendar id"}
	}
	return d.Reason
}

func (d Disabled) CreateEvent(ctx context.Context, in EventInput) (string, error) {
	return "", d.err()
}

func (d Disabled) UpdateEvent(ctx context.Context, eventID string, patch EventPatch) error {
	return d.err()
}

func (d Disabled) DeleteEvent(ctx context.Context, eventID string) error {
	return d.err()
}

func (d Disabled) ListBusyTimes(ctx context.Context, date time.Time) ([]string, error) {
	return nil, d.err()
}
