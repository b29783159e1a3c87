// Package notify delivers operator alerts raised by the upload pipeline.
package notify

import (
	"context"
	"errors"
)

// Notifier sends one alert.
type Notifier interface {
	Notify(ctx context.Context, subject string, fields map[string]any) error
}

// Multi fans an alert out to every backend and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, subject string, fields map[string]any) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, subject, fields); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards alerts.
type Nop struct{}

func (Nop) Notify(context.Context, string, map[string]any) error { return nil }
