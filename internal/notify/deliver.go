package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"task-marketplace-api/internal/models"
)

// Deliverer pushes one stored notification to its recipient.
type Deliverer interface {
	Deliver(ctx context.Context, n models.Notification) error
}

// DelivererFunc adapts a function to Deliverer.
type DelivererFunc func(ctx context.Context, n models.Notification) error

// Deliver implements Deliverer.
func (f DelivererFunc) Deliver(ctx context.Context, n models.Notification) error {
	return f(ctx, n)
}

// Recorder observes per-channel delivery outcomes.
type Recorder interface {
	NotificationDelivered(channel string, err error)
}

// Channel is one named delivery leg of a Fanout.
type Channel struct {
	Name string
	Deliverer
}

// Fanout delivers a notification on every channel. Channels fail
// independently; the joined error reports which ones did.
type Fanout struct {
	channels []Channel
	recorder Recorder
}

// NewFanout builds a fanout over channels. recorder may be nil.
func NewFanout(recorder Recorder, channels ...Channel) *Fanout {
	return &Fanout{channels: channels, recorder: recorder}
}

// Deliver implements Deliverer.
func (f *Fanout) Deliver(ctx context.Context, n models.Notification) error {
	var errs []error
	for _, ch := range f.channels {
		err := ch.Deliver(ctx, n)
		if f.recorder != nil {
			f.recorder.NotificationDelivered(ch.Name, err)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Event is the realtime envelope sent to connected clients.
type Event struct {
	Type         string              `json:"type"`
	Notification models.Notification `json:"notification"`
	Version      int                 `json:"version"`
}

// Encode renders n as a realtime event payload.
func Encode(n models.Notification) ([]byte, error) {
	return json.Marshal(Event{Type: "notification", Notification: n, Version: 1})
}

// Broadcaster sends a payload to every open connection of a user.
type Broadcaster interface {
	Broadcast(userID string, message []byte) int
}

// HubChannel delivers to the user's open websocket connections. A user with
// no open connection is not an error; the notification stays readable via the API.
func HubChannel(hub Broadcaster) Channel {
	return Channel{Name: "websocket", Deliverer: DelivererFunc(func(_ context.Context, n models.Notification) error {
		payload, err := Encode(n)
		if err != nil {
			return err
		}
		hub.Broadcast(n.UserID, payload)
		return nil
	})}
}

// Publisher publishes a user-addressed payload to other instances.
type Publisher interface {
	Publish(ctx context.Context, userID string, message []byte) error
}

// PublisherChannel delivers through p.
func PublisherChannel(p Publisher) Channel {
	return Channel{Name: "redis", Deliverer: DelivererFunc(func(ctx context.Context, n models.Notification) error {
		payload, err := Encode(n)
		if err != nil {
			return err
		}
		return p.Publish(ctx, n.UserID, payload)
	})}
}

// EmailLookup resolves a user's email address.
type EmailLookup func(ctx context.Context, userID string) (string, error)

// MailChannel emails the notification to its recipient.
func MailChannel(m Mailer, lookup EmailLookup) Channel {
	return Channel{Name: "email", Deliverer: DelivererFunc(func(ctx context.Context, n models.Notification) error {
		to, err := lookup(ctx, n.UserID)
		if err != nil {
			return fmt.Errorf("lookup recipient: %w", err)
		}
		if to == "" {
			return nil
		}
		return m.Send(ctx, to, n.Title, n.Message)
	})}
}
