// Package events publishes ride lifecycle notifications to a message broker.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"carpool/internal/domain"
)

// Event types. The routing key of an event is "ride." + its type.
const (
	TypeRideCreated   = "created"
	TypeSeatBooked    = "seat.booked"
	TypeSeatCancelled = "seat.cancelled"
	TypeStatusChanged = "status.changed"
	TypeCommentAdded  = "comment.added"
)

// Event is the message published after a ride mutation commits.
type Event struct {
	Type           string            `json:"type"`
	RideID         string            `json:"ride_id"`
	DriverID       string            `json:"driver_id"`
	ActorID        string            `json:"actor_id,omitempty"`
	Status         domain.RideStatus `json:"status"`
	AvailableSeats int               `json:"available_seats"`
	Passengers     []string          `json:"passengers"`
	Version        int64             `json:"version"`
	OccurredAt     time.Time         `json:"occurred_at"`
}

// NewEvent snapshots ride into an event of the given type.
func NewEvent(eventType, actorID string, ride *domain.Ride) Event {
	return Event{
		Type:           eventType,
		RideID:         ride.ID,
		DriverID:       ride.DriverID,
		ActorID:        actorID,
		Status:         ride.Status,
		AvailableSeats: ride.AvailableSeats,
		Passengers:     append([]string{}, ride.Passengers...),
		Version:        ride.Version,
		OccurredAt:     time.Now().UTC(),
	}
}

// RoutingKey returns the broker routing key for e.
func (e Event) RoutingKey() string {
	return "ride." + e.Type
}

// Encode returns the JSON wire form of e.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers ride events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

// Publish records e, or returns Err when set.
func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, e)
	return nil
}

// Close is a no-op.
func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

var (
	_ Publisher = NopPublisher{}
	_ Publisher = (*Recorder)(nil)
)
