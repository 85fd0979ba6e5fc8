package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"carpool/internal/domain"
)

// Notification is a message addressed to one ride participant.
type Notification struct {
	Type        string
	RecipientID string
	Title       string
	Message     string
	RideID      string
	CreatedAt   time.Time
}

// Notifier turns ride events into participant notifications and writes them
// to the log. It stands in for push/SMS delivery, which lives outside this service.
type Notifier struct {
	log *slog.Logger
}

// NewNotifier creates a Notifier that logs through log.
func NewNotifier(log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{log: log}
}

// Publish notifies everyone on the ride except the actor.
func (n *Notifier) Publish(ctx context.Context, e Event) error {
	for _, note := range Notifications(e) {
		n.log.InfoContext(ctx, "notification",
			"type", note.Type,
			"recipient_id", note.RecipientID,
			"ride_id", note.RideID,
			"title", note.Title,
			"message", note.Message,
		)
	}
	return nil
}

func (n *Notifier) Close() error { return nil }

// Notifications lists the messages e produces, one per recipient.
func Notifications(e Event) []Notification {
	title, message := describe(e)
	if title == "" {
		return nil
	}

	recipients := make([]string, 0, len(e.Passengers)+1)
	recipients = append(recipients, e.DriverID)
	recipients = append(recipients, e.Passengers...)
	// A cancelled passenger is no longer on the list but still wants the confirmation.
	if e.Type == TypeSeatCancelled && e.ActorID != "" {
		recipients = append(recipients, e.ActorID)
	}

	out := make([]Notification, 0, len(recipients))
	for _, id := range recipients {
		if id == "" || (id == e.ActorID && e.Type != TypeSeatCancelled) {
			continue
		}
		out = append(out, Notification{
			Type:        e.Type,
			RecipientID: id,
			Title:       title,
			Message:     message,
			RideID:      e.RideID,
			CreatedAt:   e.OccurredAt,
		})
	}
	return out
}

func describe(e Event) (title, message string) {
	switch e.Type {
	case TypeSeatBooked:
		return "Seat Booked", fmt.Sprintf("%s booked a seat, %d left", e.ActorID, e.AvailableSeats)
	case TypeSeatCancelled:
		return "Seat Released", fmt.Sprintf("%s cancelled their seat, %d left", e.ActorID, e.AvailableSeats)
	case TypeStatusChanged:
		switch e.Status {
		case domain.RideStatusEnRoute:
			return "Ride Started", "Your ride is on its way"
		case domain.RideStatusFinished:
			return "Ride Finished", "Your ride has finished, leave a comment"
		case domain.RideStatusCrashed:
			return "Ride Interrupted", "Your ride was reported as crashed"
		}
	case TypeCommentAdded:
		return "New Comment", fmt.Sprintf("%s left feedback on the ride", e.ActorID)
	}
	return "", ""
}
