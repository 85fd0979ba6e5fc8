package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// RideStatus represents the current status of a shared ride.
type RideStatus string

const (
	RideStatusWaiting  RideStatus = "WAITING"
	RideStatusEnRoute  RideStatus = "EN_ROUTE"
	RideStatusFinished RideStatus = "FINISHED"
	RideStatusCrashed  RideStatus = "CRASHED"
)

// RideStatuses lists every status a ride can be in.
var RideStatuses = []RideStatus{
	RideStatusWaiting,
	RideStatusEnRoute,
	RideStatusFinished,
	RideStatusCrashed,
}

// ParseRideStatus converts a wire value into a RideStatus.
// Matching is case-insensitive and accepts "-" in place of "_".
func ParseRideStatus(s string) (RideStatus, error) {
	v := RideStatus(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	if slices.Contains(RideStatuses, v) {
		return v, nil
	}
	return "", fmt.Errorf("unknown ride status %q", s)
}

// IsTerminal reports whether no further transition is possible from s.
func (s RideStatus) IsTerminal() bool {
	return s == RideStatusFinished || s == RideStatusCrashed
}

// Comment is a feedback entry left by a ride participant.
type Comment struct {
	AuthorID  string    `json:"author_id"`
	Like      bool      `json:"like"`
	Dislike   bool      `json:"dislike"`
	Text      string    `json:"text,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Ride is a shared trip offered by a driver with a bounded pool of seats.
type Ride struct {
	ID              string
	DriverID        string
	Passengers      []string
	TotalSeats      int
	AvailableSeats  int
	Status          RideStatus
	StartLocationID string
	DestinationID   string
	ScheduledAt     time.Time
	Comments        []Comment
	Version         int64 // bumped by the store on every committed write
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RideFinished reports whether the ride reached a terminal status.
func (r *Ride) RideFinished() bool {
	return r.Status.IsTerminal()
}

// HasPassenger reports whether id holds a seat on the ride.
func (r *Ride) HasPassenger(id string) bool {
	return slices.Contains(r.Passengers, id)
}

// IsParticipant reports whether id is the driver or one of the passengers.
func (r *Ride) IsParticipant(id string) bool {
	return id == r.DriverID || r.HasPassenger(id)
}

// HasCommentFrom reports whether authorID already left feedback.
func (r *Ride) HasCommentFrom(authorID string) bool {
	return slices.ContainsFunc(r.Comments, func(c Comment) bool {
		return c.AuthorID == authorID
	})
}

// Clone returns a deep copy so callers can mutate it without touching r.
func (r *Ride) Clone() *Ride {
	c := *r
	c.Passengers = slices.Clone(r.Passengers)
	c.Comments = slices.Clone(r.Comments)
	return &c
}

// RideSpec holds the driver-supplied parameters for a new ride offer.
type RideSpec struct {
	DriverID        string
	TotalSeats      int
	StartLocationID string
	DestinationID   string
	ScheduledAt     time.Time
}

// Validate checks the spec before a ride is created from it.
func (s RideSpec) Validate() error {
	if strings.TrimSpace(s.DriverID) == "" {
		return fmt.Errorf("%w: driver id is required", ErrInvalidSpec)
	}
	if s.TotalSeats < 1 {
		return fmt.Errorf("%w: total seats must be at least 1, got %d", ErrInvalidSpec, s.TotalSeats)
	}
	if strings.TrimSpace(s.StartLocationID) == "" {
		return fmt.Errorf("%w: start location is required", ErrInvalidSpec)
	}
	if strings.TrimSpace(s.DestinationID) == "" {
		return fmt.Errorf("%w: destination is required", ErrInvalidSpec)
	}
	if s.ScheduledAt.IsZero() {
		return fmt.Errorf("%w: scheduled time is required", ErrInvalidSpec)
	}
	return nil
}

// NewRide builds the initial Waiting snapshot for spec.
// The store assigns Version and timestamps when it persists the ride.
func NewRide(id string, spec RideSpec) *Ride {
	return &Ride{
		ID:              id,
		DriverID:        spec.DriverID,
		Passengers:      []string{},
		TotalSeats:      spec.TotalSeats,
		AvailableSeats:  spec.TotalSeats,
		Status:          RideStatusWaiting,
		StartLocationID: spec.StartLocationID,
		DestinationID:   spec.DestinationID,
		ScheduledAt:     spec.ScheduledAt,
		Comments:        []Comment{},
	}
}
