package lifecycle

import "errors"

// RuleError is a business-rule violation detected by the engine.
// Code is stable and safe to expose to API clients.
type RuleError struct {
	Code string
	msg  string
}

func (e *RuleError) Error() string { return e.msg }

func newRuleError(code, msg string) *RuleError {
	return &RuleError{Code: code, msg: msg}
}

var (
	// ErrInvalidTransition is returned when the requested status change is not an allowed edge.
	ErrInvalidTransition = newRuleError("invalid_transition", "invalid ride status transition")

	// ErrRideNotWaiting is returned when seats are changed on a ride that already left.
	ErrRideNotWaiting = newRuleError("ride_not_waiting", "ride is not waiting for passengers")

	// ErrAlreadyBooked is returned when the passenger already holds a seat.
	ErrAlreadyBooked = newRuleError("already_booked", "passenger already booked on this ride")

	// ErrNotBooked is returned when cancelling a seat the passenger does not hold.
	ErrNotBooked = newRuleError("not_booked", "passenger is not booked on this ride")

	// ErrNoCapacity is returned when no seat is left.
	ErrNoCapacity = newRuleError("no_capacity", "no seats available")

	// ErrSelfBooking is returned when the driver tries to book their own ride.
	ErrSelfBooking = newRuleError("self_booking", "driver cannot book a seat on their own ride")

	// ErrDuplicateComment is returned when the author already commented on the ride.
	ErrDuplicateComment = newRuleError("duplicate_comment", "participant already commented on this ride")

	// ErrInvalidRating is returned when a comment both likes and dislikes the ride.
	ErrInvalidRating = newRuleError("invalid_rating", "comment cannot both like and dislike")

	// ErrNotParticipant is returned when a non-participant tries to comment.
	ErrNotParticipant = newRuleError("not_participant", "author is not a participant of this ride")
)

// IsStateConflict reports whether err is a business-rule violation raised by the engine.
func IsStateConflict(err error) bool {
	var re *RuleError
	return errors.As(err, &re)
}
