package lifecycle

import (
	"time"

	"carpool/internal/domain"
)

// CommentInput is the feedback a participant leaves on a ride.
type CommentInput struct {
	AuthorID string
	Like     bool
	Dislike  bool
	Text     string
}

// AddComment appends feedback from in.AuthorID.
// Comments are accepted in any status; each participant may comment once.
func AddComment(ride *domain.Ride, in CommentInput, now time.Time) (*domain.Ride, error) {
	if !ride.IsParticipant(in.AuthorID) {
		return nil, ErrNotParticipant
	}
	if in.Like && in.Dislike {
		return nil, ErrInvalidRating
	}
	if ride.HasCommentFrom(in.AuthorID) {
		return nil, ErrDuplicateComment
	}

	next := ride.Clone()
	next.Comments = append(next.Comments, domain.Comment{
		AuthorID:  in.AuthorID,
		Like:      in.Like,
		Dislike:   in.Dislike,
		Text:      in.Text,
		CreatedAt: now.UTC(),
	})
	return next, nil
}
