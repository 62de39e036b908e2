package post

import "polls/pkg/common"

var (
	ErrPostNotFound  = common.NewError(common.ErrNotFound, "Post not found")
	ErrAlreadyVoted  = common.NewError(common.ErrConflict, "Already voted")
	ErrInvalidOption = common.Validation("Invalid option index")
	ErrNotCreator    = common.NewError(common.ErrForbidden, "Only the creator can delete the post")
	ErrLikeContended = common.NewError(common.ErrConflict, "Like state changed concurrently, try again")
)
