package user

import "polls/pkg/common"

var ErrUserNotFound = common.NewError(common.ErrNotFound, "User not found")
