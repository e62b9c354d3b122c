package domain

import "errors"

var (
	MessageSuccessGetProfile = "profile fetched successfully"
	MessageFailedGetProfile  = "failed to fetch profile"

	ErrUserNotFound = errors.New("user not found")
)

// Identity is what an authenticated request knows about its caller.
type Identity struct {
	UserID string
	Email  string
	Name   string
	Role   string
}

type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}
