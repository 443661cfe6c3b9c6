package service

import "errors"

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrPostNotFound   = errors.New("post not found")
	ErrConflict       = errors.New("username or email already registered")
	ErrInternalServer = errors.New("internal server error")
)
