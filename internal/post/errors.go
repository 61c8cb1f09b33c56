package post

import "errors"

var (
	// ErrPostNotFound signals that the post could not be located.
	ErrPostNotFound = errors.New("post not found")
	// ErrSlugExists is returned when the slug is already taken.
	ErrSlugExists = errors.New("slug already exists")
	// ErrInvalidStatus rejects statuses outside draft/published.
	ErrInvalidStatus = errors.New("invalid post status")
)
