package errors

import "github.com/pkg/errors"

var (
	// common errors
	ErrNotFound = errors.New("not found")

	// sync errors
	ErrStaleCursor = errors.New("delta cursor no longer valid")
	ErrAuthFailed  = errors.New("provider authentication failed")

	// thread errors
	ErrThreadNotFound   = errors.New("thread not found")
	ErrContentRequired  = errors.New("content is required")
	ErrContentImmutable = errors.New("item content cannot be edited for this item type")
)
