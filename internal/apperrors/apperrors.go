package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")

	ErrInvalidRequest = errors.New("invalid request body")

	ErrRateLimited   = errors.New("upstream rate limit too low to start fetch")
	ErrCorruptedData = errors.New("persisted ledger data is unreadable")
)

// BucketAlreadyExistsError is returned when a bucket is saved without the
// force flag while the ledger already holds that key. No write occurs.
type BucketAlreadyExistsError struct {
	Organization string
	BucketKey    string
	RangeStart   string
	RangeEnd     string
}

func (e *BucketAlreadyExistsError) Error() string {
	return fmt.Sprintf(
		"bucket '%s' (%s..%s) already fetched for organization '%s'",
		e.BucketKey, e.RangeStart, e.RangeEnd, e.Organization,
	)
}
func (e *BucketAlreadyExistsError) Is(target error) bool { return target == ErrAlreadyExists }
