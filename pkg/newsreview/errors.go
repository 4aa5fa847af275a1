package newsreview

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrDraftNotFound indicates the draft under review does not exist
	ErrDraftNotFound = errors.New("draft not found")

	// ErrNotFound indicates a secondary record (user, author, channel,
	// article) does not exist
	ErrNotFound = errors.New("not found")

	// ErrMalformedBody indicates the structured draft body could not be parsed
	ErrMalformedBody = errors.New("malformed draft body")

	// ErrPublicationFailed indicates the article aggregate could not be
	// created; completed steps have been rolled back
	ErrPublicationFailed = errors.New("publication failed")

	// ErrIndexProjectionFailed indicates the search document could not be
	// written; never returned to review callers
	ErrIndexProjectionFailed = errors.New("index projection failed")

	// ErrInvalidDecision indicates a manual decision other than accept/reject
	ErrInvalidDecision = errors.New("invalid manual decision")

	// ErrInvalidStatus indicates a draft is not in a status the operation accepts
	ErrInvalidStatus = errors.New("invalid draft status")

	// ErrDictionaryUnavailable indicates no sensitive word dictionary could be loaded
	ErrDictionaryUnavailable = errors.New("sensitive dictionary unavailable")
)

// DraftError represents an error related to a draft operation
type DraftError struct {
	DraftID int64
	Op      string
	Err     error
}

func (e *DraftError) Error() string {
	return fmt.Sprintf("draft operation %s failed for draft %d: %v", e.Op, e.DraftID, e.Err)
}

func (e *DraftError) Unwrap() error {
	return e.Err
}

// PublicationError reports which publication step failed and whether the
// rollback completed.
type PublicationError struct {
	DraftID     int64
	Step        string
	Err         error
	RollbackErr error
}

func (e *PublicationError) Error() string {
	if e.RollbackErr != nil {
		return fmt.Sprintf("publication of draft %d failed at %s: %v (rollback incomplete: %v)", e.DraftID, e.Step, e.Err, e.RollbackErr)
	}
	return fmt.Sprintf("publication of draft %d failed at %s: %v", e.DraftID, e.Step, e.Err)
}

func (e *PublicationError) Unwrap() error {
	return e.Err
}

func (e *PublicationError) Is(target error) bool {
	return target == ErrPublicationFailed
}
