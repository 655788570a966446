package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Transport errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrNetwork            = fmt.Errorf("network error")
	ErrTimeout            = fmt.Errorf("operation timed out")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Session errors
	ErrAuth             = fmt.Errorf("session expired or invalid")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTicketExpired    = fmt.Errorf("login ticket expired")
	ErrLoginSuperseded  = fmt.Errorf("login superseded by a newer attempt")

	// Library errors
	ErrSongNotFound    = fmt.Errorf("song not found in current page")
	ErrVersionConflict = fmt.Errorf("page replaced since read")
	ErrSuperseded      = fmt.Errorf("superseded by a newer fetch")

	// Match errors
	ErrMatchRejected   = fmt.Errorf("match rejected")
	ErrConcurrentMatch = fmt.Errorf("match already in progress")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// MatchError is a backend-rejected match and the reason the provider gave.
type MatchError struct {
	SongID   string
	TargetID string
	Reason   string
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("%v: %s -> %s: %s", ErrMatchRejected, e.SongID, e.TargetID, e.Reason)
}

// Is reports ErrMatchRejected as a match so callers can use [errors.Is].
func (e *MatchError) Is(target error) bool {
	return target == ErrMatchRejected
}
