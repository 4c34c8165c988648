package domain

import "errors"

// UnavailableMessage is the caller-facing detail when the backend answers with a non-200 status
const UnavailableMessage = "Failed to fetch data from backend."

// Domain errors
var (
	ErrUpstreamUnavailable = errors.New(UnavailableMessage)
	ErrHistoryDisabled     = errors.New("scoreboard history is not enabled")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrInternalError       = errors.New("internal server error")
)

// TransportError reports a failure talking to the backend: network errors,
// timeouts and bodies that are not valid JSON.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// DataError reports a backend response that is valid JSON but cannot be
// interpreted as a list of players.
type DataError struct {
	Err error
}

func (e *DataError) Error() string { return e.Err.Error() }

func (e *DataError) Unwrap() error { return e.Err }

// IsUpstreamError reports whether err belongs to the upstream error taxonomy
func IsUpstreamError(err error) bool {
	var te *TransportError
	var de *DataError
	return errors.Is(err, ErrUpstreamUnavailable) || errors.As(err, &te) || errors.As(err, &de)
}

// Detail returns the message shown to callers for err, stripping any
// wrapping context added on the way up.
func Detail(err error) string {
	if errors.Is(err, ErrUpstreamUnavailable) {
		return UnavailableMessage
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Error()
	}
	var de *DataError
	if errors.As(err, &de) {
		return de.Error()
	}
	return err.Error()
}

// ErrSnapshotNotFound is returned when no scoreboard has been published yet
var ErrSnapshotNotFound = errors.New("no scoreboard snapshot published")
