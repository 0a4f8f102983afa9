package portal

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNotReady means no fetch cycle has completed for the surface yet.
	ErrNotReady = errors.New("bookings are not loaded yet")
	// ErrSuperseded means a newer fetch cycle started while this one was in
	// flight; its result was discarded.
	ErrSuperseded = errors.New("fetch cycle superseded")
	// ErrConfirmInFlight is returned when a confirm is issued for a booking
	// that is already being confirmed.
	ErrConfirmInFlight = errors.New("booking is already being confirmed")
)

// RemoteError reports a failed call to the reservation backend. Status is
// zero when the request never got an answer.
type RemoteError struct {
	Op      string `json:"op"`
	Status  int    `json:"status"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: backend unreachable: %s", e.Op, e.Message)
	}
	if e.Message == "" {
		return fmt.Sprintf("%s: backend returned %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.Status, e.Message)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// AlreadyConfirmed reports whether the backend refused a confirm because the
// booking was confirmed before.
func (e *RemoteError) AlreadyConfirmed() bool {
	return e.Status == http.StatusBadRequest && strings.Contains(strings.ToLower(e.Message), "already confirmed")
}
