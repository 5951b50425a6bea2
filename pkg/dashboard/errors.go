package dashboard

import (
	"errors"
	"net/http"
	"strconv"
)

var (
	// ErrAlreadyRunning is returned by Start when the poller is already running.
	ErrAlreadyRunning = errors.New("poller already running")
)

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return "backend " + e.Endpoint + " returned " + strconv.Itoa(e.StatusCode) + " " + http.StatusText(e.StatusCode)
}
