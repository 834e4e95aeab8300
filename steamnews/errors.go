package steamnews

import (
	"fmt"
	"net/http"

	"emperror.dev/errors"
)

// ErrAppNotFound is returned when the given app does not exist on the steam store
var ErrAppNotFound = errors.Sentinel("app not found on steam")

// APIError is a steam API failure response, steam does not return structured
// error bodies on these endpoints so only the status code is available
type APIError struct {
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("steam API responded with status %d", e.StatusCode)
}

// IsTransient returns true if the request that produced this error may
// succeed when retried later
func (e *APIError) IsTransient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// relevantError returns the http layer error if there is one, otherwise an
// *APIError if the response is a failure response
func relevantError(httpError error, resp *http.Response) error {
	if httpError != nil {
		return httpError
	}

	if resp != nil && resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode}
	}

	return nil
}
