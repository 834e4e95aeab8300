package steamnews

import (
	"github.com/cenkalti/backoff"
)

// transient failures (network errors, 429s and 5xx) get retried a couple of
// times with exponential backoff before the error is handed to the caller
const maxRetries = 2

func doWithRetries(op func() error) error {
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}

		if apiErr, ok := err.(*APIError); ok && !apiErr.IsTransient() {
			return backoff.Permanent(err)
		}

		if err == ErrAppNotFound {
			return backoff.Permanent(err)
		}

		return err
	}, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries))
}
