package telegram

import "time"

// SetRetryDelay shortens the listener's retry delay and returns a function restoring it.
func SetRetryDelay(d time.Duration) func() {
	old := retryDelay
	retryDelay = d
	return func() { retryDelay = old }
}
