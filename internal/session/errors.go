package session

import (
	"errors"
	"fmt"
)

// ErrSessionStale is returned when the catalog no longer accepts the current session. Callers
// recover from it with Manager.Recover.
var ErrSessionStale = errors.New("session is no longer accepted by the catalog")

// ConfigError is a missing or unusable piece of configuration: credentials, or the saved
// browser session replay mode depends on. It is never retried.
type ConfigError struct {
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// AuthError is a login the catalog explicitly rejected, or a stale session that could not be
// re-established. It is never retried.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("login failed: %s: %v", e.Message, e.Err)
	}
	return "login failed: " + e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
