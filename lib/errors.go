package lib

import "fmt"

// AuthenticationError wraps a failed STS call: a bad MFA token, a denied
// policy, a network failure. Not recoverable without operator action.
type AuthenticationError struct {
	Profile string
	Err     error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed for profile %q: %s", e.Profile, e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// StorageError wraps a session cache write failure. Read failures never
// produce one; they behave like a cache miss.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("session cache: %s", e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
