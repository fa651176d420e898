package user_services

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already taken")
)

// ValidationError reports rejected registration input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// maskUsername keeps logs from carrying full usernames.
func maskUsername(username string) string {
	return username[:min(4, len(username))] + "****"
}
