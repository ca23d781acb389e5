package client

import "errors"

// Error taxonomy of the generation service client. RemoteUnavailable is
// transient and never turns into a job failure; JobNotFound is terminal.
var (
	ErrRemoteUnavailable = errors.New("generation service unavailable")
	ErrInvalidPayload    = errors.New("invalid payload")
	ErrJobNotFound       = errors.New("job not found on generation service")
	ErrResultUnavailable = errors.New("result unavailable")
)
