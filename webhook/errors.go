package webhook

import "errors"

var (
	// ErrURLRequired indicates a client without a delivery URL.
	ErrURLRequired = errors.New("chatrelay webhook: url is required")
	// ErrAuthFailed indicates the client-credentials exchange was rejected.
	ErrAuthFailed = errors.New("chatrelay webhook: authentication failed")
	// ErrNoSession indicates Send was called before Open or after Close.
	ErrNoSession = errors.New("chatrelay webhook: session is not open")
	// ErrUnexpectedStatus indicates a non-2xx response from the channel.
	ErrUnexpectedStatus = errors.New("chatrelay webhook: unexpected status")
)
