package agent

import "errors"

var (
	// ErrMissingOperation: the message has no usable operation field.
	ErrMissingOperation = errors.New("agent: message missing operation")
	// ErrMalformedContent: instructional content lacks statement_cn or is not an object.
	ErrMalformedContent = errors.New("agent: malformed instructional content")
	// ErrInvalidJSON: the agent reply is not a JSON object.
	ErrInvalidJSON = errors.New("agent: reply is not a JSON object")
)
