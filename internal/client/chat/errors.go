package chat

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyMessage       = errors.New("message is empty")
	ErrSendInProgress     = errors.New("a reply is still being received")
	ErrServiceUnavailable = errors.New("chat service unavailable")
	ErrStreamConsumed     = errors.New("stream already consumed")
	ErrTranscriptClosed   = errors.New("transcript closed")
)

type ErrorKind int

const (
	ServiceUnavailable ErrorKind = iota + 1
)

// ChatError is a failed chat turn. Detail is the response body or status
// text, suitable for logs.
type ChatError struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *ChatError) Error() string {
	if e.Detail == "" {
		return ErrServiceUnavailable.Error()
	}
	return fmt.Sprintf("%s: %s", ErrServiceUnavailable, e.Detail)
}

func (e *ChatError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrServiceUnavailable}
	}
	return []error{ErrServiceUnavailable, e.Err}
}

func unavailable(err error) *ChatError {
	return &ChatError{Kind: ServiceUnavailable, Detail: detail(err), Err: err}
}
