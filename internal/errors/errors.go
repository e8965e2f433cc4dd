// Package errors provides custom error types for the chatai client and its
// streaming session controller.
package errors

import (
	"errors"
	"fmt"
	"net"
)

// Sentinel errors for common cases
var (
	ErrBusy               = errors.New("session busy")
	ErrTransport          = errors.New("transport failed")
	ErrStreamInterrupted  = errors.New("stream interrupted")
	ErrNoPriorUserMessage = errors.New("no prior user message")
	ErrStreamActive       = errors.New("stream active")

	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyMessage    = errors.New("message has no text and no attachments")
	ErrInvalidSequence = errors.New("invalid message sequence")
	ErrInvalidChatName = errors.New("invalid chat name: use letters, digits, '_' and '-' only (max 64)")
	ErrChatExists      = errors.New("chat already exists")
	ErrChatNotFound    = errors.New("chat not found")
	ErrClientClosed    = errors.New("client is closed")
	ErrInvalidResponse = errors.New("invalid response format")
)

// BusyError is returned when a send is attempted while the session already
// has a stream in flight.
type BusyError struct {
	ChatID string
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("session %s busy: a response is already streaming", e.ChatID)
}

// Is allows comparison with sentinel errors
func (e *BusyError) Is(target error) bool {
	if target == ErrBusy {
		return true
	}
	_, ok := target.(*BusyError)
	return ok
}

// NewBusyError creates a new BusyError
func NewBusyError(chatID string) *BusyError {
	return &BusyError{ChatID: chatID}
}

// TransportError means the stream could not be opened. No partial state was
// created, so the send can be retried as is.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: transport failed", e.Op)
	}
	return fmt.Sprintf("%s: transport failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is allows comparison with sentinel errors
func (e *TransportError) Is(target error) bool {
	if target == ErrTransport {
		return true
	}
	_, ok := target.(*TransportError)
	return ok
}

// NewTransportError creates a new TransportError
func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

// StreamInterruptedError means the stream broke after it was opened. Partial
// holds the text received before the failure; it is kept in the transcript.
type StreamInterruptedError struct {
	Partial string
	Err     error
}

func (e *StreamInterruptedError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream interrupted after %d bytes: %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream interrupted: %v", e.Err)
}

func (e *StreamInterruptedError) Unwrap() error {
	return e.Err
}

// Is allows comparison with sentinel errors
func (e *StreamInterruptedError) Is(target error) bool {
	if target == ErrStreamInterrupted {
		return true
	}
	_, ok := target.(*StreamInterruptedError)
	return ok
}

// NewStreamInterruptedError creates a new StreamInterruptedError
func NewStreamInterruptedError(partial string, err error) *StreamInterruptedError {
	return &StreamInterruptedError{Partial: partial, Err: err}
}

// NoPriorUserMessageError is returned by regenerate when no user message
// precedes the target sequence.
type NoPriorUserMessageError struct {
	Sequence int
}

func (e *NoPriorUserMessageError) Error() string {
	return fmt.Sprintf("no user message before sequence %d", e.Sequence)
}

// Is allows comparison with sentinel errors
func (e *NoPriorUserMessageError) Is(target error) bool {
	if target == ErrNoPriorUserMessage {
		return true
	}
	_, ok := target.(*NoPriorUserMessageError)
	return ok
}

// NewNoPriorUserMessageError creates a new NoPriorUserMessageError
func NewNoPriorUserMessageError(sequence int) *NoPriorUserMessageError {
	return &NoPriorUserMessageError{Sequence: sequence}
}

// StreamActiveError is returned when the transcript is mutated while a
// stream is in flight.
type StreamActiveError struct {
	ChatID string
	Op     string
}

func (e *StreamActiveError) Error() string {
	return fmt.Sprintf("cannot %s in session %s while a response is streaming", e.Op, e.ChatID)
}

// Is allows comparison with sentinel errors
func (e *StreamActiveError) Is(target error) bool {
	if target == ErrStreamActive {
		return true
	}
	_, ok := target.(*StreamActiveError)
	return ok
}

// NewStreamActiveError creates a new StreamActiveError
func NewStreamActiveError(chatID, op string) *StreamActiveError {
	return &StreamActiveError{ChatID: chatID, Op: op}
}

// APIError represents an API request failure
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error [%d] at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("API error at %s: %s", e.Endpoint, e.Message)
}

// NewAPIError creates a new APIError
func NewAPIError(statusCode int, endpoint, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Endpoint:   endpoint,
		Message:    message,
	}
}

// NewAPIErrorWithBody creates an APIError that keeps the (truncated) response
// body for diagnostics.
func NewAPIErrorWithBody(statusCode int, endpoint, message, body string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Endpoint:   endpoint,
		Message:    message,
		Body:       body,
	}
}

// NetworkError wraps a failure below HTTP (dial, TLS, reset).
type NetworkError struct {
	Op       string
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("network error during %s (%s): %v", e.Op, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkErrorWithEndpoint creates a NetworkError for the given endpoint
func NewNetworkErrorWithEndpoint(op, endpoint string, err error) *NetworkError {
	return &NetworkError{Op: op, Endpoint: endpoint, Err: err}
}

// TimeoutError represents a request timeout
type TimeoutError struct {
	Message string
}

func (e *TimeoutError) Error() string {
	if e.Message == "" {
		return "request timed out"
	}
	return fmt.Sprintf("request timed out: %s", e.Message)
}

// NewTimeoutError creates a new TimeoutError
func NewTimeoutError(message string) *TimeoutError {
	return &TimeoutError{Message: message}
}

// ParseError represents a response parsing error
type ParseError struct {
	Message string
	Path    string
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("parse error at %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// Is allows comparison with sentinel errors
func (e *ParseError) Is(target error) bool {
	if target == ErrInvalidResponse {
		return true
	}
	_, ok := target.(*ParseError)
	return ok
}

// NewParseError creates a new ParseError
func NewParseError(message, path string) *ParseError {
	return &ParseError{Message: message, Path: path}
}

// IsTimeout reports whether err is a TimeoutError or a net timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// IsNetworkError reports whether err is a NetworkError
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// GetHTTPStatus returns the HTTP status carried by err, or 0.
func GetHTTPStatus(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode
	}
	return 0
}
