// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import "errors"

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the agent client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeStatus
	ErrTypeEmptyBody
	ErrTypeAborted
	ErrTypeInvalidRequest
)

// String returns a short name for the error type, used in log fields.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeConnection:
		return "connection"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeStatus:
		return "status"
	case ErrTypeEmptyBody:
		return "empty_body"
	case ErrTypeAborted:
		return "aborted"
	case ErrTypeInvalidRequest:
		return "invalid_request"
	default:
		return "unknown"
	}
}

// Sentinel errors for easy checking.
var (
	ErrUnreachable = &ClientError{Type: ErrTypeConnection, Message: "agent is not reachable"}
	ErrTimeout     = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrEmptyBody   = &ClientError{Type: ErrTypeEmptyBody, Message: "agent returned an empty response"}
)

// TypeOf returns the ErrorType of err, or ErrTypeUnknown.
func TypeOf(err error) ErrorType {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type
	}
	return ErrTypeUnknown
}

// IsConnection checks if an error means the agent could not be reached.
func IsConnection(err error) bool {
	return TypeOf(err) == ErrTypeConnection
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	return TypeOf(err) == ErrTypeTimeout
}

// IsAborted checks if the request or stream was cancelled by the caller.
func IsAborted(err error) bool {
	return TypeOf(err) == ErrTypeAborted
}
