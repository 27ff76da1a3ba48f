// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package redfish

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for failures the client detects itself.
var (
	ErrNotFound          = errors.New("redfish: not found")
	ErrAlreadyExists     = errors.New("redfish: already exists")
	ErrNoCapacity        = errors.New("redfish: no capacity")
	ErrForbidden         = errors.New("redfish: forbidden")
	ErrUnsupportedAction = errors.New("redfish: unsupported action")
	ErrUnrecognized      = errors.New("redfish: unrecognized response")
)

// ConnectionError reports a failure while establishing a client:
// discovery, service root retrieval, or session login.
type ConnectionError struct {
	// Endpoint is the BMC base URL.
	Endpoint string
	// Step names the handshake step that failed ("discovery",
	// "service root", "login").
	Step string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("redfish: connecting to %s: %s: %v", e.Endpoint, e.Step, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// RequestError is a failed protocol call. Callers can use errors.As to
// extract the structured information:
//
//	var requestErr *RequestError
//	if errors.As(err, &requestErr) {
//	    if requestErr.StatusCode == http.StatusConflict { ... }
//	}
type RequestError struct {
	Method string
	Path   string
	// StatusCode is the HTTP status, or 0 when the failure was detected
	// locally (for example a response missing a required header).
	StatusCode int
	// MessageID is the Redfish message id from the error's extended
	// info (e.g. "IDRAC.2.8.SYS446"), if any.
	MessageID string
	// Code is the error's "code" property (e.g. "Base.1.12.GeneralError").
	Code string
	// Message is the most specific human-readable text available.
	Message string
}

func (e *RequestError) Error() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "redfish: %s %s", e.Method, e.Path)
	if e.StatusCode != 0 {
		fmt.Fprintf(&builder, ": status %d", e.StatusCode)
	}
	if e.MessageID != "" {
		fmt.Fprintf(&builder, " [%s]", e.MessageID)
	}
	if e.Message != "" {
		fmt.Fprintf(&builder, ": %s", e.Message)
	}
	return builder.String()
}

// Is lets a 404 response satisfy errors.Is(err, ErrNotFound).
func (e *RequestError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// MessageKey reduces a dotted Redfish message id or error code to its
// final segment: "IDRAC.2.8.SYS446" becomes "SYS446" and
// "Base.1.8.ServiceTemporarilyUnavailable" becomes
// "ServiceTemporarilyUnavailable". Registries bump their version
// segments independently of the message they carry, so comparisons are
// made on the key alone.
func MessageKey(id string) string {
	if index := strings.LastIndexByte(id, '.'); index >= 0 {
		return id[index+1:]
	}
	return id
}

// MessageIDOf returns the vendor message id carried by err, or "" if
// err is not a *RequestError.
func MessageIDOf(err error) string {
	var requestErr *RequestError
	if errors.As(err, &requestErr) {
		return requestErr.MessageID
	}
	return ""
}

// IsRetryable reports whether err is a *RequestError whose message id
// or error code has a key in keys.
func IsRetryable(err error, keys []string) bool {
	var requestErr *RequestError
	if !errors.As(err, &requestErr) {
		return false
	}
	for _, key := range keys {
		key = MessageKey(key)
		if requestErr.MessageID != "" && MessageKey(requestErr.MessageID) == key {
			return true
		}
		if requestErr.Code != "" && MessageKey(requestErr.Code) == key {
			return true
		}
	}
	return false
}

// DefaultRetryableMessageIDs are the message keys that mean the
// controller is temporarily unable to answer. SYS446 and SYS518 are
// iDRAC "Lifecycle Controller busy / data not ready" responses,
// RAC0508 is the iDRAC "unable to complete the operation, retry"
// message.
var DefaultRetryableMessageIDs = []string{
	"SYS446",
	"SYS518",
	"RAC0508",
	"ServiceTemporarilyUnavailable",
}

// parseRequestError builds a RequestError from a failed response. The
// body is consulted for a Redfish error object; the extended info's
// first entry is preferred over the top-level message because BMCs put
// the actionable text there.
func parseRequestError(method, path string, status int, body []byte) *RequestError {
	requestErr := &RequestError{Method: method, Path: path, StatusCode: status}

	document, ok := decodeObject(body)
	if !ok {
		requestErr.Message = "an unspecified BMC request error occurred"
		if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
			requestErr.Message = truncate(trimmed, 200)
		}
		return requestErr
	}

	errorObject, _ := document["error"].(map[string]any)
	if errorObject == nil {
		requestErr.Message = "an unspecified BMC request error occurred"
		return requestErr
	}

	requestErr.Code, _ = errorObject["code"].(string)
	if extended, ok := errorObject["@Message.ExtendedInfo"].([]any); ok && len(extended) > 0 {
		if first, ok := extended[0].(map[string]any); ok {
			requestErr.Message, _ = first["Message"].(string)
			requestErr.MessageID, _ = first["MessageId"].(string)
		}
	}
	if requestErr.Message == "" {
		requestErr.Message, _ = errorObject["message"].(string)
	}
	if requestErr.Message == "" {
		requestErr.Message = requestErr.Code
	}
	return requestErr
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
