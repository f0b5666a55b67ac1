package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error (connection refused, unreachable, etc.)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the backend refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeHTTP indicates a non-2xx response
	ErrTypeHTTP
	// ErrTypeNotFound indicates a 404 for an addressed entity
	ErrTypeNotFound
	// ErrTypeRejected indicates a 2xx response that reported failure or no ID
	ErrTypeRejected
	// ErrTypeParse indicates a malformed response body
	ErrTypeParse
	// ErrTypeValidation indicates a request the client refused to send
	ErrTypeValidation
)

// NetworkErrorSubtype provides more specific network error classification
type NetworkErrorSubtype int

const (
	NetworkErrorGeneral NetworkErrorSubtype = iota
	NetworkErrorTimeout
	NetworkErrorConnectionRefused
	NetworkErrorDNS
	NetworkErrorHostUnreachable
	NetworkErrorNetworkUnreachable
)

// maxMessageLen caps a non-JSON error body used as a message.
const maxMessageLen = 100

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeNotFound:
		return "Not Found"
	case ErrTypeRejected:
		return "Rejected"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeValidation:
		return "Validation Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// APIError represents a failed backend call
type APIError struct {
	Type           ErrorType           // Category of error
	Method         string              // HTTP method of the call
	Path           string              // Request path, e.g. /api/models
	StatusCode     int                 // HTTP status code (if applicable)
	Message        string              // Backend or client supplied message
	Err            error               // Underlying error (if any)
	NetworkSubtype NetworkErrorSubtype // More specific network error type
	Retryable      bool                // Whether the call may be retried
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *APIError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes a transport error and returns a more
// specific error type
func ClassifyNetworkError(err error) *APIError {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return &APIError{
			Type:           ErrTypeTimeout,
			Message:        "Request timed out",
			Err:            err,
			NetworkSubtype: NetworkErrorTimeout,
			Retryable:      true,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &APIError{
			Type:           ErrTypeDNS,
			Message:        fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:            err,
			NetworkSubtype: NetworkErrorDNS,
			Retryable:      false,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return &APIError{
				Type:           ErrTypeConnectionRefused,
				Message:        "Backend refused connection",
				Err:            err,
				NetworkSubtype: NetworkErrorConnectionRefused,
				Retryable:      true,
			}
		}
		if errors.Is(opErr.Err, syscall.EHOSTUNREACH) {
			return &APIError{
				Type:           ErrTypeNetwork,
				Message:        "Host unreachable",
				Err:            err,
				NetworkSubtype: NetworkErrorHostUnreachable,
				Retryable:      true,
			}
		}
		if errors.Is(opErr.Err, syscall.ENETUNREACH) {
			return &APIError{
				Type:           ErrTypeNetwork,
				Message:        "Network unreachable",
				Err:            err,
				NetworkSubtype: NetworkErrorNetworkUnreachable,
				Retryable:      true,
			}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return ClassifyNetworkError(urlErr.Err)
	}

	return &APIError{
		Type:           ErrTypeNetwork,
		Message:        "Network error occurred",
		Err:            err,
		NetworkSubtype: NetworkErrorGeneral,
		Retryable:      true,
	}
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(message string, err error) *APIError {
	classified := ClassifyNetworkError(err)
	if classified != nil {
		classified.Message = message
		return classified
	}
	return &APIError{
		Type:      ErrTypeNetwork,
		Message:   message,
		Err:       err,
		Retryable: true,
	}
}

// NewHTTPError creates an error for a non-2xx response
func NewHTTPError(statusCode int, message string) *APIError {
	t := ErrTypeHTTP
	if statusCode == http.StatusNotFound {
		t = ErrTypeNotFound
	}
	return &APIError{
		Type:       t,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  statusCode >= 500, // Server errors are retryable
	}
}

// NewRejectedError creates an error for a 2xx response that carried no
// usable result
func NewRejectedError(message string) *APIError {
	return &APIError{
		Type:    ErrTypeRejected,
		Message: message,
	}
}

// NewParseError creates a parsing error
func NewParseError(message string, err error) *APIError {
	return &APIError{
		Type:    ErrTypeParse,
		Message: message,
		Err:     err,
	}
}

// NewValidationError creates a client-side request error
func NewValidationError(message string) *APIError {
	return &APIError{
		Type:    ErrTypeValidation,
		Message: message,
	}
}

// BackendMessage extracts the operator-facing message from an error
// response: the "error" member of a JSON body, the first 100 characters of
// any other body, or a generic "Failed to <op>".
func BackendMessage(op string, statusCode int, body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Error != "":
			return payload.Error
		case payload.Message != "":
			return payload.Message
		default:
			return fmt.Sprintf("Failed to %s", op)
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return fmt.Sprintf("Failed to %s (HTTP %d)", op, statusCode)
	}
	if r := []rune(text); len(r) > maxMessageLen {
		return string(r[:maxMessageLen])
	}
	return text
}

func asAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsNetworkError checks if an error is a network error (including timeout, connection refused, DNS)
func IsNetworkError(err error) bool {
	if apiErr, ok := asAPIError(err); ok {
		return apiErr.Type == ErrTypeNetwork ||
			apiErr.Type == ErrTypeTimeout ||
			apiErr.Type == ErrTypeConnectionRefused ||
			apiErr.Type == ErrTypeDNS
	}
	return false
}

// IsTimeoutError checks if an error is a timeout
func IsTimeoutError(err error) bool {
	apiErr, ok := asAPIError(err)
	return ok && apiErr.Type == ErrTypeTimeout
}

// IsHTTPError checks if an error is a non-2xx response
func IsHTTPError(err error) bool {
	apiErr, ok := asAPIError(err)
	return ok && (apiErr.Type == ErrTypeHTTP || apiErr.Type == ErrTypeNotFound)
}

// IsNotFound checks if an error is a 404
func IsNotFound(err error) bool {
	apiErr, ok := asAPIError(err)
	return ok && apiErr.Type == ErrTypeNotFound
}

// IsParseError checks if an error is a parse error
func IsParseError(err error) bool {
	apiErr, ok := asAPIError(err)
	return ok && apiErr.Type == ErrTypeParse
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	if apiErr, ok := asAPIError(err); ok {
		return apiErr.Retryable
	}
	// Unknown errors are not retryable by default
	return false
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) string {
	apiErr, ok := asAPIError(err)
	if !ok {
		return "An unexpected error occurred. Please try again."
	}

	switch apiErr.Type {
	case ErrTypeTimeout:
		return strings.Join([]string{
			"The gateway did not respond in time.",
			"Troubleshooting:",
			"  • Check that the gateway is powered on",
			"  • Verify the gateway address (gwcfg gateways list)",
			"  • Raise the request timeout with --timeout",
		}, "\n")

	case ErrTypeConnectionRefused:
		return strings.Join([]string{
			"The gateway refused the connection.",
			"Troubleshooting:",
			"  • The configuration service may not be running - try rebooting the gateway",
			"  • Verify the port number (default is 9000)",
		}, "\n")

	case ErrTypeDNS:
		return strings.Join([]string{
			"Could not resolve the gateway hostname.",
			"Troubleshooting:",
			"  • Use the IP address instead of hostname",
			"  • Run gwcfg scan to discover gateways on the local network",
		}, "\n")

	case ErrTypeNetwork:
		hint := []string{"Network communication failed."}
		switch apiErr.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			hint = append(hint, "The gateway is not reachable on the network.",
				"Troubleshooting:",
				"  • Verify the gateway IP address is correct",
				"  • Check that you're on the same network as the gateway")
		case NetworkErrorNetworkUnreachable:
			hint = append(hint, "Your computer cannot reach the gateway's network.",
				"Troubleshooting:",
				"  • Check your network adapter settings")
		default:
			hint = append(hint, "Troubleshooting:",
				"  • Check your network connection",
				"  • Verify the gateway is powered on")
		}
		return strings.Join(hint, "\n")

	case ErrTypeHTTP, ErrTypeNotFound:
		if apiErr.StatusCode >= 500 {
			return strings.Join([]string{
				fmt.Sprintf("The gateway returned an error (HTTP %d).", apiErr.StatusCode),
				"Troubleshooting:",
				"  • Retry the operation; entered values were kept",
				"  • Check the gateway logs for the failing request",
			}, "\n")
		}
		return fmt.Sprintf("The gateway rejected the request (HTTP %d). Check the entered values.", apiErr.StatusCode)

	case ErrTypeRejected:
		return "The gateway accepted the request but did not return an ID. Check whether the entity already exists."

	case ErrTypeParse:
		return "Failed to parse the gateway's response. The gateway firmware may be incompatible."

	case ErrTypeValidation:
		return "The request values are invalid. Check the error message for details."

	default:
		return "An error occurred. Please check the error message for details."
	}
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	apiErr, ok := asAPIError(err)
	if !ok {
		return err.Error()
	}

	switch apiErr.Type {
	case ErrTypeTimeout:
		return "Gateway not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Gateway refused connection"
	case ErrTypeDNS:
		return "Cannot resolve gateway hostname"
	case ErrTypeNetwork:
		return "Network error - check connection"
	default:
		return apiErr.Message
	}
}
