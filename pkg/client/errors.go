package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrBudgetExhausted is returned when the node error budget blocks a request.
	ErrBudgetExhausted = errors.New("request blocked: node error budget exhausted")

	// ErrMalformedResponse is returned when a node response body is not the expected JSON.
	ErrMalformedResponse = errors.New("malformed node response")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 responses from a node enforcing API limits.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassNode represents an errorCode reported in a node JSON body.
	ErrorClassNode ErrorClass = "node"
)

// HTTPError is a non-2xx response from the node.
type HTTPError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("node %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("node %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// Node error codes the views react to.
const (
	NodeErrorIncorrectParameter = 4
	NodeErrorUnknownAccount     = 5
)

// NodeError is an application-level failure reported by the node in a
// 200 response as {"errorCode": n, "errorDescription": "..."}.
type NodeError struct {
	RequestType string
	Code        int
	Description string
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	return fmt.Sprintf("node error %d on %s: %s", e.Code, e.RequestType, e.Description)
}

// IsUnknownAccount reports whether err is a NodeError for an account the
// node has never seen.
func IsUnknownAccount(err error) bool {
	var nodeErr *NodeError
	return errors.As(err, &nodeErr) && nodeErr.Code == NodeErrorUnknownAccount
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		// client and node errors are answers, not outages
		return false
	}
}

// countsAgainstBudget reports whether a failure spends the node error budget.
func countsAgainstBudget(errorClass ErrorClass) bool {
	return errorClass == ErrorClassServer || errorClass == ErrorClassNetwork
}
