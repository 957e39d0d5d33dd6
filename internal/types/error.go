package types

import "fmt"

// CustomError carries an HTTP status code and a stable, machine-checkable
// message through the fiber error chain.
type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}

// NotFound builds a 404 error for a missing view, table, or row.
func NotFound(message string) *CustomError {
	return &CustomError{Code: 404, Message: message, Type: "notfound"}
}

// Validation builds a 400 error for a malformed request. The message must
// stay stable; clients match on it.
func Validation(message string) *CustomError {
	return &CustomError{Code: 400, Message: message, Type: "validation"}
}

// Forbidden builds a 403 error. The message deliberately reveals nothing
// about whether the resource exists.
func Forbidden() *CustomError {
	return &CustomError{Code: 403, Message: "Access denied", Type: "authorization"}
}

// StoreError wraps a backing-store failure as a 500. Retry policy belongs
// to the caller, not the engine.
func StoreError(err error) *CustomError {
	return &CustomError{Code: 500, Message: fmt.Sprintf("store error: %v", err), Type: "store"}
}
