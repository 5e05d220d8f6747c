package signer

import "fmt"

// Error codes shared with the signing service.
const (
	CodeOK                 = 0
	CodeUnsupportedVersion = 13
	CodeUnsupportedCountry = 102
	CodeInvalidDate        = 306
	CodeMissingArgs        = 401
)

var codeMessages = map[int]string{
	CodeOK:                 "No error.",
	CodeUnsupportedVersion: "Version is not supported.",
	CodeUnsupportedCountry: "Country is not supported.",
	CodeInvalidDate:        "Date is not in the correct format. Should be YYYY-MM-DD.",
	CodeMissingArgs:        "Missing mandatory formatter fields.",
}

func CodeMessage(code int) string {
	if msg, ok := codeMessages[code]; ok {
		return msg
	}
	return fmt.Sprintf("Error %d.", code)
}

// ServiceError is an application error reported by the signing service.
// It is never retried.
type ServiceError struct {
	Code    int
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("signing service error %d: %s", e.Code, e.Message)
}

// StatusError is returned for an unexpected HTTP status. 5xx responses are
// retried before it surfaces.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status code: %d, msg: %s", e.StatusCode, e.Body)
}
