package log

import (
	"time"

	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"
)

const (
	FieldID         = "id"
	FieldDocType    = "docType"
	FieldFormat     = "format"
	FieldCountry    = "country"
	FieldURL        = "url"
	FieldPath       = "path"
	FieldHTTPStatus = "httpStatus"
	FieldErrorCode  = "errorCode"
	FieldDuration   = "duration"
	FieldAttempt    = "attempt"
	FieldClaims     = "claims"
	FieldPayload    = "payload"
)

func WithError(err error) zap.Field {
	return zap.Error(err)
}

func WithID(id string) zap.Field {
	return zap.String(FieldID, id)
}

func WithDocType(docType string) zap.Field {
	return zap.String(FieldDocType, docType)
}

func WithFormat(format string) zap.Field {
	return zap.String(FieldFormat, format)
}

func WithCountry(country string) zap.Field {
	return zap.String(FieldCountry, country)
}

func WithURL(url string) zap.Field {
	return zap.String(FieldURL, url)
}

func WithPath(path string) zap.Field {
	return zap.String(FieldPath, path)
}

func WithHTTPStatus(status int) zap.Field {
	return zap.Int(FieldHTTPStatus, status)
}

func WithErrorCode(code int) zap.Field {
	return zap.Int(FieldErrorCode, code)
}

func WithDuration(d time.Duration) zap.Field {
	return zap.Duration(FieldDuration, d)
}

func WithAttempt(attempt int) zap.Field {
	return zap.Int(FieldAttempt, attempt)
}

// WithClaims logs claim names only, never values.
func WithClaims(names []string) zap.Field {
	return zap.Strings(FieldClaims, names)
}

// WithPayload dumps v for debugging. Callers guard it with IsEnabled(DEBUG).
func WithPayload(v interface{}) zap.Field {
	return zap.String(FieldPayload, spew.Sdump(v))
}
