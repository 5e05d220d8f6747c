package server

import (
	"errors"
	"net/http"

	"github.com/kokukuma/mdoc-issuer/country"
	"github.com/kokukuma/mdoc-issuer/document"
	"github.com/kokukuma/mdoc-issuer/formatter"
	"github.com/kokukuma/mdoc-issuer/schema"
	"github.com/kokukuma/mdoc-issuer/signer"
)

// Codes for failures the signing service has no code for.
const (
	codeInvalidRequest = 400
	codeNotFound       = 404
	codeInternal       = 500
	codeSigningFailed  = 502
)

// Pipeline error kinds reported to metrics.
const (
	kindMissingField      = "missing_required_field"
	kindMalformedField    = "malformed_field"
	kindInvalidNumber     = "invalid_number"
	kindUnknownDoctype    = "unknown_doctype"
	kindUnsupportedFormat = "unsupported_format"
	kindUnknownCountry    = "unknown_country"
	kindInternal          = "internal"
)

type apiError struct {
	status        int
	code          int
	message       string
	missingFields []string
	kind          string
	err           error
}

func (e *apiError) Error() string {
	return e.message
}

func newAPIError(status, code int, err error) *apiError {
	return &apiError{status: status, code: code, message: err.Error(), err: err}
}

// pipelineError translates a formatter failure into the response sent to the caller.
func pipelineError(err error) *apiError {
	var (
		missing     *formatter.MissingRequiredFieldError
		malformed   *formatter.MalformedFieldError
		invalid     *formatter.InvalidNumberError
		doctype     *schema.UnknownDoctypeError
		unsupported *document.UnsupportedFormatError
	)

	e := newAPIError(http.StatusBadRequest, codeInvalidRequest, err)
	switch {
	case errors.As(err, &missing):
		e.kind = kindMissingField
		e.message = missing.Error()
		e.missingFields = missing.Fields
	case errors.As(err, &malformed):
		e.kind = kindMalformedField
		e.message = malformed.Error()
	case errors.As(err, &invalid):
		e.kind = kindInvalidNumber
		e.message = invalid.Error()
	case errors.As(err, &doctype):
		e.kind = kindUnknownDoctype
		e.message = doctype.Error()
	case errors.As(err, &unsupported):
		e.kind = kindUnsupportedFormat
		e.message = unsupported.Error()
	case errors.Is(err, country.ErrUnknownCountry):
		e.kind = kindUnknownCountry
		e.code = signer.CodeUnsupportedCountry
		e.message = signer.CodeMessage(signer.CodeUnsupportedCountry)
	default:
		e.status = http.StatusInternalServerError
		e.code = codeInternal
		e.kind = kindInternal
	}
	return e
}

func signingError(err error) *apiError {
	e := newAPIError(http.StatusBadGateway, codeSigningFailed, err)
	var serviceErr *signer.ServiceError
	if errors.As(err, &serviceErr) {
		e.code = serviceErr.Code
		e.message = serviceErr.Message
	}
	return e
}

func requestError(code int) *apiError {
	return &apiError{
		status:  http.StatusBadRequest,
		code:    code,
		message: signer.CodeMessage(code),
		err:     errors.New(signer.CodeMessage(code)),
	}
}
