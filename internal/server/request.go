package server

import (
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/ory/go-convenience/stringslice"

	"github.com/kokukuma/mdoc-issuer/document"
	"github.com/kokukuma/mdoc-issuer/signer"
)

// IssueRequest is the body of the issue and preview endpoints. Forms use the
// same keys; every other form key is a claim.
type IssueRequest struct {
	Version         string                 `json:"version"`
	Country         string                 `json:"country"`
	DocType         string                 `json:"doctype"`
	Format          string                 `json:"format"`
	DevicePublicKey string                 `json:"device_publickey,omitempty"`
	Data            map[string]interface{} `json:"data"`
}

const (
	fieldVersion         = "version"
	fieldCountry         = "country"
	fieldDocType         = "doctype"
	fieldFormat          = "format"
	fieldDevicePublicKey = "device_publickey"
)

var reservedFormFields = []string{fieldVersion, fieldCountry, fieldDocType, fieldFormat, fieldDevicePublicKey}

// Claims carrying a date the signing service parses.
var dateFields = []string{string(document.IsoIssueDate), string(document.IsoExpiryDate)}

func parseIssueRequest(r *http.Request) (*IssueRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		return parseIssueForm(r)
	default:
		req := &IssueRequest{}
		if err := parseJSON(r, req); err != nil {
			return nil, err
		}
		return req, nil
	}
}

func parseIssueForm(r *http.Request) (*IssueRequest, error) {
	if err := r.ParseMultipartForm(1 << 20); err != nil && err != http.ErrNotMultipart {
		return nil, err
	}

	req := &IssueRequest{
		Version:         r.PostForm.Get(fieldVersion),
		Country:         r.PostForm.Get(fieldCountry),
		DocType:         r.PostForm.Get(fieldDocType),
		Format:          r.PostForm.Get(fieldFormat),
		DevicePublicKey: r.PostForm.Get(fieldDevicePublicKey),
		Data:            map[string]interface{}{},
	}
	for key, values := range r.PostForm {
		if stringslice.Has(reservedFormFields, key) || len(values) == 0 {
			continue
		}
		if len(values) == 1 {
			req.Data[key] = values[0]
			continue
		}
		req.Data[key] = values
	}
	return req, nil
}

// validate applies the checks of the signing service, in its order, so a
// request is rejected here with the code the service would return.
func (s *Server) validate(req *IssueRequest, requireDeviceKey bool) *apiError {
	if req.Version == "" || req.Country == "" || req.DocType == "" || req.Format == "" || req.Data == nil ||
		(requireDeviceKey && req.DevicePublicKey == "") {
		return requestError(signer.CodeMissingArgs)
	}
	if !stringslice.Has(s.apiVersions, req.Version) {
		return requestError(signer.CodeUnsupportedVersion)
	}
	if !s.countries.Supports(req.Country) {
		return requestError(signer.CodeUnsupportedCountry)
	}
	for _, field := range dateFields {
		v, ok := req.Data[field]
		if !ok {
			continue
		}
		if err := validateDate(v); err != nil {
			e := requestError(signer.CodeInvalidDate)
			e.err = fmt.Errorf("%s: %w", field, err)
			return e
		}
	}
	return nil
}

func validateDate(v interface{}) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("expected a date string, got %T", v)
	}
	_, err := time.Parse("2006-01-02", s)
	return err
}
