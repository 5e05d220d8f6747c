package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/samber/lo"

	"github.com/kokukuma/mdoc-issuer/country"
	"github.com/kokukuma/mdoc-issuer/devicekey"
	"github.com/kokukuma/mdoc-issuer/mdoc"
	"github.com/kokukuma/mdoc-issuer/schema"
)

type Configuration struct {
	ID         string   `json:"id"`
	DocType    string   `json:"doctype"`
	Format     string   `json:"format"`
	NameSpaces []string `json:"namespaces"`
}

type ConfigurationsResponse struct {
	Configurations []Configuration `json:"configurations"`
}

type CountriesResponse struct {
	Countries []country.Country `json:"countries"`
}

type DeviceKeyRequest struct {
	DevicePublicKey string `json:"device_publickey,omitempty"`
	DID             string `json:"did,omitempty"`
}

type HealthCheckResponse struct {
	Status      string    `json:"status"`
	CurrentTime time.Time `json:"currentTime"`
}

func (s *Server) ListConfigurations(w http.ResponseWriter, r *http.Request) {
	configs := lo.Map(s.catalog.Supported(), func(c *schema.CredentialSchema, _ int) Configuration {
		return Configuration{
			ID:         c.ID,
			DocType:    string(c.DocType),
			Format:     c.Format.String(),
			NameSpaces: lo.Map(c.NameSpaces(), func(ns mdoc.NameSpace, _ int) string { return string(ns) }),
		}
	})
	jsonResponse(w, ConfigurationsResponse{Configurations: configs}, http.StatusOK)
}

func (s *Server) ListCountries(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, CountriesResponse{Countries: s.countries.All()}, http.StatusOK)
}

// ConvertDeviceKey turns a wallet key, given as a base64 PEM or a did:key,
// into its COSE_Key and JWK encodings.
func (s *Server) ConvertDeviceKey(w http.ResponseWriter, r *http.Request) {
	req := DeviceKeyRequest{}
	if err := parseJSON(r, &req); err != nil {
		jsonErrorResponse(w, newAPIError(http.StatusBadRequest, codeInvalidRequest, fmt.Errorf("failed to parse request: %w", err)))
		return
	}

	var (
		conv *devicekey.Conversion
		err  error
	)
	switch {
	case req.DevicePublicKey != "" && req.DID != "":
		err = errors.New("only one of device_publickey and did can be given")
	case req.DevicePublicKey != "":
		conv, err = devicekey.Convert(req.DevicePublicKey)
	case req.DID != "":
		conv, err = devicekey.ConvertDIDKey(req.DID)
	default:
		err = errors.New("device_publickey or did is required")
	}
	if err != nil {
		jsonErrorResponse(w, newAPIError(http.StatusBadRequest, codeInvalidRequest, err))
		return
	}

	jsonResponse(w, conv, http.StatusOK)
}

func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, HealthCheckResponse{Status: "success", CurrentTime: s.now().UTC()}, http.StatusOK)
}
