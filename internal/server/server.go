// Package server exposes the issuance HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kokukuma/mdoc-issuer/country"
	"github.com/kokukuma/mdoc-issuer/formatter"
	"github.com/kokukuma/mdoc-issuer/internal/log"
	"github.com/kokukuma/mdoc-issuer/internal/metrics"
	"github.com/kokukuma/mdoc-issuer/mdoc"
	"github.com/kokukuma/mdoc-issuer/schema"
	"github.com/kokukuma/mdoc-issuer/signer"
)

var logger = log.New("server")

// Signer signs assembled payloads through the formatter endpoints.
type Signer interface {
	Sign(ctx context.Context, req *signer.Request) (string, error)
}

// MDLSigner signs mDL namespaces with the direct CBOR service.
type MDLSigner interface {
	Sign(ctx context.Context, nameSpaces mdoc.IssuerNameSpaces, deviceJWK string) (string, error)
}

type Config struct {
	Catalog     *schema.Catalog
	Countries   *country.Registry
	Signer      Signer
	MDLSigner   MDLSigner
	APIVersions []string

	// Metrics defaults to collectors on a private registry.
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	// Status records are bounded by age and count. Zero selects the defaults.
	IssuanceTTL      time.Duration
	IssuanceCapacity int

	FormatterOptions []formatter.Option
	Now              func() time.Time
}

type Server struct {
	catalog     *schema.Catalog
	countries   *country.Registry
	formatter   *formatter.Formatter
	signer      Signer
	mdlSigner   MDLSigner
	apiVersions []string
	issuances   *Issuances
	metrics     *metrics.Metrics
	gatherer    prometheus.Gatherer
	now         func() time.Time
}

func NewServer(config *Config) (*Server, error) {
	if config.Catalog == nil || config.Countries == nil {
		return nil, errors.New("catalog and countries are required")
	}
	if config.Signer == nil {
		return nil, errors.New("signer is required")
	}
	if len(config.APIVersions) == 0 {
		return nil, errors.New("at least one API version is required")
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}

	m, gatherer := config.Metrics, config.Gatherer
	if m == nil {
		reg := prometheus.NewRegistry()
		m, gatherer = metrics.New(reg), reg
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return &Server{
		catalog:     config.Catalog,
		countries:   config.Countries,
		formatter:   formatter.New(config.Catalog, config.Countries, config.FormatterOptions...),
		signer:      config.Signer,
		mdlSigner:   config.MDLSigner,
		apiVersions: config.APIVersions,
		issuances: NewIssuances(now,
			WithIssuanceTTL(config.IssuanceTTL),
			WithIssuanceCapacity(config.IssuanceCapacity),
		),
		metrics:     m,
		gatherer:    gatherer,
		now:         now,
	}, nil
}

// ErrorResponse mirrors the error body of the signing service.
type ErrorResponse struct {
	ErrorCode     int      `json:"error_code"`
	ErrorMessage  string   `json:"error_message"`
	MissingFields []string `json:"missing_fields,omitempty"`
}

func parseJSON(r *http.Request, v interface{}) error {
	if r == nil || r.Body == nil {
		return errors.New("No request given")
	}

	defer r.Body.Close()
	defer io.Copy(io.Discard, r.Body)

	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil {
		return err
	}
	return nil
}

func jsonResponse(w http.ResponseWriter, d interface{}, c int) {
	dj, err := json.Marshal(d)
	if err != nil {
		http.Error(w, "Error creating JSON response", http.StatusInternalServerError)
		return
	}
	if logger.IsEnabled(log.DEBUG) {
		logger.Debug("response", log.WithHTTPStatus(c), log.WithPayload(d))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(c)
	fmt.Fprintf(w, "%s", dj)
}

func jsonErrorResponse(w http.ResponseWriter, e *apiError) {
	logger.Warn("request failed",
		log.WithHTTPStatus(e.status),
		log.WithErrorCode(e.code),
		log.WithError(e.err),
	)
	jsonResponse(w, ErrorResponse{
		ErrorCode:     e.code,
		ErrorMessage:  e.message,
		MissingFields: e.missingFields,
	}, e.status)
}
