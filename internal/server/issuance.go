package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/kokukuma/mdoc-issuer/devicekey"
	"github.com/kokukuma/mdoc-issuer/document"
	"github.com/kokukuma/mdoc-issuer/formatter"
	"github.com/kokukuma/mdoc-issuer/internal/log"
	"github.com/kokukuma/mdoc-issuer/internal/metrics"
	"github.com/kokukuma/mdoc-issuer/mdoc"
	"github.com/kokukuma/mdoc-issuer/schema"
	"github.com/kokukuma/mdoc-issuer/signer"
)

type IssueResponse struct {
	RequestID  string `json:"request_id"`
	DocType    string `json:"doctype"`
	Format     string `json:"format"`
	Credential string `json:"credential"`
}

type PreviewResponse struct {
	DocType string             `json:"doctype"`
	Format  string             `json:"format"`
	Payload *formatter.Payload `json:"payload"`
}

// IssueCredential maps the submitted attributes, signs them and returns the credential.
func (s *Server) IssueCredential(w http.ResponseWriter, r *http.Request) {
	req, err := parseIssueRequest(r)
	if err != nil {
		jsonErrorResponse(w, newAPIError(http.StatusBadRequest, codeInvalidRequest, fmt.Errorf("failed to parse request: %w", err)))
		return
	}
	if e := s.validate(req, true); e != nil {
		s.metrics.IssuanceRequest(metrics.LabelUnknown, metrics.LabelUnknown, metrics.ResultRejected)
		jsonErrorResponse(w, e)
		return
	}

	cs, err := s.resolve(req)
	if err != nil {
		e := pipelineError(err)
		s.metrics.PipelineError(e.kind)
		s.metrics.IssuanceRequest(metrics.LabelUnknown, metrics.LabelUnknown, metrics.ResultRejected)
		jsonErrorResponse(w, e)
		return
	}
	docType, format := string(cs.DocType), cs.Format.String()

	pub, err := devicekey.ParsePEM(req.DevicePublicKey)
	if err != nil {
		s.metrics.IssuanceRequest(docType, format, metrics.ResultRejected)
		jsonErrorResponse(w, newAPIError(http.StatusBadRequest, codeInvalidRequest, fmt.Errorf("invalid device_publickey: %w", err)))
		return
	}

	issuance := s.issuances.NewIssuance(docType, format, req.Country)

	res, err := s.formatter.Format(formatter.Request{
		DocType: req.DocType,
		Format:  req.Format,
		Country: req.Country,
		Data:    req.Data,
	})
	if err != nil {
		e := pipelineError(err)
		if err := s.issuances.Reject(issuance.ID, e); err != nil {
			logger.Warn("failed to reject issuance", log.WithID(issuance.ID), log.WithError(err))
		}
		s.metrics.PipelineError(e.kind)
		s.metrics.IssuanceRequest(docType, format, metrics.ResultRejected)
		jsonErrorResponse(w, e)
		return
	}

	start := time.Now()
	credential, err := s.sign(r.Context(), req, res, func() (string, error) { return devicekey.JWK(pub) })
	s.metrics.SigningTime(time.Since(start))
	if err != nil {
		e := signingError(err)
		if err := s.issuances.Fail(issuance.ID, e); err != nil {
			logger.Warn("failed to fail issuance", log.WithID(issuance.ID), log.WithError(err))
		}
		s.metrics.IssuanceRequest(docType, format, metrics.ResultFailed)
		jsonErrorResponse(w, e)
		return
	}

	if err := s.issuances.Complete(issuance.ID); err != nil {
		logger.Warn("failed to complete issuance", log.WithID(issuance.ID), log.WithError(err))
	}
	s.metrics.IssuanceRequest(docType, format, metrics.ResultSuccess)
	logger.Info("credential issued",
		log.WithID(issuance.ID),
		log.WithDocType(docType),
		log.WithFormat(format),
		log.WithCountry(req.Country),
	)

	jsonResponse(w, IssueResponse{
		RequestID:  issuance.ID,
		DocType:    string(res.Schema.DocType),
		Format:     res.Schema.Format.String(),
		Credential: credential,
	}, http.StatusOK)
}

// resolve looks up the configuration so that only catalog names reach the
// status store and metric labels.
func (s *Server) resolve(req *IssueRequest) (*schema.CredentialSchema, error) {
	format, err := document.ParseFormat(req.Format)
	if err != nil {
		return nil, err
	}
	return s.catalog.Resolve(mdoc.DocType(req.DocType), format)
}

func (s *Server) sign(ctx context.Context, req *IssueRequest, res *formatter.Result, deviceJWK func() (string, error)) (string, error) {
	if s.mdlSigner != nil && res.Schema.DocType == document.IsoMDL && res.Schema.Format == document.FormatMdoc {
		jwk, err := deviceJWK()
		if err != nil {
			return "", err
		}
		return s.mdlSigner.Sign(ctx, res.Payload.NameSpaces, jwk)
	}

	return s.signer.Sign(ctx, &signer.Request{
		Version:            req.Version,
		Country:            req.Country,
		CredentialMetadata: res.Schema.Metadata,
		DevicePublicKey:    req.DevicePublicKey,
		Data:               res.Payload,
	})
}

// PreviewCredential returns the payload that would be sent for signing.
func (s *Server) PreviewCredential(w http.ResponseWriter, r *http.Request) {
	req, err := parseIssueRequest(r)
	if err != nil {
		jsonErrorResponse(w, newAPIError(http.StatusBadRequest, codeInvalidRequest, fmt.Errorf("failed to parse request: %w", err)))
		return
	}
	if e := s.validate(req, false); e != nil {
		jsonErrorResponse(w, e)
		return
	}

	res, err := s.formatter.Format(formatter.Request{
		DocType: req.DocType,
		Format:  req.Format,
		Country: req.Country,
		Data:    req.Data,
	})
	if err != nil {
		e := pipelineError(err)
		s.metrics.PipelineError(e.kind)
		jsonErrorResponse(w, e)
		return
	}

	jsonResponse(w, PreviewResponse{
		DocType: string(res.Schema.DocType),
		Format:  res.Schema.Format.String(),
		Payload: res.Payload,
	}, http.StatusOK)
}

// GetIssuance returns the status record of an earlier issue request.
func (s *Server) GetIssuance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	issuance, err := s.issuances.GetIssuance(id)
	if err != nil {
		jsonErrorResponse(w, newAPIError(http.StatusNotFound, codeNotFound, fmt.Errorf("failed to get issuance %s: %w", id, err)))
		return
	}

	jsonResponse(w, issuance, http.StatusOK)
}
