package signer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/kokukuma/mdoc-issuer/document"
	"github.com/kokukuma/mdoc-issuer/mdoc"
)

type MDLConfig struct {
	// URL is the full endpoint of the mDL signing service.
	URL          string
	HTTPClient   httpClient
	MaxRetries   uint64
	NewRequestID func() string
}

// MDLClient signs mDL namespaces directly with the CBOR signing service.
type MDLClient struct {
	url          string
	httpClient   httpClient
	retry        retryPolicy
	newRequestID func() string
}

type mdlResponse struct {
	Credential string `json:"credential"`
}

func NewMDLClient(config *MDLConfig) *MDLClient {
	client := config.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	newID := config.NewRequestID
	if newID == nil {
		newID = uuid.NewString
	}
	return &MDLClient{
		url:          config.URL,
		httpClient:   client,
		retry:        newRetryPolicy(config.MaxRetries, 0),
		newRequestID: newID,
	}
}

// Sign returns the signed mdoc, base64url encoded. deviceJWK is the base64
// JWK of the device key.
func (c *MDLClient) Sign(ctx context.Context, nameSpaces mdoc.IssuerNameSpaces, deviceJWK string) (string, error) {
	body := make(map[mdoc.NameSpace]interface{}, len(nameSpaces))
	for ns, items := range nameSpaces {
		if ns == document.ISO1801351 {
			body[ns] = map[string]interface{}{"credential": items}
			continue
		}
		body[ns] = items
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var resp mdlResponse
	err = c.retry.do(ctx, c.url, func() error {
		return c.post(ctx, payload, deviceJWK, &resp)
	})
	if err != nil {
		return "", err
	}

	raw, err := hex.DecodeString(resp.Credential)
	if err != nil {
		return "", fmt.Errorf("decode credential: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("mDL service returned an empty credential")
	}
	return base64.URLEncoding.EncodeToString(raw), nil
}

func (c *MDLClient) post(ctx context.Context, payload []byte, deviceJWK string, out *mdlResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("x-request-id", c.newRequestID())
	req.Header.Set("x-device-jwk", deviceJWK)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, application/problem+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return nil
}
