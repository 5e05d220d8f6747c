// Package signer sends assembled payloads to the external signing service.
package signer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/kokukuma/mdoc-issuer/document"
	"github.com/kokukuma/mdoc-issuer/formatter"
	"github.com/kokukuma/mdoc-issuer/internal/log"
)

var logger = log.New("signer")

const (
	cborPath  = "formatter/cbor"
	sdJWTPath = "formatter/sd-jwt"

	defaultMaxRetries      = 3
	defaultInitialInterval = 200 * time.Millisecond
)

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	// ServiceURL is the base URL the formatter paths are resolved against.
	ServiceURL      string
	HTTPClient      httpClient
	MaxRetries      uint64
	InitialInterval time.Duration
}

type Client struct {
	serviceURL *url.URL
	httpClient httpClient
	retry      retryPolicy
}

// Request is the body of a formatter call.
type Request struct {
	Version            string             `json:"version"`
	Country            string             `json:"country"`
	CredentialMetadata json.RawMessage    `json:"credential_metadata"`
	DevicePublicKey    string             `json:"device_publickey"`
	Data               *formatter.Payload `json:"data"`
}

type response struct {
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
	Mdoc         string `json:"mdoc"`
	SDJWT        string `json:"sd-jwt"`
}

func New(config *Config) (*Client, error) {
	base := config.ServiceURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse service url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("service url must be absolute: %q", config.ServiceURL)
	}

	client := config.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	return &Client{
		serviceURL: u,
		httpClient: client,
		retry:      newRetryPolicy(config.MaxRetries, config.InitialInterval),
	}, nil
}

// Sign posts the request to the formatter endpoint of its payload format and
// returns the signed credential.
func (c *Client) Sign(ctx context.Context, req *Request) (string, error) {
	if req.Data == nil {
		return "", errors.New("no payload to sign")
	}

	var path string
	switch req.Data.Format {
	case document.FormatMdoc:
		path = cborPath
	case document.FormatSDJWT:
		path = sdJWTPath
	default:
		return "", &document.UnsupportedFormatError{Format: req.Data.Format.String()}
	}
	endpoint := c.serviceURL.ResolveReference(&url.URL{Path: path}).String()

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var resp *response
	err = c.retry.do(ctx, endpoint, func() error {
		var postErr error
		resp, postErr = c.post(ctx, endpoint, payload)
		return postErr
	})
	if err != nil {
		return "", err
	}

	if resp.ErrorCode != CodeOK {
		return "", &ServiceError{Code: resp.ErrorCode, Message: resp.ErrorMessage}
	}

	credential := resp.Mdoc
	if req.Data.Format == document.FormatSDJWT {
		credential = resp.SDJWT
	}
	if credential == "" {
		return "", errors.New("signing service returned an empty credential")
	}
	return credential, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload []byte) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Add("content-type", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer httpResp.Body.Close()

	if err := checkStatus(httpResp); err != nil {
		return nil, err
	}

	var result response
	if err := json.NewDecoder(httpResp.Body).Decode(&result); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return &result, nil
}

// checkStatus marks every non-2xx status except 5xx as permanent.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(resp.Body)
	err := &StatusError{StatusCode: resp.StatusCode, Body: string(b)}
	if resp.StatusCode >= http.StatusInternalServerError {
		return err
	}
	return backoff.Permanent(err)
}

type retryPolicy struct {
	maxRetries      uint64
	initialInterval time.Duration
}

func newRetryPolicy(maxRetries uint64, initialInterval time.Duration) retryPolicy {
	if initialInterval <= 0 {
		initialInterval = defaultInitialInterval
	}
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	return retryPolicy{maxRetries: maxRetries, initialInterval: initialInterval}
}

func (p retryPolicy) do(ctx context.Context, endpoint string, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.initialInterval
	b.MaxElapsedTime = 0

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		return op()
	}, backoff.WithContext(backoff.WithMaxRetries(b, p.maxRetries), ctx),
		func(err error, next time.Duration) {
			logger.Warn("signing request failed, retrying",
				log.WithURL(endpoint),
				log.WithAttempt(attempt),
				zap.Duration("next", next),
				log.WithError(err),
			)
		})
}
