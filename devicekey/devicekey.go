// Package devicekey converts the wallet's device public key into the forms the
// signing services bind credentials to.
package devicekey

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v3"

	"github.com/kokukuma/mdoc-issuer/mdoc"
	"github.com/kokukuma/mdoc-issuer/pkg/pki"
)

var ErrUnsupportedKey = errors.New("unsupported device key")

// Conversion holds both encodings of one device key.
type Conversion struct {
	// COSEKey is the CBOR encoded COSE_Key, base64url without padding.
	COSEKey string `json:"cose_key"`
	// JWK is the compact JSON Web Key, standard base64.
	JWK string `json:"jwk"`
}

// ParsePEM decodes a base64 (URL or standard alphabet, padding optional)
// PEM public key. Only P-256 keys are accepted.
func ParsePEM(encoded string) (*ecdsa.PublicKey, error) {
	raw, err := decodeBase64(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode device key: %w", err)
	}
	pub, err := pki.ParsePublicKeyPEM(raw)
	if err != nil {
		return nil, err
	}
	if err := checkP256(pub); err != nil {
		return nil, err
	}
	return pub, nil
}

// COSEKey encodes pub as an EC2 COSE_Key for ES256.
func COSEKey(pub *ecdsa.PublicKey) ([]byte, error) {
	key, err := mdoc.NewCOSEKey(pub)
	if err != nil {
		return nil, err
	}
	return key.Bytes()
}

// JWK returns the standard base64 encoding of the compact JSON Web Key.
func JWK(pub *ecdsa.PublicKey) (string, error) {
	b, err := jose.JSONWebKey{Key: pub}.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("failed to marshal jwk: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func Convert(encoded string) (*Conversion, error) {
	pub, err := ParsePEM(encoded)
	if err != nil {
		return nil, err
	}
	return convertKey(pub)
}

// ConvertFile reads a PEM public key from disk and converts it.
func ConvertFile(path string) (*Conversion, error) {
	pub, err := pki.LoadPublicKey(path)
	if err != nil {
		return nil, err
	}
	if err := checkP256(pub); err != nil {
		return nil, err
	}
	return convertKey(pub)
}

func convertKey(pub *ecdsa.PublicKey) (*Conversion, error) {
	coseKey, err := COSEKey(pub)
	if err != nil {
		return nil, err
	}
	jwk, err := JWK(pub)
	if err != nil {
		return nil, err
	}
	return &Conversion{
		COSEKey: base64.RawURLEncoding.EncodeToString(coseKey),
		JWK:     jwk,
	}, nil
}

func checkP256(pub *ecdsa.PublicKey) error {
	if pub.Curve != elliptic.P256() {
		return fmt.Errorf("%w: curve %s", ErrUnsupportedKey, pub.Curve.Params().Name)
	}
	if _, err := pub.ECDH(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedKey, err)
	}
	return nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimRight(strings.TrimSpace(s), "=")
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
