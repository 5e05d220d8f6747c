package devicekey

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v3"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-varint"
)

// jwkJCSPub is the multicodec code of a JCS canonicalized JWK.
const jwkJCSPub = 0xeb51

const didKeyPrefix = "did:key:"

// FromDIDKey extracts the P-256 public key of a jwk_jcs-pub did:key. A
// trailing fragment is ignored.
func FromDIDKey(did string) (*ecdsa.PublicKey, error) {
	if !strings.HasPrefix(did, didKeyPrefix) {
		return nil, fmt.Errorf("not a did:key: %q", did)
	}
	msID := strings.TrimPrefix(did, didKeyPrefix)
	if i := strings.IndexByte(msID, '#'); i >= 0 {
		msID = msID[:i]
	}

	_, raw, err := multibase.Decode(msID)
	if err != nil {
		return nil, fmt.Errorf("failed to decode did:key: %w", err)
	}
	code, n, err := varint.FromUvarint(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to read multicodec: %w", err)
	}
	if code != jwkJCSPub {
		return nil, fmt.Errorf("%w: multicodec 0x%x", ErrUnsupportedKey, code)
	}

	var header struct {
		Kty string `json:"kty"`
		Crv string `json:"crv"`
	}
	if err := json.Unmarshal(raw[n:], &header); err != nil {
		return nil, fmt.Errorf("failed to unmarshal jwk: %w", err)
	}
	if header.Kty != "EC" || header.Crv != "P-256" {
		return nil, fmt.Errorf("%w: only EC P-256 JWKs are supported", ErrUnsupportedKey)
	}

	var jwk jose.JSONWebKey
	if err := jwk.UnmarshalJSON(raw[n:]); err != nil {
		return nil, fmt.Errorf("failed to parse jwk: %w", err)
	}
	pub, ok := jwk.Key.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, jwk.Key)
	}
	if err := checkP256(pub); err != nil {
		return nil, err
	}
	return pub, nil
}

func ConvertDIDKey(did string) (*Conversion, error) {
	pub, err := FromDIDKey(did)
	if err != nil {
		return nil, err
	}
	return convertKey(pub)
}
