package mdoc

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"
)

// RFC 8152 Table 21
const (
	P256          = 1
	P384          = 2
	P521          = 3
	BrainpoolP256 = 8
	BrainpoolP384 = 9
	BrainpoolP512 = 10
)

// RFC 8152 Table 21
const (
	KeyTypeOKP = 1
	KeyTypeEC2 = 2
)

type COSEKey struct {
	Kty       int             `cbor:"1,keyasint,omitempty"`
	Kid       []byte          `cbor:"2,keyasint,omitempty"`
	Alg       int             `cbor:"3,keyasint,omitempty"`
	KeyOpts   int             `cbor:"4,keyasint,omitempty"`
	IV        []byte          `cbor:"5,keyasint,omitempty"`
	CrvOrNOrK cbor.RawMessage `cbor:"-1,keyasint,omitempty"` // K for symmetric keys, Crv for elliptic curve keys, N for RSA modulus
	XOrE      cbor.RawMessage `cbor:"-2,keyasint,omitempty"` // X for curve x-coordinate, E for RSA public exponent
	Y         cbor.RawMessage `cbor:"-3,keyasint,omitempty"` // Y for curve y-cooridate
	D         []byte          `cbor:"-4,keyasint,omitempty"`
}

// NewCOSEKey builds an EC2 COSE_Key for an ES256 device key. Coordinates are
// left-padded to the curve size.
func NewCOSEKey(pub *ecdsa.PublicKey) (*COSEKey, error) {
	if pub == nil {
		return nil, fmt.Errorf("public key is nil")
	}

	crv, err := curveID(pub.Curve)
	if err != nil {
		return nil, err
	}
	size := (pub.Curve.Params().BitSize + 7) / 8

	crvBytes, err := cbor.Marshal(crv)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal curve: %w", err)
	}
	xBytes, err := cbor.Marshal(pub.X.FillBytes(make([]byte, size)))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal X coordinate: %w", err)
	}
	yBytes, err := cbor.Marshal(pub.Y.FillBytes(make([]byte, size)))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Y coordinate: %w", err)
	}

	return &COSEKey{
		Kty:       KeyTypeEC2,
		Alg:       int(cose.AlgorithmES256),
		CrvOrNOrK: crvBytes,
		XOrE:      xBytes,
		Y:         yBytes,
	}, nil
}

func (k *COSEKey) Algorithm() cose.Algorithm {
	return cose.Algorithm(k.Alg)
}

func (k *COSEKey) Bytes() ([]byte, error) {
	b, err := cbor.Marshal(k)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cose key: %w", err)
	}
	return b, nil
}

func (k *COSEKey) PublicKey() (*ecdsa.PublicKey, error) {
	return parseECDSA(k)
}

func ParseCOSEKey(data []byte) (*COSEKey, error) {
	var key COSEKey
	if err := cbor.Unmarshal(data, &key); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cose key: %w", err)
	}
	return &key, nil
}

func curveID(curve elliptic.Curve) (int, error) {
	switch curve {
	case elliptic.P256():
		return P256, nil
	case elliptic.P384():
		return P384, nil
	case elliptic.P521():
		return P521, nil
	default:
		return 0, fmt.Errorf("unsupported curve: %s", curve.Params().Name)
	}
}

func parseECDSA(coseKey *COSEKey) (*ecdsa.PublicKey, error) {
	if coseKey == nil {
		return nil, fmt.Errorf("cose key is nil")
	}
	if coseKey.Kty != KeyTypeEC2 {
		return nil, fmt.Errorf("unsupported key type: %d", coseKey.Kty)
	}

	var crv int
	if err := cbor.Unmarshal(coseKey.CrvOrNOrK, &crv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal curve: %w", err)
	}

	var xBytes []byte
	if err := cbor.Unmarshal(coseKey.XOrE, &xBytes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal X coordinate: %w", err)
	}

	var yBytes []byte
	if err := cbor.Unmarshal(coseKey.Y, &yBytes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Y coordinate: %w", err)
	}

	if len(xBytes) == 0 || len(yBytes) == 0 {
		return nil, fmt.Errorf("invalid coordinates")
	}

	var curve elliptic.Curve
	switch crv {
	case P256:
		curve = elliptic.P256()
	case P384:
		curve = elliptic.P384()
	case P521:
		curve = elliptic.P521()
	default:
		return nil, fmt.Errorf("unsupported curve: %d", crv)
	}

	pubKey := &ecdsa.PublicKey{
		Curve: curve,
		X:     new(big.Int).SetBytes(xBytes),
		Y:     new(big.Int).SetBytes(yBytes),
	}
	if !curve.IsOnCurve(pubKey.X, pubKey.Y) {
		return nil, fmt.Errorf("point is not on curve")
	}

	return pubKey, nil
}
