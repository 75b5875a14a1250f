package oauth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
)

// ErrNoSigningKey is returned when a key set holds no usable signature key.
var ErrNoSigningKey = errors.New("no signing key in key set")

// JSONWebKey is the subset of RFC 7517 fields needed to reconstruct a public
// verification key.
type JSONWebKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid,omitempty"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`

	// RSA
	N string `json:"n,omitempty"`
	E string `json:"e,omitempty"`

	// EC
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
}

// JSONWebKeySet is an RFC 7517 key set document.
type JSONWebKeySet struct {
	Keys []JSONWebKey `json:"keys"`
}

// SigningKey returns the first key intended for signatures. Keys without a
// "use" member are accepted; encryption keys are skipped.
func (s *JSONWebKeySet) SigningKey() (*JSONWebKey, error) {
	for i := range s.Keys {
		k := &s.Keys[i]
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		if k.Kty != "RSA" && k.Kty != "EC" {
			continue
		}
		return k, nil
	}
	return nil, ErrNoSigningKey
}

// PublicKeyPEM renders the key as a PKIX "PUBLIC KEY" PEM block.
func (k *JSONWebKey) PublicKeyPEM() (string, error) {
	pub, err := k.publicKey()
	if err != nil {
		return "", err
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshal public key %s: %w", k.Kid, err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

func (k *JSONWebKey) publicKey() (any, error) {
	switch k.Kty {
	case "RSA":
		n, err := decodeBigInt(k.N)
		if err != nil {
			return nil, fmt.Errorf("jwk %s: modulus: %w", k.Kid, err)
		}
		e, err := decodeBigInt(k.E)
		if err != nil {
			return nil, fmt.Errorf("jwk %s: exponent: %w", k.Kid, err)
		}
		if !e.IsInt64() {
			return nil, fmt.Errorf("jwk %s: exponent too large", k.Kid)
		}
		return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
	case "EC":
		var curve elliptic.Curve
		switch k.Crv {
		case "P-256":
			curve = elliptic.P256()
		case "P-384":
			curve = elliptic.P384()
		case "P-521":
			curve = elliptic.P521()
		default:
			return nil, fmt.Errorf("jwk %s: unsupported curve %q", k.Kid, k.Crv)
		}
		x, err := decodeBigInt(k.X)
		if err != nil {
			return nil, fmt.Errorf("jwk %s: x: %w", k.Kid, err)
		}
		y, err := decodeBigInt(k.Y)
		if err != nil {
			return nil, fmt.Errorf("jwk %s: y: %w", k.Kid, err)
		}
		return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
	default:
		return nil, fmt.Errorf("jwk %s: unsupported key type %q", k.Kid, k.Kty)
	}
}

func decodeBigInt(s string) (*big.Int, error) {
	if s == "" {
		return nil, errors.New("missing value")
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}
