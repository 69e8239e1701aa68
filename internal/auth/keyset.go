package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

// KeySet is a decoded JWKS document.
type KeySet struct {
	jwks *keyfunc.JWKS
}

// ParseKeySet decodes a JWKS document. Keys of unsupported types are
// skipped; a document without a single usable key is rejected.
func ParseKeySet(raw []byte) (*KeySet, error) {
	jwks, err := keyfunc.NewJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("auth: decoding key set: %w", err)
	}
	if jwks.Len() == 0 {
		return nil, errors.New("auth: key set has no usable keys")
	}
	return &KeySet{jwks: jwks}, nil
}

// NewKeySet builds a key set from RS256 public keys indexed by kid.
func NewKeySet(keys map[string]*rsa.PublicKey) *KeySet {
	given := make(map[string]keyfunc.GivenKey, len(keys))
	for kid, pub := range keys {
		given[kid] = keyfunc.NewGivenRSACustomWithOptions(pub, keyfunc.GivenKeyOptions{Algorithm: "RS256"})
	}
	return &KeySet{jwks: keyfunc.NewGiven(given)}
}

func (s *KeySet) Len() int {
	if s == nil || s.jwks == nil {
		return 0
	}
	return s.jwks.Len()
}

// Has reports whether the set holds a key with the given identifier.
func (s *KeySet) Has(kid string) bool {
	if s == nil || s.jwks == nil {
		return false
	}
	for _, known := range s.jwks.KIDs() {
		if known == kid {
			return true
		}
	}
	return false
}

// Keyfunc resolves the verification key named by the token's kid header.
// A key published with an alg other than the token's is refused.
func (s *KeySet) Keyfunc(token *jwt.Token) (interface{}, error) {
	if s == nil || s.jwks == nil {
		return nil, keyfunc.ErrKIDNotFound
	}
	return s.jwks.Keyfunc(token)
}
