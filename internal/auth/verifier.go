package auth

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/fastygo/volunteers/domain"
)

// Refresher is implemented by key sources that can bypass their cache.
type Refresher interface {
	Refresh(ctx context.Context) (*KeySet, error)
}

// Verifier validates bearer tokens issued by the identity provider.
type Verifier struct {
	keys       KeySource
	audience   string
	issuer     string
	algorithms []string
	logger     *zap.Logger
}

// VerifierConfig holds the expected token properties.
type VerifierConfig struct {
	Audience   string
	Issuer     string
	Algorithms []string
}

func NewVerifier(keys KeySource, cfg VerifierConfig, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	algorithms := cfg.Algorithms
	if len(algorithms) == 0 {
		algorithms = []string{"RS256"}
	}
	return &Verifier{
		keys:       keys,
		audience:   cfg.Audience,
		issuer:     cfg.Issuer,
		algorithms: algorithms,
		logger:     logger,
	}
}

// Verify checks the token signature against the key named by its kid
// header, then expiry, audience and issuer. Failures are *domain.AuthError.
func (v *Verifier) Verify(ctx context.Context, token string) (*domain.Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods(v.algorithms))

	unverified, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, domain.ErrUnparsable.Wrap(err)
	}
	kid, _ := unverified.Header["kid"].(string)
	if kid == "" {
		return nil, domain.ErrMalformed
	}

	set, err := v.lookup(ctx, kid)
	if err != nil {
		return nil, err
	}

	mapClaims := jwt.MapClaims{}
	_, err = parser.ParseWithClaims(token, mapClaims, set.Keyfunc)
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) &&
			ve.Errors&jwt.ValidationErrorExpired != 0 &&
			ve.Errors&jwt.ValidationErrorSignatureInvalid == 0 {
			return nil, domain.ErrTokenExpired.Wrap(err)
		}
		return nil, domain.ErrUnparsable.Wrap(err)
	}

	if !mapClaims.VerifyAudience(v.audience, true) || !mapClaims.VerifyIssuer(v.issuer, true) {
		return nil, domain.ErrInvalidClaims
	}

	return claimsFrom(mapClaims), nil
}

// lookup returns a key set holding kid. An unknown kid forces one refresh
// in case the provider rotated its keys; the source rate limits those.
func (v *Verifier) lookup(ctx context.Context, kid string) (*KeySet, error) {
	set, err := v.keys.KeySet(ctx)
	if err != nil {
		v.logger.Error("signing keys unavailable", zap.Error(err))
		return nil, domain.ErrKeysUnavail.Wrap(err)
	}
	if set.Has(kid) {
		return set, nil
	}

	if r, canRefresh := v.keys.(Refresher); canRefresh {
		refreshed, err := r.Refresh(ctx)
		if err != nil {
			v.logger.Warn("key set refresh for unknown kid failed", zap.String("kid", kid), zap.Error(err))
		} else if refreshed.Has(kid) {
			return refreshed, nil
		}
	}
	return nil, domain.ErrKeyNotFound
}

func claimsFrom(m jwt.MapClaims) *domain.Claims {
	claims := &domain.Claims{Raw: m}
	claims.Subject, _ = m["sub"].(string)

	raw, present := m["permissions"]
	if !present || raw == nil {
		return claims
	}
	claims.Permissions = []string{}
	if list, ok := raw.([]interface{}); ok {
		for _, item := range list {
			if p, ok := item.(string); ok {
				claims.Permissions = append(claims.Permissions, p)
			}
		}
	}
	return claims
}

// CheckPermissions confirms the claims grant permission.
func CheckPermissions(permission string, claims *domain.Claims) error {
	if !claims.HasPermissionsClaim() {
		return domain.ErrNoPermissions
	}
	if !claims.Has(permission) {
		return domain.ErrForbidden
	}
	return nil
}
