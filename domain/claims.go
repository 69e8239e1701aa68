package domain

import (
	"fmt"
	"net/http"
)

// Claims is the decoded payload of a verified bearer token.
type Claims struct {
	Subject string `json:"sub"`
	// Permissions is nil when the token carries no permissions claim at
	// all, and empty when the claim is present but lists nothing.
	Permissions []string               `json:"permissions"`
	Raw         map[string]interface{} `json:"-"`
}

// HasPermissionsClaim reports whether the token carried a permissions list.
func (c *Claims) HasPermissionsClaim() bool {
	return c != nil && c.Permissions != nil
}

func (c *Claims) Has(permission string) bool {
	if c == nil {
		return false
	}
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// AuthError communicates an authentication or authorization failure in
// the identity provider's vocabulary.
type AuthError struct {
	Code        string
	Description string
	Status      int
	Err         error
}

func (e *AuthError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s - %s", e.Code, e.Description)
}

func (e *AuthError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Wrap returns a copy of e carrying the underlying cause.
func (e *AuthError) Wrap(err error) *AuthError {
	cp := *e
	cp.Err = err
	return &cp
}

func NewAuthError(code, description string, status int) *AuthError {
	return &AuthError{Code: code, Description: description, Status: status}
}

// Auth failure codes.
const (
	AuthCodeHeaderMissing = "authorization_header_missing"
	AuthCodeInvalidHeader = "invalid_header"
	AuthCodeTokenExpired  = "token_expired"
	AuthCodeInvalidClaims = "invalid_claims"
	AuthCodeUnauthorized  = "Unauthorized"
	AuthCodeForbidden     = "Forbidden"
)

var (
	ErrHeaderMissing = NewAuthError(AuthCodeHeaderMissing, "Authorization header is expected.", http.StatusUnauthorized)
	ErrTokenNotFound = NewAuthError(AuthCodeInvalidHeader, "Token not found.", http.StatusUnauthorized)
	ErrNotBearer     = NewAuthError(AuthCodeInvalidHeader, "Authorization header must be bearer token.", http.StatusUnauthorized)
	ErrBearerPrefix  = NewAuthError(AuthCodeInvalidHeader, `Authorization header must start with "Bearer".`, http.StatusUnauthorized)
	ErrMalformed     = NewAuthError(AuthCodeInvalidHeader, "Authorization malformed.", http.StatusUnauthorized)
	ErrKeyNotFound   = NewAuthError(AuthCodeInvalidHeader, "Unable to find the appropriate key.", http.StatusBadRequest)
	ErrUnparsable    = NewAuthError(AuthCodeInvalidHeader, "Unable to parse authentication token.", http.StatusBadRequest)
	ErrKeysUnavail   = NewAuthError(AuthCodeInvalidHeader, "Unable to fetch signing keys.", http.StatusUnauthorized)
	ErrTokenExpired  = NewAuthError(AuthCodeTokenExpired, "Token expired.", http.StatusUnauthorized)
	ErrInvalidClaims = NewAuthError(AuthCodeInvalidClaims, "Incorrect claims. Please check the audience and issuer.", http.StatusUnauthorized)
	ErrNoPermissions = NewAuthError(AuthCodeUnauthorized, "No permissions found", http.StatusUnauthorized)
	ErrForbidden     = NewAuthError(AuthCodeForbidden, "You do not have permission to access this resource", http.StatusForbidden)
)
