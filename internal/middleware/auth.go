package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/volunteers/domain"
	"github.com/fastygo/volunteers/internal/auth"
	"github.com/fastygo/volunteers/pkg/httpcontext"
	appLogger "github.com/fastygo/volunteers/pkg/logger"
)

// TokenVerifier validates a raw bearer token.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*domain.Claims, error)
}

// ErrorWriter renders a failure onto the response.
type ErrorWriter func(ctx *fasthttp.RequestCtx, err error)

// Authenticator guards routes behind a bearer token carrying a permission.
type Authenticator struct {
	verifier TokenVerifier
	adapter  *httpcontext.Adapter
	logger   *zap.Logger
	onError  ErrorWriter
}

func NewAuthenticator(verifier TokenVerifier, adapter *httpcontext.Adapter, logger *zap.Logger, onError ErrorWriter) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if adapter == nil {
		adapter = httpcontext.NewAdapter(0)
	}
	if onError == nil {
		onError = func(ctx *fasthttp.RequestCtx, err error) {
			ctx.Error(err.Error(), fasthttp.StatusUnauthorized)
		}
	}
	return &Authenticator{
		verifier: verifier,
		adapter:  adapter,
		logger:   logger,
		onError:  onError,
	}
}

// Require wraps next so it only runs for requests whose token grants permission.
func (a *Authenticator) Require(permission string) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			reqCtx, cancel := a.adapter.Attach(ctx)
			defer cancel()
			log := appLogger.WithRequestID(reqCtx, a.logger)

			token, err := extractToken(ctx)
			if err == nil {
				var claims *domain.Claims
				if claims, err = a.verifier.Verify(reqCtx, token); err == nil {
					if err = auth.CheckPermissions(permission, claims); err == nil {
						httpcontext.SetClaims(ctx, claims)
						log.Debug("request authorized",
							zap.String("subject", claims.Subject),
							zap.String("permission", permission),
						)
						next(ctx)
						return
					}
				}
			}

			var authErr *domain.AuthError
			if errors.As(err, &authErr) {
				log.Warn("request rejected",
					zap.String("code", authErr.Code),
					zap.String("permission", permission),
					zap.NamedError("cause", authErr.Err),
				)
			}
			a.onError(ctx, err)
		}
	}
}

// extractToken pulls the token out of an "Authorization: Bearer <token>" header.
func extractToken(ctx *fasthttp.RequestCtx) (string, error) {
	header := strings.TrimSpace(string(ctx.Request.Header.Peek(fasthttp.HeaderAuthorization)))
	if header == "" {
		return "", domain.ErrHeaderMissing
	}

	parts := strings.Fields(header)
	switch {
	case len(parts) == 1:
		return "", domain.ErrTokenNotFound
	case len(parts) > 2:
		return "", domain.ErrNotBearer
	case !strings.EqualFold(parts[0], "bearer"):
		return "", domain.ErrBearerPrefix
	}
	return parts[1], nil
}
