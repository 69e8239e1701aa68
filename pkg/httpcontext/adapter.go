package httpcontext

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/volunteers/domain"
	appLogger "github.com/fastygo/volunteers/pkg/logger"
)

// Key represents a context value key exported for reuse.
type Key string

const (
	KeyRemoteAddr Key = "remote_addr"
	KeyUserAgent  Key = "user_agent"
	KeyClaims     Key = "claims"
)

// userValueClaims is the fasthttp user value holding verified claims
// between the auth middleware and the handler.
const userValueClaims = "volunteers.claims"

// Adapter converts fasthttp.RequestCtx into a stdlib context with deadlines and metadata.
type Adapter struct {
	timeout time.Duration
}

// NewAdapter constructs a new Adapter using the provided timeout.
func NewAdapter(timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Adapter{
		timeout: timeout,
	}
}

// Attach creates a context with timeout derived from the adapter and enriches it with request metadata.
func (a *Adapter) Attach(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	base := context.Background()

	stdCtx, cancel := context.WithTimeout(base, a.timeout)

	reqID := RequestID(ctx)
	stdCtx = appLogger.ContextWithRequestID(stdCtx, reqID)

	if remoteAddr := ctx.RemoteAddr(); remoteAddr != nil {
		stdCtx = context.WithValue(stdCtx, KeyRemoteAddr, remoteAddr.String())
	}
	if ua := string(ctx.Request.Header.UserAgent()); ua != "" {
		stdCtx = context.WithValue(stdCtx, KeyUserAgent, ua)
	}
	if claims := Claims(ctx); claims != nil {
		stdCtx = context.WithValue(stdCtx, KeyClaims, claims)
		stdCtx = appLogger.ContextWithSubject(stdCtx, claims.Subject)
	}

	return stdCtx, cancel
}

// RequestID returns the request ID for ctx, assigning one and echoing it in
// the X-Request-ID response header on first use.
func RequestID(ctx *fasthttp.RequestCtx) string {
	if ctx == nil {
		return uuid.NewString()
	}
	if id := string(ctx.Response.Header.Peek("X-Request-ID")); id != "" {
		return id
	}
	id := string(ctx.Request.Header.Peek("X-Request-ID"))
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}
	ctx.Response.Header.Set("X-Request-ID", id)
	return id
}

// SetClaims records verified claims on the request.
func SetClaims(ctx *fasthttp.RequestCtx, claims *domain.Claims) {
	ctx.SetUserValue(userValueClaims, claims)
}

// Claims returns the verified claims recorded on the request, or nil.
func Claims(ctx *fasthttp.RequestCtx) *domain.Claims {
	if ctx == nil {
		return nil
	}
	claims, _ := ctx.UserValue(userValueClaims).(*domain.Claims)
	return claims
}

// ClaimsFromContext returns the claims attached by Attach, or nil.
func ClaimsFromContext(ctx context.Context) *domain.Claims {
	if ctx == nil {
		return nil
	}
	claims, _ := ctx.Value(KeyClaims).(*domain.Claims)
	return claims
}
