package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/fastygo/volunteers/domain"
)

const (
	testKid      = "test-key"
	testAudience = "volunteers"
	testIssuer   = "https://example.auth0.com/"
)

var (
	keyOnce sync.Once
	testKey *rsa.PrivateKey
)

func signingKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	keyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testKey = key
	})
	return testKey
}

func keySetJSON(t *testing.T, kid string) []byte {
	t.Helper()
	pub := &signingKey(t).PublicKey
	doc := map[string]interface{}{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": kid,
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal key set: %v", err)
	}
	return raw
}

func signToken(t *testing.T, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	signed, err := token.SignedString(signingKey(t))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func validClaims(permissions ...interface{}) jwt.MapClaims {
	if permissions == nil {
		permissions = []interface{}{}
	}
	return jwt.MapClaims{
		"sub":         "auth0|director",
		"aud":         []interface{}{testAudience, "https://example.auth0.com/userinfo"},
		"iss":         testIssuer,
		"iat":         time.Now().Add(-time.Minute).Unix(),
		"exp":         time.Now().Add(time.Hour).Unix(),
		"permissions": permissions,
	}
}

type countingFetcher struct {
	raw   []byte
	err   error
	calls int32
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClock() *clock {
	return &clock{now: time.Date(2020, 4, 27, 12, 0, 0, 0, time.UTC)}
}

func (f *countingFetcher) Fetch(context.Context) ([]byte, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.raw, f.err
}

func newTestVerifier(t *testing.T, source KeySource) *Verifier {
	t.Helper()
	return NewVerifier(source, VerifierConfig{
		Audience:   testAudience,
		Issuer:     testIssuer,
		Algorithms: []string{"RS256"},
	}, nil)
}

func staticSource(t *testing.T) KeySource {
	set, err := ParseKeySet(keySetJSON(t, testKid))
	if err != nil {
		t.Fatalf("parse key set: %v", err)
	}
	return StaticSource{Set: set}
}

func assertAuthCode(t *testing.T, err error, code, description string) {
	t.Helper()
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.Code != code {
		t.Errorf("expected code %s, got %s", code, authErr.Code)
	}
	if description != "" && authErr.Description != description {
		t.Errorf("expected description %q, got %q", description, authErr.Description)
	}
}

func TestVerifyValidToken(t *testing.T) {
	v := newTestVerifier(t, staticSource(t))
	token := signToken(t, testKid, validClaims("patch:task", "delete:task"))

	claims, err := v.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "auth0|director" {
		t.Errorf("unexpected subject %s", claims.Subject)
	}
	if !claims.Has("patch:task") || !claims.Has("delete:task") {
		t.Errorf("missing permissions: %v", claims.Permissions)
	}
}

func TestVerifyFailures(t *testing.T) {
	v := newTestVerifier(t, staticSource(t))

	expired := validClaims("patch:task")
	expired["exp"] = time.Now().Add(-time.Hour).Unix()

	wrongAudience := validClaims("patch:task")
	wrongAudience["aud"] = "someone-else"

	wrongIssuer := validClaims("patch:task")
	wrongIssuer["iss"] = "https://evil.example.com/"

	cases := []struct {
		name  string
		token string
		code  string
		desc  string
	}{
		{"no kid", signToken(t, "", validClaims()), domain.AuthCodeInvalidHeader, "Authorization malformed."},
		{"unknown kid", signToken(t, "rotated", validClaims()), domain.AuthCodeInvalidHeader, "Unable to find the appropriate key."},
		{"expired", signToken(t, testKid, expired), domain.AuthCodeTokenExpired, "Token expired."},
		{"audience", signToken(t, testKid, wrongAudience), domain.AuthCodeInvalidClaims, ""},
		{"issuer", signToken(t, testKid, wrongIssuer), domain.AuthCodeInvalidClaims, ""},
		{"garbage", "not-a-token", domain.AuthCodeInvalidHeader, "Unable to parse authentication token."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tc.token)
			assertAuthCode(t, err, tc.code, tc.desc)
		})
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	v := newTestVerifier(t, staticSource(t))
	token := signToken(t, testKid, validClaims("patch:task"))
	tampered := token[:len(token)-4] + "AAAA"

	_, err := v.Verify(context.Background(), tampered)
	assertAuthCode(t, err, domain.AuthCodeInvalidHeader, "Unable to parse authentication token.")
}

func TestVerifyRejectsUnexpectedAlgorithm(t *testing.T) {
	v := newTestVerifier(t, staticSource(t))
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims("patch:task"))
	token.Header["kid"] = testKid
	signed, err := token.SignedString([]byte("shared-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	_, err = v.Verify(context.Background(), signed)
	assertAuthCode(t, err, domain.AuthCodeInvalidHeader, "")
}

func TestPermissionsClaimShapes(t *testing.T) {
	v := newTestVerifier(t, staticSource(t))

	noPermissions := validClaims()
	delete(noPermissions, "permissions")
	claims, err := v.Verify(context.Background(), signToken(t, testKid, noPermissions))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.HasPermissionsClaim() {
		t.Error("token without permissions should have no claim")
	}
	assertAuthCode(t, CheckPermissions("patch:task", claims), domain.AuthCodeUnauthorized, "No permissions found")

	claims, err = v.Verify(context.Background(), signToken(t, testKid, validClaims()))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !claims.HasPermissionsClaim() {
		t.Error("empty permissions list is still a claim")
	}
	assertAuthCode(t, CheckPermissions("patch:task", claims), domain.AuthCodeForbidden, "")
}

func TestCheckPermissions(t *testing.T) {
	claims := &domain.Claims{Permissions: []string{"get:volunteer", "patch:volunteer"}}
	if err := CheckPermissions("patch:volunteer", claims); err != nil {
		t.Errorf("expected permission granted, got %v", err)
	}

	err := CheckPermissions("delete:volunteer", claims)
	assertAuthCode(t, err, domain.AuthCodeForbidden, "You do not have permission to access this resource")

	var authErr *domain.AuthError
	errors.As(err, &authErr)
	if authErr.Status != fasthttp.StatusForbidden {
		t.Errorf("expected 403 status on forbidden, got %d", authErr.Status)
	}

	err = CheckPermissions("get:volunteer", &domain.Claims{})
	assertAuthCode(t, err, domain.AuthCodeUnauthorized, "")
}

func TestCachedSourceHonoursTTL(t *testing.T) {
	fetcher := &countingFetcher{raw: keySetJSON(t, testKid)}
	cache := NewCachedSource(fetcher, nil, time.Minute, nil)
	now := time.Date(2020, 4, 27, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if _, err := cache.KeySet(context.Background()); err != nil {
			t.Fatalf("KeySet: %v", err)
		}
	}
	if got := atomic.LoadInt32(&fetcher.calls); got != 1 {
		t.Fatalf("expected one fetch within ttl, got %d", got)
	}

	now = now.Add(2 * time.Minute)
	if _, err := cache.KeySet(context.Background()); err != nil {
		t.Fatalf("KeySet: %v", err)
	}
	if got := atomic.LoadInt32(&fetcher.calls); got != 2 {
		t.Fatalf("expected refetch after ttl, got %d", got)
	}
}

func TestCachedSourceServesStaleOnFailure(t *testing.T) {
	fetcher := &countingFetcher{raw: keySetJSON(t, testKid)}
	clk := newClock()
	cache := NewCachedSource(fetcher, nil, time.Minute, nil)
	cache.now = clk.Now
	if _, err := cache.KeySet(context.Background()); err != nil {
		t.Fatalf("KeySet: %v", err)
	}

	clk.Advance(2 * time.Minute)
	fetcher.err = errors.New("provider down")
	set, err := cache.KeySet(context.Background())
	if err != nil {
		t.Fatalf("expected stale key set, got %v", err)
	}
	if !set.Has(testKid) {
		t.Error("stale key set should still hold the key")
	}
	if got := atomic.LoadInt32(&fetcher.calls); got != 2 {
		t.Errorf("expected a refetch attempt after ttl, got %d fetches", got)
	}

	empty := NewCachedSource(&countingFetcher{err: errors.New("provider down")}, nil, time.Minute, nil)
	if _, err := empty.KeySet(context.Background()); err == nil {
		t.Error("expected an error with nothing cached")
	}
}

func TestCachedSourceLimitsRefreshRate(t *testing.T) {
	fetcher := &countingFetcher{err: errors.New("provider down")}
	clk := newClock()
	cache := NewCachedSource(fetcher, nil, time.Minute, nil).WithMinRefreshInterval(30 * time.Second)
	cache.now = clk.Now

	for i := 0; i < 5; i++ {
		if _, err := cache.Refresh(context.Background()); err == nil {
			t.Fatal("expected the provider error")
		}
	}
	if got := atomic.LoadInt32(&fetcher.calls); got != 1 {
		t.Fatalf("expected one fetch inside the interval, got %d", got)
	}

	clk.Advance(31 * time.Second)
	fetcher.err = nil
	fetcher.raw = keySetJSON(t, testKid)
	if _, err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh after interval: %v", err)
	}
	if got := atomic.LoadInt32(&fetcher.calls); got != 2 {
		t.Errorf("expected a second fetch after the interval, got %d", got)
	}
}

type memoryStore struct {
	raw       []byte
	fetchedAt time.Time
	saves     int
}

func (m *memoryStore) Load(context.Context) ([]byte, time.Time, error) {
	if m.raw == nil {
		return nil, time.Time{}, ErrCacheMiss
	}
	return m.raw, m.fetchedAt, nil
}

func (m *memoryStore) Save(_ context.Context, raw []byte, fetchedAt time.Time) error {
	m.raw, m.fetchedAt = raw, fetchedAt
	m.saves++
	return nil
}

func TestCachedSourceUsesStore(t *testing.T) {
	store := &memoryStore{raw: keySetJSON(t, testKid), fetchedAt: time.Now()}
	fetcher := &countingFetcher{err: errors.New("must not be called")}
	cache := NewCachedSource(fetcher, store, time.Minute, nil)

	if _, err := cache.KeySet(context.Background()); err != nil {
		t.Fatalf("KeySet: %v", err)
	}
	if fetcher.calls != 0 {
		t.Errorf("expected the store to satisfy the lookup, fetched %d times", fetcher.calls)
	}

	fetcher.err = nil
	fetcher.raw = keySetJSON(t, "next")
	if _, err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if store.saves != 1 {
		t.Errorf("expected refreshed key set to be saved, got %d saves", store.saves)
	}
}

func TestCachedSourceFallsBackToStaleStore(t *testing.T) {
	clk := newClock()
	store := &memoryStore{raw: keySetJSON(t, testKid), fetchedAt: clk.Now().Add(-24 * time.Hour)}
	fetcher := &countingFetcher{err: errors.New("provider down")}
	cache := NewCachedSource(fetcher, store, time.Minute, nil)
	cache.now = clk.Now

	set, err := cache.KeySet(context.Background())
	if err != nil {
		t.Fatalf("expected the stored key set while the provider is down, got %v", err)
	}
	if !set.Has(testKid) {
		t.Error("stored key set should hold the key")
	}
	if got := atomic.LoadInt32(&fetcher.calls); got != 1 {
		t.Errorf("expected the stale entry to trigger one fetch, got %d", got)
	}
}

func TestVerifierRefreshesOnUnknownKid(t *testing.T) {
	fetcher := &countingFetcher{raw: keySetJSON(t, "old-key")}
	clk := newClock()
	cache := NewCachedSource(fetcher, nil, time.Hour, nil).WithMinRefreshInterval(30 * time.Second)
	cache.now = clk.Now
	v := newTestVerifier(t, cache)

	if _, err := cache.KeySet(context.Background()); err != nil {
		t.Fatalf("prime cache: %v", err)
	}

	clk.Advance(time.Minute)
	fetcher.raw = keySetJSON(t, testKid)
	if _, err := v.Verify(context.Background(), signToken(t, testKid, validClaims("patch:task"))); err != nil {
		t.Fatalf("expected rotation to be picked up, got %v", err)
	}
	if got := atomic.LoadInt32(&fetcher.calls); got != 2 {
		t.Errorf("expected exactly one refresh, got %d fetches", got)
	}
}

func TestVerifierUnknownKidDoesNotHammerProvider(t *testing.T) {
	fetcher := &countingFetcher{raw: keySetJSON(t, testKid)}
	clk := newClock()
	cache := NewCachedSource(fetcher, nil, time.Hour, nil).WithMinRefreshInterval(30 * time.Second)
	cache.now = clk.Now
	v := newTestVerifier(t, cache)

	if _, err := cache.KeySet(context.Background()); err != nil {
		t.Fatalf("prime cache: %v", err)
	}
	for i := 0; i < 10; i++ {
		_, err := v.Verify(context.Background(), signToken(t, "made-up", validClaims("patch:task")))
		assertAuthCode(t, err, domain.AuthCodeInvalidHeader, "Unable to find the appropriate key.")
	}
	if got := atomic.LoadInt32(&fetcher.calls); got != 1 {
		t.Errorf("forged kids must not trigger fetches inside the interval, got %d fetches", got)
	}

	if _, err := v.Verify(context.Background(), signToken(t, testKid, validClaims("patch:task"))); err != nil {
		t.Errorf("known kid should still verify: %v", err)
	}
}

func TestRemoteSourceFetch(t *testing.T) {
	ln := fasthttputil.NewInmemoryListener()
	body := keySetJSON(t, testKid)
	server := &fasthttp.Server{Handler: func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/.well-known/jwks.json":
			ctx.SetContentType("application/json")
			ctx.SetBody(body)
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
		}
	}}
	go func() { _ = server.Serve(ln) }()
	defer ln.Close()

	client := &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}

	source := NewRemoteSource("http://idp.test/.well-known/jwks.json", time.Second, client)
	set, err := source.KeySet(context.Background())
	if err != nil {
		t.Fatalf("KeySet: %v", err)
	}
	if !set.Has(testKid) {
		t.Errorf("expected key %s, set holds %d keys", testKid, set.Len())
	}

	missing := NewRemoteSource("http://idp.test/missing", time.Second, client)
	if _, err := missing.Fetch(context.Background()); err == nil {
		t.Error("expected an error for a non-200 response")
	}
}

func TestParseKeySet(t *testing.T) {
	set, err := ParseKeySet(keySetJSON(t, testKid))
	if err != nil {
		t.Fatalf("ParseKeySet: %v", err)
	}
	if set.Len() != 1 || !set.Has(testKid) || set.Has("other") {
		t.Errorf("unexpected key set contents, %d keys", set.Len())
	}

	for name, doc := range map[string]string{
		"no keys member": `{"nope":[]}`,
		"incomplete key": `{"keys":[{"kty":"RSA","kid":"broken"}]}`,
		"not json":       `keys`,
	} {
		if _, err := ParseKeySet([]byte(doc)); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestNewKeySetVerifies(t *testing.T) {
	set := NewKeySet(map[string]*rsa.PublicKey{testKid: &signingKey(t).PublicKey})
	v := newTestVerifier(t, StaticSource{Set: set})
	if _, err := v.Verify(context.Background(), signToken(t, testKid, validClaims("patch:task"))); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}
