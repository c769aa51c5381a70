package http

import (
	"bytes"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/securehire-auth/internal/api/http/handlers"
	"github.com/spec-kit/securehire-auth/internal/auth"
	"github.com/spec-kit/securehire-auth/internal/config"
	"github.com/spec-kit/securehire-auth/internal/events"
	"github.com/spec-kit/securehire-auth/internal/observability"
	"github.com/spec-kit/securehire-auth/internal/persistence"
	"github.com/spec-kit/securehire-auth/internal/repository"
	"github.com/spec-kit/securehire-auth/internal/service"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testServer struct {
	app   *fiber.App
	clock *testClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.Config{
		App: config.AppConfig{Name: "securehire-auth", Version: "test"},
		Auth: config.AuthConfig{
			Secrets: config.Secrets{
				AccessSecret:  strings.Repeat("a", 32),
				RefreshSecret: strings.Repeat("r", 32),
			},
			RefreshTokenTTLSeconds: 86400,
			BcryptCost:             bcrypt.MinCost,
		},
		Cookie:    config.CookieConfig{Secure: true, SameSite: "Strict"},
		RateLimit: config.RateLimitConfig{MaxFailedLogins: 3, WindowSeconds: 900},
	}
	clock := &testClock{now: time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)}
	logger := zap.NewNop()

	tokens, err := auth.NewTokenCodec(cfg.Auth, auth.WithClock(clock.Now))
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	redis := persistence.NewRedis(config.RedisConfig{Addr: mr.Addr()}, logger)
	t.Cleanup(redis.Close)

	metrics := observability.NewMetrics("test")
	dispatcher := events.NewInMemoryDispatcher()
	service.NewAuditService(dispatcher, logger, metrics).RegisterHandlers()

	principals := repository.NewPrincipals(repository.NewMemoryCandidateRepository(), repository.NewMemoryRecruiterRepository())
	authService := service.NewAuthService(cfg, service.AuthDependencies{
		Principals:    principals,
		Tokens:        tokens,
		LoginAttempts: repository.NewLoginAttemptRepository(redis.Client, "test"),
		Dispatcher:    dispatcher,
		Logger:        logger,
	})
	cookies := auth.NewCookieJar(cfg.Cookie, tokens)
	session := auth.NewSessionFilter(auth.SessionFilterDeps{
		Tokens:     tokens,
		Resolver:   auth.NewPrincipalResolver(principals),
		Principals: principals,
		Cookies:    cookies,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, &persistence.Postgres{}, redis),
		Auth:    handlers.NewAuthHandler(authService, cookies),
		Session: session,
		Metrics: metrics,
	})
	return &testServer{app: app, clock: clock}
}

type response struct {
	status  int
	body    map[string]any
	raw     string
	cookies map[string]*stdhttp.Cookie
}

func (s *testServer) call(t *testing.T, method, path string, payload any, cookies ...*stdhttp.Cookie) response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	for _, ck := range cookies {
		req.AddCookie(&stdhttp.Cookie{Name: ck.Name, Value: ck.Value})
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := response{status: resp.StatusCode, raw: string(raw), cookies: map[string]*stdhttp.Cookie{}}
	_ = json.Unmarshal(raw, &out.body)
	for _, ck := range resp.Cookies() {
		out.cookies[ck.Name] = ck
	}
	return out
}

func (r response) errorCode() string {
	e, _ := r.body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func (r response) data() map[string]any {
	d, _ := r.body["data"].(map[string]any)
	return d
}

func (s *testServer) registerCandidate(t *testing.T, email string) {
	t.Helper()
	res := s.call(t, fiber.MethodPost, "/register", map[string]any{
		"role": "CANDIDATE", "email": email, "password": "s3cret-pass", "name": "Alice",
	})
	require.Equal(t, fiber.StatusCreated, res.status, res.raw)
}

func (s *testServer) login(t *testing.T, email string) response {
	t.Helper()
	res := s.call(t, fiber.MethodPost, "/auth/login", map[string]any{"email": email, "password": "s3cret-pass"})
	require.Equal(t, fiber.StatusOK, res.status, res.raw)
	return res
}

func TestLogin_SetsSessionCookies(t *testing.T) {
	s := newTestServer(t)
	s.registerCandidate(t, "a@test.com")

	res := s.login(t, "a@test.com")
	assert.JSONEq(t, `{"data":{"message":"Login successful"}}`, res.raw)

	access := res.cookies[auth.AccessCookieName]
	refresh := res.cookies[auth.RefreshCookieName]
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	assert.Equal(t, 900, access.MaxAge)
	assert.Equal(t, 86400, refresh.MaxAge)
	assert.True(t, access.HttpOnly)
	assert.True(t, refresh.Secure)
	assert.Equal(t, stdhttp.SameSiteStrictMode, refresh.SameSite)
}

func TestLogin_Failures(t *testing.T) {
	s := newTestServer(t)
	s.registerCandidate(t, "a@test.com")

	res := s.call(t, fiber.MethodPost, "/auth/login", map[string]any{"email": "a@test.com", "password": "nope"})
	assert.Equal(t, fiber.StatusUnauthorized, res.status)
	assert.Equal(t, "INVALID_CREDENTIALS", res.errorCode())
	assert.Empty(t, res.cookies)

	res = s.call(t, fiber.MethodPost, "/auth/login", map[string]any{"email": "ghost@test.com", "password": "nope"})
	assert.Equal(t, fiber.StatusUnauthorized, res.status)
	assert.Equal(t, "INVALID_CREDENTIALS", res.errorCode())

	res = s.call(t, fiber.MethodPost, "/auth/login", map[string]any{"email": "not-an-email"})
	assert.Equal(t, fiber.StatusBadRequest, res.status)
	assert.Equal(t, "VALIDATION_FAILED", res.errorCode())
}

func TestLogin_ThrottledAfterRepeatedFailures(t *testing.T) {
	s := newTestServer(t)
	s.registerCandidate(t, "a@test.com")

	for i := 0; i < 3; i++ {
		res := s.call(t, fiber.MethodPost, "/auth/login", map[string]any{"email": "a@test.com", "password": "nope"})
		require.Equal(t, fiber.StatusUnauthorized, res.status)
	}
	res := s.call(t, fiber.MethodPost, "/auth/login", map[string]any{"email": "a@test.com", "password": "s3cret-pass"})
	assert.Equal(t, fiber.StatusTooManyRequests, res.status)
	assert.Equal(t, "TOO_MANY_ATTEMPTS", res.errorCode())
}

func TestLoad_RequiresSession(t *testing.T) {
	s := newTestServer(t)

	res := s.call(t, fiber.MethodGet, "/auth/load", nil)
	assert.Equal(t, fiber.StatusBadRequest, res.status)
	assert.Equal(t, "BAD_REQUEST", res.errorCode())
}

func TestSession_SilentRotationEndToEnd(t *testing.T) {
	s := newTestServer(t)
	s.registerCandidate(t, "a@test.com")
	loginRes := s.login(t, "a@test.com")
	oldAccess := loginRes.cookies[auth.AccessCookieName]
	oldRefresh := loginRes.cookies[auth.RefreshCookieName]

	res := s.call(t, fiber.MethodGet, "/auth/load", nil, oldAccess, oldRefresh)
	require.Equal(t, fiber.StatusOK, res.status, res.raw)
	assert.Equal(t, "a@test.com", res.data()["email"])
	assert.Equal(t, "CANDIDATE", res.data()["role"])
	assert.Empty(t, res.cookies, "a valid access token does not rotate")

	s.clock.Advance(901 * time.Second)

	res = s.call(t, fiber.MethodGet, "/auth/load", nil, oldAccess, oldRefresh)
	require.Equal(t, fiber.StatusOK, res.status, res.raw)
	assert.Equal(t, "a@test.com", res.data()["email"])
	newAccess := res.cookies[auth.AccessCookieName]
	newRefresh := res.cookies[auth.RefreshCookieName]
	require.NotNil(t, newAccess)
	require.NotNil(t, newRefresh)
	assert.NotEqual(t, oldRefresh.Value, newRefresh.Value)

	res = s.call(t, fiber.MethodGet, "/auth/load", nil, oldRefresh)
	assert.Equal(t, fiber.StatusBadRequest, res.status, "the pre-rotation refresh token is dead")

	res = s.call(t, fiber.MethodGet, "/auth/load", nil, newAccess, newRefresh)
	assert.Equal(t, fiber.StatusOK, res.status)
	assert.Empty(t, res.cookies)
}

func TestLogout(t *testing.T) {
	s := newTestServer(t)
	s.registerCandidate(t, "a@test.com")
	loginRes := s.login(t, "a@test.com")
	access := loginRes.cookies[auth.AccessCookieName]
	refresh := loginRes.cookies[auth.RefreshCookieName]

	res := s.call(t, fiber.MethodPost, "/auth/logout", nil)
	assert.Equal(t, fiber.StatusUnauthorized, res.status)

	res = s.call(t, fiber.MethodPost, "/auth/logout", nil, access, refresh)
	require.Equal(t, fiber.StatusOK, res.status, res.raw)
	for _, name := range []string{auth.AccessCookieName, auth.RefreshCookieName} {
		ck := res.cookies[name]
		require.NotNil(t, ck, name)
		assert.Empty(t, ck.Value)
		assert.True(t, ck.Expires.Before(time.Now()))
		assert.Equal(t, "/", ck.Path)
	}

	res = s.call(t, fiber.MethodGet, "/auth/load", nil, refresh)
	assert.Equal(t, fiber.StatusBadRequest, res.status, "logout emptied the refresh slot")
}

func TestRegister(t *testing.T) {
	s := newTestServer(t)

	res := s.call(t, fiber.MethodPost, "/register", map[string]any{
		"role": "recruiter", "email": "HR@Acme.com", "password": "s3cret-pass",
		"companyName": "Acme", "website": "https://acme.example",
	})
	require.Equal(t, fiber.StatusCreated, res.status, res.raw)
	assert.Equal(t, "hr@acme.com", res.data()["email"])
	assert.Equal(t, "RECRUITER", res.data()["role"])
	assert.NotContains(t, res.raw, "password")

	res = s.call(t, fiber.MethodPost, "/register", map[string]any{
		"role": "CANDIDATE", "email": "hr@acme.com", "password": "s3cret-pass", "name": "Dup",
	})
	assert.Equal(t, fiber.StatusConflict, res.status)
	assert.Equal(t, "CONFLICT", res.errorCode())

	res = s.call(t, fiber.MethodPost, "/register", map[string]any{
		"role": "RECRUITER", "email": "x@acme.com", "password": "s3cret-pass",
	})
	assert.Equal(t, fiber.StatusBadRequest, res.status)
	assert.Contains(t, res.raw, "companyName")

	res = s.call(t, fiber.MethodPost, "/register", map[string]any{
		"role": "ADMIN", "email": "x@acme.com", "password": "short",
	})
	assert.Equal(t, fiber.StatusBadRequest, res.status)
	assert.Equal(t, "VALIDATION_FAILED", res.errorCode())
}

func TestPasswordLimitCountsBytes(t *testing.T) {
	s := newTestServer(t)
	// 40 runes, 80 bytes
	long := strings.Repeat("é", 40)

	res := s.call(t, fiber.MethodPost, "/register", map[string]any{
		"role": "CANDIDATE", "email": "multi@test.com", "password": long, "name": "Multi",
	})
	assert.Equal(t, fiber.StatusBadRequest, res.status, res.raw)
	assert.Equal(t, "VALIDATION_FAILED", res.errorCode())
	assert.Contains(t, res.raw, "bcryptlen")

	res = s.call(t, fiber.MethodPost, "/auth/login", map[string]any{"email": "multi@test.com", "password": long})
	assert.Equal(t, fiber.StatusBadRequest, res.status)
	assert.Equal(t, "VALIDATION_FAILED", res.errorCode())

	// 36 runes, 72 bytes is still accepted
	res = s.call(t, fiber.MethodPost, "/register", map[string]any{
		"role": "CANDIDATE", "email": "multi@test.com", "password": strings.Repeat("é", 36), "name": "Multi",
	})
	assert.Equal(t, fiber.StatusCreated, res.status, res.raw)
}

func TestProbesAndMetrics(t *testing.T) {
	s := newTestServer(t)

	res := s.call(t, fiber.MethodGet, "/health/live", nil)
	assert.Equal(t, fiber.StatusOK, res.status)
	assert.Equal(t, "alive", res.body["status"])

	res = s.call(t, fiber.MethodGet, "/health/ready", nil)
	assert.Equal(t, fiber.StatusOK, res.status, res.raw)
	deps, _ := res.body["dependencies"].(map[string]any)
	assert.Equal(t, "disabled", deps["postgres"])
	assert.Equal(t, "ok", deps["redis"])

	s.call(t, fiber.MethodPost, "/auth/login", map[string]any{"email": "ghost@test.com", "password": "x"})
	res = s.call(t, fiber.MethodGet, "/metrics", nil)
	assert.Equal(t, fiber.StatusOK, res.status)
	assert.Contains(t, res.raw, `test_logins_total{result="invalid_credentials"} 1`)
	assert.Contains(t, res.raw, "test_http_requests_total")
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	s := newTestServer(t)

	res := s.call(t, fiber.MethodGet, "/nope", nil)
	assert.Equal(t, fiber.StatusNotFound, res.status)
	assert.Equal(t, "NOT_FOUND", res.errorCode())
}
