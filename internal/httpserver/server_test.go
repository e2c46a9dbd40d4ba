package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"lumina/backend/internal/config"
	"lumina/backend/internal/infrastructure/hasher"
	"lumina/backend/internal/infrastructure/memory"
	"lumina/backend/internal/infrastructure/token"
	"lumina/backend/internal/metrics"
	authusecase "lumina/backend/internal/usecase/auth"
	favoriteusecase "lumina/backend/internal/usecase/favorite"
	userusecase "lumina/backend/internal/usecase/user"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureMailer struct {
	mu     sync.Mutex
	bodies []string
	err    error
}

func (m *captureMailer) Send(_ context.Context, _, _, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.bodies = append(m.bodies, body)
	return nil
}

var resetTokenPattern = regexp.MustCompile(`token=([0-9a-f]{64})`)

func (m *captureMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.bodies)
	match := resetTokenPattern.FindStringSubmatch(m.bodies[len(m.bodies)-1])
	require.Len(t, match, 2)
	return match[1]
}

type testEnv struct {
	handler http.Handler
	mailer  *captureMailer
	reg     *prometheus.Registry
	server  *Server
}

func newTestEnv(t *testing.T, ratePerMin int) *testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, config.Config{AuthRatePerMin: ratePerMin, ResetRatePerHour: 100})
}

func newTestEnvWithConfig(t *testing.T, cfg config.Config) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := memory.NewUserRepository()
	favorites := memory.NewFavoriteRepository()
	mailer := &captureMailer{}
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	authSvc := authusecase.NewService(authusecase.Dependencies{
		Users:   users,
		Tokens:  token.NewJWTManager("test-secret", time.Hour, "lumina-test"),
		Resets:  token.NewResetTokenManager(),
		Hasher:  hasher.NewBcrypt(),
		Mailer:  mailer,
		Metrics: collector,
		Logger:  logger,
	}, authusecase.Config{ResetURL: "https://app.example.com/reset-password"})

	cfg.HTTPPort = "0"
	cfg.AllowedOrigins = []string{"https://app.example.com"}
	srv := NewServer(cfg, Dependencies{
		Auth:      authSvc,
		Users:     userusecase.NewService(users, favorites, logger),
		Favorites: favoriteusecase.NewService(favorites),
		Observer:  collector,
		Gatherer:  reg,
		Logger:    logger,
	})
	t.Cleanup(srv.limiter.Stop)
	t.Cleanup(srv.resetLimiter.Stop)

	return &testEnv{handler: srv.Handler(), mailer: mailer, reg: reg, server: srv}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func registerPayload(email string) map[string]any {
	return map[string]any{
		"firstName": "Alice",
		"lastName":  "Doe",
		"age":       30,
		"email":     email,
		"password":  "Abc12345!",
	}
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	tok, _ := decodeBody(t, w)["token"].(string)
	require.NotEmpty(t, tok)
	return tok
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, 100)
	w := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeBody(t, w)["status"])
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t, 100)

	w := env.do(t, http.MethodPost, "/auth/register", "", registerPayload("a@x.com"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "a@x.com", body["email"])
	assert.NotEmpty(t, body["id"])
	assert.NotContains(t, w.Body.String(), "password")

	w = env.do(t, http.MethodPost, "/auth/register", "", registerPayload("a@x.com"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "email_taken", decodeBody(t, w)["code"])

	env.login(t, "a@x.com", "Abc12345!")

	wrong := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "a@x.com", "password": "Nope1234!"})
	unknown := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "b@x.com", "password": "Abc12345!"})
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
}

func TestRegisterValidationStatus(t *testing.T) {
	env := newTestEnv(t, 100)

	payload := registerPayload("a@x.com")
	payload["age"] = 16
	w := env.do(t, http.MethodPost, "/auth/register", "", payload)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "underage", decodeBody(t, w)["code"])

	payload = registerPayload("a@x.com")
	payload["password"] = "password"
	w = env.do(t, http.MethodPost, "/auth/register", "", payload)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "password_too_common", decodeBody(t, w)["code"])

	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_json", decodeBody(t, rec)["code"])
}

func TestPasswordRecoveryFlow(t *testing.T) {
	env := newTestEnv(t, 100)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/auth/register", "", registerPayload("a@x.com")).Code)

	known := env.do(t, http.MethodPost, "/auth/forgot-password", "", map[string]string{"email": "a@x.com"})
	unknown := env.do(t, http.MethodPost, "/auth/forgot-password", "", map[string]string{"email": "ghost@x.com"})
	require.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, known.Body.String(), unknown.Body.String())
	assert.Equal(t, authusecase.NeutralResetMessage, decodeBody(t, known)["message"])

	raw := env.mailer.lastToken(t)

	mismatch := env.do(t, http.MethodPost, "/auth/reset-password", "", map[string]string{
		"token": raw, "newPassword": "Xyz98765!", "confirmPassword": "Xyz98765?",
	})
	assert.Equal(t, http.StatusBadRequest, mismatch.Code)
	assert.Equal(t, "password_mismatch", decodeBody(t, mismatch)["code"])

	ok := env.do(t, http.MethodPost, "/auth/reset-password", "", map[string]string{
		"token": raw, "newPassword": "Xyz98765!", "confirmPassword": "Xyz98765!",
	})
	require.Equal(t, http.StatusOK, ok.Code, ok.Body.String())

	replay := env.do(t, http.MethodPost, "/auth/reset-password", "", map[string]string{
		"token": raw, "newPassword": "Other999!", "confirmPassword": "Other999!",
	})
	assert.Equal(t, http.StatusUnauthorized, replay.Code)
	assert.Equal(t, "reset_token_invalid", decodeBody(t, replay)["code"])

	old := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "a@x.com", "password": "Abc12345!"})
	assert.Equal(t, http.StatusUnauthorized, old.Code)
	env.login(t, "a@x.com", "Xyz98765!")
}

func TestForgotPasswordDeliveryFailure(t *testing.T) {
	env := newTestEnv(t, 100)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/auth/register", "", registerPayload("a@x.com")).Code)
	env.mailer.err = errors.New("relay down")

	w := env.do(t, http.MethodPost, "/auth/forgot-password", "", map[string]string{"email": "a@x.com"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "mail_delivery_failed", body["code"])
	assert.NotContains(t, body["error"], "relay down")

	blank := env.do(t, http.MethodPost, "/auth/forgot-password", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, blank.Code)
	assert.Equal(t, "email_required", decodeBody(t, blank)["code"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t, 100)

	for _, path := range []string{"/users/me", "/favorites"} {
		w := env.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)

		w = env.do(t, http.MethodGet, path, "garbage", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, "token_invalid", decodeBody(t, w)["code"])
	}
}

func TestProfileEndpoints(t *testing.T) {
	env := newTestEnv(t, 100)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/auth/register", "", registerPayload("a@x.com")).Code)
	tok := env.login(t, "a@x.com", "Abc12345!")

	w := env.do(t, http.MethodGet, "/users/me", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Alice", decodeBody(t, w)["firstName"])

	w = env.do(t, http.MethodPatch, "/users/me", tok, map[string]any{"lastName": "Smith", "age": 31})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "Smith", body["lastName"])
	assert.EqualValues(t, 31, body["age"])

	w = env.do(t, http.MethodPatch, "/users/me", tok, map[string]any{"age": 12})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/users/me/password", tok, map[string]string{"currentPassword": "Abc12345!", "newPassword": "Xyz98765!"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = env.do(t, http.MethodPost, "/users/me/password", tok, map[string]string{"currentPassword": "Abc12345!", "newPassword": "Qwe98765!"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "current_password_invalid", decodeBody(t, w)["code"])

	w = env.do(t, http.MethodPost, "/auth/renew", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decodeBody(t, w)["token"])

	w = env.do(t, http.MethodDelete, "/users/me", tok, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodGet, "/users/me", tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, http.MethodPost, "/auth/renew", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFavoriteEndpoints(t *testing.T) {
	env := newTestEnv(t, 100)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/auth/register", "", registerPayload("a@x.com")).Code)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/auth/register", "", registerPayload("b@x.com")).Code)
	alice := env.login(t, "a@x.com", "Abc12345!")
	bob := env.login(t, "b@x.com", "Abc12345!")

	w := env.do(t, http.MethodGet, "/favorites", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{}, decodeBody(t, w)["items"])

	w = env.do(t, http.MethodPost, "/favorites", alice, map[string]string{"videoId": "v1", "title": "Sunset"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id, _ := decodeBody(t, w)["id"].(string)
	require.NotEmpty(t, id)

	w = env.do(t, http.MethodPost, "/favorites", alice, map[string]string{"videoId": "v1", "title": "Again"})
	assert.Equal(t, http.StatusConflict, w.Code)
	w = env.do(t, http.MethodPost, "/favorites", alice, map[string]string{"title": "no video"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/favorites/"+id, bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, http.MethodPatch, "/favorites/"+id, alice, map[string]string{"note": "later"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "later", decodeBody(t, w)["note"])

	w = env.do(t, http.MethodDelete, "/favorites/"+id, bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, http.MethodDelete, "/favorites/"+id, alice, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodGet, "/favorites", alice, nil)
	assert.Equal(t, []any{}, decodeBody(t, w)["items"])

	for _, method := range []string{http.MethodGet, http.MethodPatch, http.MethodDelete} {
		w = env.do(t, method, "/favorites/not-a-uuid", alice, map[string]string{"note": "x"})
		assert.Equal(t, http.StatusNotFound, w.Code, method)
	}
}

func TestAuthRateLimit(t *testing.T) {
	env := newTestEnv(t, 2)

	for i := 0; i < 2; i++ {
		w := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "a@x.com", "password": "x"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "a@x.com", "password": "x"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limited", decodeBody(t, w)["code"])

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", "", nil).Code, "unthrottled routes are unaffected")
}

func (e *testEnv) postFrom(t *testing.T, path, remoteAddr string, headers map[string]string, body any) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func TestAuthRateLimitIgnoresForwardedHeaders(t *testing.T) {
	env := newTestEnv(t, 2)
	creds := map[string]string{"email": "a@x.com", "password": "x"}

	codes := make([]int, 0, 10)
	for i := 0; i < 10; i++ {
		ip := fmt.Sprintf("10.0.0.%d", i+1)
		w := env.postFrom(t, "/auth/login", "", map[string]string{
			"X-Forwarded-For": ip,
			"X-Real-IP":       ip,
			"True-Client-IP":  ip,
		}, creds)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized}, codes[:2])
	for _, code := range codes[2:] {
		assert.Equal(t, http.StatusTooManyRequests, code)
	}
}

func TestAuthRateLimitBehindTrustedProxy(t *testing.T) {
	env := newTestEnvWithConfig(t, config.Config{
		AuthRatePerMin:   1,
		ResetRatePerHour: 100,
		TrustedProxies:   []netip.Prefix{netip.MustParsePrefix("192.0.2.0/24")},
	})
	creds := map[string]string{"email": "a@x.com", "password": "x"}
	via := func(client string) int {
		return env.postFrom(t, "/auth/login", "192.0.2.10:4000", map[string]string{"X-Real-IP": client}, creds).Code
	}

	assert.Equal(t, http.StatusUnauthorized, via("203.0.113.5"))
	assert.Equal(t, http.StatusUnauthorized, via("203.0.113.6"), "each forwarded client has its own bucket")
	assert.Equal(t, http.StatusTooManyRequests, via("203.0.113.5"))

	untrusted := env.postFrom(t, "/auth/login", "198.51.100.7:4000", map[string]string{"X-Real-IP": "203.0.113.99"}, creds)
	assert.Equal(t, http.StatusUnauthorized, untrusted.Code)
	again := env.postFrom(t, "/auth/login", "198.51.100.7:4000", map[string]string{"X-Real-IP": "203.0.113.100"}, creds)
	assert.Equal(t, http.StatusTooManyRequests, again.Code, "headers from an untrusted peer do not change its key")
}

func TestForgotPasswordLimitedPerEmail(t *testing.T) {
	env := newTestEnvWithConfig(t, config.Config{AuthRatePerMin: 100, ResetRatePerHour: 2})
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/auth/register", "", registerPayload("a@x.com")).Code)

	first := env.postFrom(t, "/auth/forgot-password", "198.51.100.1:1000", nil, map[string]string{"email": "a@x.com"})
	second := env.postFrom(t, "/auth/forgot-password", "198.51.100.2:1000", nil, map[string]string{"email": " A@X.com "})
	third := env.postFrom(t, "/auth/forgot-password", "198.51.100.3:1000", nil, map[string]string{"email": "a@x.com"})
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.Equal(t, "1800", third.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limited", decodeBody(t, third)["code"])

	other := env.postFrom(t, "/auth/forgot-password", "198.51.100.3:1000", nil, map[string]string{"email": "b@x.com"})
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestPanicIsLoggedAndCounted(t *testing.T) {
	env := newTestEnv(t, 100)
	env.server.router.Get("/boom", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	w := env.do(t, http.MethodGet, "/boom", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal_error", decodeBody(t, w)["code"])

	metricsBody := env.do(t, http.MethodGet, "/metrics", "", nil).Body.String()
	assert.Contains(t, metricsBody, `lumina_http_requests_total{route="/boom",status_code="500"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, 100)

	req := httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, 100)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/auth/register", "", registerPayload("a@x.com")).Code)

	w := env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `lumina_auth_events_total{flow="register",result="success"} 1`)
	assert.Contains(t, w.Body.String(), `lumina_http_requests_total{route="/auth/register",status_code="201"} 1`)
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t, 100)
	w := env.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeBody(t, w)["code"])
}
