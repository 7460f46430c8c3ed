package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/meteo-burkina/internal/domain/advice"
	"github.com/yanqian/meteo-burkina/internal/domain/auth"
	"github.com/yanqian/meteo-burkina/internal/domain/payment"
	"github.com/yanqian/meteo-burkina/internal/domain/plan"
	"github.com/yanqian/meteo-burkina/internal/domain/weather"
	"github.com/yanqian/meteo-burkina/internal/infra/config"
	apperrors "github.com/yanqian/meteo-burkina/pkg/errors"
	"github.com/yanqian/meteo-burkina/pkg/metrics"
	"github.com/yanqian/meteo-burkina/pkg/util"
)

func TestRouter_Healthz(t *testing.T) {
	rec := performRequest(newRouterUnderTest(t, newStubs()), http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestRouter_CurrentWeather(t *testing.T) {
	stubs := newStubs()
	stubs.weather.currentFn = func(city string) (weather.Snapshot, error) {
		require.Equal(t, "Koudougou", city)
		return weather.Snapshot{Name: "Koudougou", Temperature: 34}, nil
	}

	rec := performRequest(newRouterUnderTest(t, stubs), http.MethodGet, "/api/v1/weather/current?city=Koudougou", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got weather.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "Koudougou", got.Name)
}

func TestRouter_WeatherErrorsMapToStatus(t *testing.T) {
	stubs := newStubs()
	stubs.weather.currentFn = func(city string) (weather.Snapshot, error) {
		if city == "" {
			return weather.Snapshot{}, apperrors.Wrap("invalid_input", "Le nom de la ville est requis", nil)
		}
		return weather.Snapshot{}, apperrors.Wrap("weather_error", "Impossible de récupérer la météo", io.EOF)
	}
	server := newRouterUnderTest(t, stubs)

	rec := performRequest(server, http.MethodGet, "/api/v1/weather/current", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "invalid_input", body["error"]["code"])
	require.Equal(t, "Le nom de la ville est requis", body["error"]["message"])

	rec = performRequest(server, http.MethodGet, "/api/v1/weather/current?city=Ouaga", "", nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	body = decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "weather_error", body["error"]["code"])
	require.Equal(t, "Impossible de récupérer la météo", body["error"]["message"])
}

func TestRouter_WeatherByCoordsRequiresNumbers(t *testing.T) {
	rec := performRequest(newRouterUnderTest(t, newStubs()), http.MethodGet, "/api/v1/weather/by-coords?lat=abc&lon=1", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_PlansAndCities(t *testing.T) {
	server := newRouterUnderTest(t, newStubs())

	rec := performRequest(server, http.MethodGet, "/api/v1/plans", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var plans struct {
		Plans []plan.Plan `json:"plans"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plans))
	require.Len(t, plans.Plans, 3)

	rec = performRequest(server, http.MethodGet, "/api/v1/cities?q=bobo", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Bobo-Dioulasso")
}

func TestRouter_AdviceFreeIsAnonymous(t *testing.T) {
	stubs := newStubs()
	rec := performRequest(newRouterUnderTest(t, stubs), http.MethodPost, "/api/v1/advice", `{"weather":{"name":"Ouagadougou","temperature":38},"plan":"free"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, plan.TierFree, stubs.advice.lastTier)
	require.Equal(t, 38.0, stubs.advice.lastSnapshot.Temperature)

	var got advice.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, plan.TierFree, got.Tier)
}

func TestRouter_AdvicePaidTierRequiresLogin(t *testing.T) {
	rec := performRequest(newRouterUnderTest(t, newStubs()), http.MethodPost, "/api/v1/advice", `{"weather":{"temperature":30},"plan":"premium"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_AdvicePaidTierRequiresSubscription(t *testing.T) {
	stubs := newStubs()
	stubs.payment.authorizeErr = apperrors.Wrap("payment_required", "an active subscription is required for this plan", nil)

	rec := performRequest(newRouterUnderTest(t, stubs), http.MethodPost, "/api/v1/advice",
		`{"weather":{"temperature":30},"plan":"plan_enterprise_001"}`, bearer("good"))
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	require.Equal(t, plan.TierEnterprise, stubs.payment.lastTier)
	require.Equal(t, int64(42), stubs.payment.lastUser)
}

func TestRouter_AdvicePaidTierWithSubscription(t *testing.T) {
	stubs := newStubs()
	rec := performRequest(newRouterUnderTest(t, stubs), http.MethodPost, "/api/v1/advice",
		`{"weather":{"temperature":30},"plan":"premium"}`, bearer("good"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, plan.TierPremium, stubs.advice.lastTier)
}

func TestRouter_AdviceValidation(t *testing.T) {
	server := newRouterUnderTest(t, newStubs())

	rec := performRequest(server, http.MethodPost, "/api/v1/advice", `{"weather":{"temperature":30},"plan":"gold"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = performRequest(server, http.MethodPost, "/api/v1/advice", `{"plan":"free"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = performRequest(server, http.MethodPost, "/api/v1/advice", `{"weather":{"temperature":30}}`, bearer("bad"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "invalid_token", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])
}

func TestRouter_RegisterConflict(t *testing.T) {
	stubs := newStubs()
	stubs.auth.registerErr = apperrors.Wrap("email_exists", "Email déjà utilisé.", nil)

	rec := performRequest(newRouterUnderTest(t, stubs), http.MethodPost, "/api/v1/auth/register", `{"username":"awa","email":"awa@example.bf","password":"motdepasse"}`, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "Email déjà utilisé.", decodeErrorBody(t, rec.Body.Bytes())["error"]["message"])
}

func TestRouter_VerifyEmailReadsQuery(t *testing.T) {
	stubs := newStubs()
	rec := performRequest(newRouterUnderTest(t, stubs), http.MethodGet, "/api/v1/auth/verify?token=abc&email=awa%40example.bf", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, auth.VerifyRequest{Token: "abc", Email: "awa@example.bf"}, stubs.auth.lastVerify)
}

func TestRouter_LoginUnverified(t *testing.T) {
	stubs := newStubs()
	stubs.auth.loginErr = apperrors.Wrap("email_not_verified", "Vous devez vérifier votre email avant de vous connecter.", nil)

	rec := performRequest(newRouterUnderTest(t, stubs), http.MethodPost, "/api/v1/auth/login", `{"email":"a@b.c","password":"x"}`, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_MeRequiresToken(t *testing.T) {
	server := newRouterUnderTest(t, newStubs())

	rec := performRequest(server, http.MethodGet, "/api/v1/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = performRequest(server, http.MethodGet, "/api/v1/auth/me", "", bearer("good"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "awa@example.bf")
}

func TestRouter_CreateInvoiceUsesAllowedOrigin(t *testing.T) {
	stubs := newStubs()
	server := newRouterUnderTest(t, stubs)

	headers := bearer("good")
	headers["Origin"] = "https://meteo.bf"
	rec := performRequest(server, http.MethodPost, "/api/v1/payments/invoices", `{"plan":"premium"}`, headers)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "https://meteo.bf", stubs.payment.lastOrigin)
	require.Contains(t, rec.Body.String(), "checkoutUrl")

	headers["Origin"] = "https://evil.example"
	rec = performRequest(server, http.MethodPost, "/api/v1/payments/invoices", `{"plan":"premium"}`, headers)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Empty(t, stubs.payment.lastOrigin)

	rec = performRequest(server, http.MethodPost, "/api/v1/payments/invoices", `{"plan":"premium"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_PaymentWebhookReadsFormToken(t *testing.T) {
	stubs := newStubs()
	server := newRouterUnderTest(t, stubs)

	req := httptest.NewRequest(http.MethodPost, "/api/payment/webhook", strings.NewReader("data%5Binvoice%5D%5Btoken%5D=tok_9&data%5Bstatus%5D=completed"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "tok_9", stubs.payment.lastCallback)
}

func TestRouter_CORSPreflight(t *testing.T) {
	headers := map[string]string{"Origin": "https://meteo.bf"}
	rec := performRequest(newRouterUnderTest(t, newStubs()), http.MethodOptions, "/api/v1/advice", "", headers)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://meteo.bf", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_MetricsExposeRequests(t *testing.T) {
	server := newRouterUnderTest(t, newStubs())
	performRequest(server, http.MethodGet, "/api/v1/plans", "", nil)

	rec := performRequest(server, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `meteo_http_requests_total{method="GET",route="/api/v1/plans",status="200"} 1`)
}

func TestIPRateLimiter(t *testing.T) {
	clock := util.NewManualClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	limiter := newIPRateLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 60, Burst: 2})
	limiter.now = clock.Now

	require.True(t, limiter.allow("1.2.3.4"))
	require.True(t, limiter.allow("1.2.3.4"))
	require.False(t, limiter.allow("1.2.3.4"))
	require.True(t, limiter.allow("5.6.7.8"))

	clock.Advance(time.Second)
	require.True(t, limiter.allow("1.2.3.4"))
}

func TestRouter_GoogleSignInRoundTrip(t *testing.T) {
	server := newRouterUnderTest(t, newStubs())

	rec := performRequest(server, http.MethodGet, "/api/v1/auth/google/login", "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, pkceCookieName, cookies[0].Name)
	stored, ok := decodePKCEState(cookies[0].Value)
	require.True(t, ok)
	require.Contains(t, rec.Header().Get("Location"), "state="+stored.State)

	cookie := map[string]string{"Cookie": pkceCookieName + "=" + cookies[0].Value}
	rec = performRequest(server, http.MethodGet, "/api/v1/auth/google/callback?state=forged&code=abc", "", cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = performRequest(server, http.MethodGet, "/api/v1/auth/google/callback?state="+stored.State+"&code=abc", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"token":"good"`)
}

func TestDecodePKCEStateRejectsMalformed(t *testing.T) {
	_, ok := decodePKCEState("no-separator")
	require.False(t, ok)
	_, ok = decodePKCEState(".verifier")
	require.False(t, ok)
	got, ok := decodePKCEState(pkceState{State: "s", Verifier: "v"}.encode())
	require.True(t, ok)
	require.Equal(t, pkceState{State: "s", Verifier: "v"}, got)
}

func performRequest(server *http.Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

type stubs struct {
	weather *stubWeather
	advice  *stubAdvice
	auth    *stubAuth
	payment *stubPayment
}

func newStubs() stubs {
	return stubs{
		weather: &stubWeather{},
		advice:  &stubAdvice{},
		auth:    &stubAuth{},
		payment: &stubPayment{},
	}
}

func newRouterUnderTest(t *testing.T, s stubs) *http.Server {
	t.Helper()
	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Address:        ":0",
			ReadTimeout:    time.Second,
			WriteTimeout:   time.Second,
			AllowedOrigins: []string{"https://meteo.bf"},
		},
	}
	logger := newTestLogger()
	handler := NewHandler(cfg, s.weather, s.advice, s.auth, s.payment, logger)
	return NewRouter(cfg, handler, s.auth, metrics.NewCollectors(), logger)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

type stubWeather struct {
	currentFn func(city string) (weather.Snapshot, error)
}

func (s *stubWeather) Current(_ context.Context, city string) (weather.Snapshot, error) {
	if s.currentFn != nil {
		return s.currentFn(city)
	}
	return weather.Snapshot{Name: city}, nil
}

func (s *stubWeather) CurrentByCoords(_ context.Context, _, _ float64) (weather.Snapshot, error) {
	return weather.Snapshot{}, nil
}

func (s *stubWeather) Forecast(_ context.Context, _ string) ([]weather.ForecastDay, error) {
	return nil, nil
}

func (s *stubWeather) Dashboard(_ context.Context, city string) (weather.Dashboard, error) {
	return weather.Dashboard{City: city}, nil
}

func (s *stubWeather) Cities(query string) []weather.City {
	return weather.Cities(query)
}

type stubAdvice struct {
	lastSnapshot weather.Snapshot
	lastTier     plan.Tier
}

func (s *stubAdvice) GetAdvice(_ context.Context, snap weather.Snapshot, tier plan.Tier) advice.Result {
	s.lastSnapshot = snap
	s.lastTier = tier
	return advice.Result{Tier: tier, Source: advice.SourceFallback, Advice: advice.Fallback(snap, tier)}
}

type stubAuth struct {
	registerErr error
	loginErr    error
	lastVerify  auth.VerifyRequest
}

func (s *stubAuth) Register(_ context.Context, req auth.RegisterRequest) (auth.RegisterResponse, error) {
	if s.registerErr != nil {
		return auth.RegisterResponse{}, s.registerErr
	}
	return auth.RegisterResponse{User: auth.UserView{Email: req.Email}, VerificationSent: true}, nil
}

func (s *stubAuth) VerifyEmail(_ context.Context, req auth.VerifyRequest) (auth.UserView, error) {
	s.lastVerify = req
	return auth.UserView{Email: req.Email, EmailVerified: true}, nil
}

func (s *stubAuth) ResendVerification(_ context.Context, _ auth.ResendRequest) error {
	return nil
}

func (s *stubAuth) Login(_ context.Context, _ auth.LoginRequest) (auth.LoginResponse, error) {
	if s.loginErr != nil {
		return auth.LoginResponse{}, s.loginErr
	}
	return auth.LoginResponse{Token: "good"}, nil
}

func (s *stubAuth) GoogleAuthURL(_ context.Context, state, _ string) (string, error) {
	return "https://accounts.google.com/o/oauth2/auth?state=" + state, nil
}

func (s *stubAuth) GoogleCallback(_ context.Context, _, _ string) (auth.LoginResponse, error) {
	return auth.LoginResponse{Token: "good"}, nil
}

func (s *stubAuth) ValidateToken(_ context.Context, token string) (auth.Claims, error) {
	if token != "good" {
		return auth.Claims{}, apperrors.Wrap("invalid_token", "invalid token", nil)
	}
	return auth.Claims{UserID: 42, Email: "awa@example.bf", TokenType: "access"}, nil
}

func (s *stubAuth) Refresh(_ context.Context, _ string) (auth.LoginResponse, error) {
	return auth.LoginResponse{Token: "good"}, nil
}

func (s *stubAuth) Profile(_ context.Context, userID int64) (auth.UserView, error) {
	return auth.UserView{ID: userID, Email: "awa@example.bf"}, nil
}

func (s *stubAuth) Logout(_ context.Context, _ int64) error {
	return nil
}

type stubPayment struct {
	authorizeErr error
	lastTier     plan.Tier
	lastUser     int64
	lastOrigin   string
	lastCallback string
}

func (s *stubPayment) CreateInvoice(_ context.Context, userID int64, planID, origin string) (payment.Checkout, error) {
	s.lastUser = userID
	s.lastOrigin = origin
	p, _ := plan.Resolve(planID)
	return payment.Checkout{CheckoutURL: "https://pay/tok", Token: "tok", Plan: p}, nil
}

func (s *stubPayment) Confirm(_ context.Context, userID int64, token string) (payment.Subscription, error) {
	return payment.Subscription{UserID: userID, InvoiceToken: token, Status: payment.StatusActive}, nil
}

func (s *stubPayment) HandleCallback(_ context.Context, token string) (payment.Subscription, error) {
	s.lastCallback = token
	return payment.Subscription{InvoiceToken: token, Status: payment.StatusActive}, nil
}

func (s *stubPayment) Current(_ context.Context, _ int64) (payment.CurrentPlan, error) {
	return payment.CurrentPlan{Tier: plan.TierFree}, nil
}

func (s *stubPayment) Authorize(_ context.Context, userID int64, tier plan.Tier) error {
	s.lastUser = userID
	s.lastTier = tier
	return s.authorizeErr
}
