package ui

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/me/rtodash/internal/app"
	"github.com/me/rtodash/internal/apitest"
	"github.com/me/rtodash/internal/logging"
	"github.com/me/rtodash/internal/store"
	"github.com/me/rtodash/pkg/model"
)

type harness struct {
	be     *apitest.Backend
	apps   *app.Manager
	srv    *httptest.Server
	client *http.Client
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	be := apitest.NewBackend(t)
	apps := app.NewManager(store.NewMemoryStore(), app.Options{
		APIBaseURL: be.URL(),
		Logger:     logging.Discard(),
	}, app.ManagerConfig{})

	r := chi.NewRouter()
	r.Handle("/static/*", StaticHandler())
	New(apps, logging.Discard(), cfg).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &harness{be: be, apps: apps, srv: srv, client: client}
}

func (h *harness) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := h.client.Get(h.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (h *harness) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := h.client.PostForm(h.srv.URL+path, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (h *harness) login(t *testing.T, email, password string) {
	t.Helper()
	h.get(t, "/login")
	resp, _ := h.post(t, "/login", url.Values{"email": {email}, "password": {password}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

// clientApp returns the App behind the harness's browser cookie.
func (h *harness) clientApp(t *testing.T) *app.App {
	t.Helper()
	u, err := url.Parse(h.srv.URL)
	require.NoError(t, err)
	for _, c := range h.client.Jar.Cookies(u) {
		if c.Name == ClientCookieName {
			a, err := h.apps.Get(context.Background(), c.Value)
			require.NoError(t, err)
			return a
		}
	}
	t.Fatal("no client cookie")
	return nil
}

func TestProtectedRedirectsToLogin(t *testing.T) {
	h := newHarness(t, Config{})

	resp, _ := h.get(t, "/wallet")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login?next=%2Fwallet", resp.Header.Get("Location"))

	// Re-rendering changes nothing.
	resp, _ = h.get(t, "/wallet")
	assert.Equal(t, "/login?next=%2Fwallet", resp.Header.Get("Location"))

	var found bool
	for _, c := range resp.Cookies() {
		found = found || c.Name == ClientCookieName
	}
	assert.False(t, found, "cookie is only issued once")
}

func TestLoginPageMakesNoAPICalls(t *testing.T) {
	h := newHarness(t, Config{})

	resp, body := h.get(t, "/login")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Sign in")
	assert.Zero(t, h.be.TotalCalls())
}

func TestLoginValidation(t *testing.T) {
	h := newHarness(t, Config{})
	h.get(t, "/login")

	resp, body := h.post(t, "/login", url.Values{"email": {"not-an-email"}, "password": {""}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Enter a valid email address")
	assert.Contains(t, body, "Password is required")
	assert.Zero(t, h.be.Calls(apitest.RouteLogin))
}

func TestLoginFailureShowsServerMessage(t *testing.T) {
	h := newHarness(t, Config{})
	h.get(t, "/login")

	resp, body := h.post(t, "/login", url.Values{"email": {"ravi@example.com"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Invalid email or password")
}

func TestLoginFlow(t *testing.T) {
	h := newHarness(t, Config{})
	h.get(t, "/wallet")

	h.get(t, "/login?next=%2Fwallet")
	resp, _ := h.post(t, "/login", url.Values{
		"email":    {"ravi@example.com"},
		"password": {"secret123"},
		"next":     {"/wallet"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/wallet", resp.Header.Get("Location"))

	resp, body := h.get(t, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Ravi Kumar")
	assert.Contains(t, body, "₹250.00")
	assert.Contains(t, body, "Login successful")

	// Public pages now bounce to the dashboard.
	resp, _ = h.get(t, "/login")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp, _ = h.get(t, "/logout")
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	resp, _ = h.get(t, "/")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestLoginIgnoresOffsiteNext(t *testing.T) {
	h := newHarness(t, Config{})
	h.get(t, "/login")
	resp, _ := h.post(t, "/login", url.Values{
		"email":    {"ravi@example.com"},
		"password": {"secret123"},
		"next":     {"https://evil.example/"},
	})
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestAdminGuard(t *testing.T) {
	h := newHarness(t, Config{})

	resp, _ := h.get(t, "/admin")
	assert.Equal(t, "/login?next=%2Fadmin", resp.Header.Get("Location"))

	h.login(t, "ravi@example.com", "secret123")
	resp, _ = h.get(t, "/admin")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	h.be.AddAgent(&model.Agent{ID: "a_9", Name: "Meera Iyer", Email: "meera@example.com", Role: model.RoleSuperAdmin}, "adminpass")
	h.get(t, "/logout")
	h.login(t, "meera@example.com", "adminpass")
	resp, body := h.get(t, "/admin")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "meera@example.com")
	assert.Contains(t, body, `id="active-clients">1<`)
}

func TestUnauthorizedDuringWalletRefresh(t *testing.T) {
	h := newHarness(t, Config{})
	h.login(t, "ravi@example.com", "secret123")
	a := h.clientApp(t)
	_, ok := a.Session.Token(context.Background())
	require.True(t, ok)

	h.be.Fail(apitest.RouteBalance, http.StatusUnauthorized, "Token expired")
	resp, _ := h.post(t, "/wallet/refresh", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	_, ok = a.Session.Token(context.Background())
	assert.False(t, ok, "token removed")

	resp, _ = h.get(t, "/wallet")
	assert.Equal(t, "/login?next=%2Fwallet", resp.Header.Get("Location"))
}

func TestLoadingPageWhileVerifying(t *testing.T) {
	h := newHarness(t, Config{VerifyWait: 20 * time.Millisecond})
	h.get(t, "/login")
	a := h.clientApp(t)

	// A fresh App for the same browser, as after eviction, with a stored token.
	require.NoError(t, h.apps.Forget(context.Background(), a.ID))
	b, err := h.apps.Get(context.Background(), a.ID)
	require.NoError(t, err)
	b.Session.SetToken(context.Background(), apitest.ValidToken())
	h.be.SetMeDelay(300 * time.Millisecond)

	resp, body := h.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Checking your session")
	assert.NotContains(t, body, "Wallet balance")

	require.Eventually(t, func() bool { return b.Auth.Snapshot().Ready() }, 2*time.Second, 10*time.Millisecond)
	resp, body = h.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Wallet balance")
	assert.Equal(t, 1, h.be.Calls(apitest.RouteMe))
}

func TestRegisterPageNotGatedWhileVerifying(t *testing.T) {
	h := newHarness(t, Config{VerifyWait: 20 * time.Millisecond})
	h.get(t, "/login")
	a := h.clientApp(t)

	require.NoError(t, h.apps.Forget(context.Background(), a.ID))
	b, err := h.apps.Get(context.Background(), a.ID)
	require.NoError(t, err)
	b.Session.SetToken(context.Background(), apitest.ValidToken())
	h.be.SetMeDelay(300 * time.Millisecond)

	resp, body := h.get(t, "/register")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `name="mobile"`)
	assert.NotContains(t, body, "Checking your session")

	// Once the check settles the agent is known and the public page redirects.
	require.Eventually(t, func() bool { return b.Auth.Snapshot().Ready() }, 2*time.Second, 10*time.Millisecond)
	resp, _ = h.get(t, "/register")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t, Config{})
	h.get(t, "/register")

	resp, body := h.post(t, "/register", url.Values{
		"name":     {"Asha"},
		"email":    {"asha@example.com"},
		"mobile":   {"123"},
		"password": {"short"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Mobile number must be 10 digits")
	assert.Contains(t, body, "Password must be at least 8 characters")
	assert.Contains(t, body, `value="asha@example.com"`)
	assert.Zero(t, h.be.Calls(apitest.RouteRegister))

	resp, _ = h.post(t, "/register", url.Values{
		"name":     {"Asha"},
		"email":    {"asha@example.com"},
		"mobile":   {"9876500000"},
		"password": {"longenough"},
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestNotificationsPage(t *testing.T) {
	h := newHarness(t, Config{})
	h.be.SetBalance("20")
	h.be.SetNotifications([]model.ServerNotification{
		{ID: "5", Title: "Batch sent", Message: "12 reminders", Type: "info"},
	})
	h.login(t, "ravi@example.com", "secret123")

	resp, body := h.get(t, "/notifications")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	warn := strings.Index(body, `data-id="low-balance-warning"`)
	server := strings.Index(body, `data-id="5"`)
	require.NotEqual(t, -1, warn)
	require.NotEqual(t, -1, server)
	assert.Less(t, warn, server)

	resp, _ = h.post(t, "/notifications/clear", nil)
	assert.Equal(t, "/notifications", resp.Header.Get("Location"))
	assert.Equal(t, 1, h.be.Calls(apitest.RouteClearAll))
}

func TestThemeToggle(t *testing.T) {
	h := newHarness(t, Config{})
	h.login(t, "ravi@example.com", "secret123")

	resp, _ := h.post(t, "/theme", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	_, body := h.get(t, "/")
	assert.Contains(t, body, `<html lang="en" class="dark">`)
}

func TestChat(t *testing.T) {
	h := newHarness(t, Config{})
	h.login(t, "ravi@example.com", "secret123")

	resp, _ := h.post(t, "/chat", url.Values{"message": {"When do reminders go out?"}})
	assert.Equal(t, "/chat", resp.Header.Get("Location"))
	_, body := h.get(t, "/chat")
	assert.Contains(t, body, "When do reminders go out?")
	assert.Contains(t, body, "Your next reminder batch runs at 9 AM.")
}

func TestStaticAssets(t *testing.T) {
	h := newHarness(t, Config{})
	resp, body := h.get(t, "/static/css/app.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, ".spinner")
}
