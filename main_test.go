package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookreview/internal/config"
	"bookreview/internal/database"
)

// newTestApp builds the full application on a private in-memory database.
func newTestApp(t *testing.T, csrfEnabled bool) *fiber.App {
	t.Helper()

	v := viper.New()
	config.SetDefaults(v)
	v.Set("APP_ENV", "test")
	v.Set("DATABASE_DSN", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	v.Set("JWT_SECRET", "test_jwt_secret")
	v.Set("MEDIA_ROOT", t.TempDir())
	v.Set("CSRF_ENABLED", csrfEnabled)
	v.Set("LOGIN_RATE_PER_MINUTE", 100)
	cfg, err := config.FromViper(v)
	require.NoError(t, err)

	db, err := database.Open(cfg.Database)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	app, err := NewApp(cfg, db, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Shutdown() })
	return app
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, string(body)
}

func TestHealthCheck(t *testing.T) {
	app := newTestApp(t, false)

	resp, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "connected", health["database"])
	assert.Equal(t, "disabled", health["rabbitmq"])
}

func TestAPIRequiresToken(t *testing.T) {
	app := newTestApp(t, true)

	for _, path := range []string{"/api/v1/books", "/api/v1/me", "/api/v1/reviews/1"} {
		resp, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
		assert.Contains(t, body, "\"message\"", path)
	}
}

func TestAPISkipsCSRF(t *testing.T) {
	app := newTestApp(t, true)

	payload := `{"username":"alice","password1":"s3cure-Passw0rd!","password2":"s3cure-Passw0rd!"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := doRequest(t, app, req)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestHTMLFormsRequireCSRFToken(t *testing.T) {
	app := newTestApp(t, true)

	form := url.Values{"username": {"alice"}, "password": {"whatever-123"}}
	req := httptest.NewRequest(http.MethodPost, "/accounts/login/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, _ := doRequest(t, app, req)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// A token obtained from the form page is accepted.
	resp, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/accounts/login/", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var csrfCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "bookreview_csrf" {
			csrfCookie = c
		}
	}
	require.NotNil(t, csrfCookie)
	assert.Contains(t, body, csrfCookie.Value)

	form.Set("_csrf", csrfCookie.Value)
	req = httptest.NewRequest(http.MethodPost, "/accounts/login/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: csrfCookie.Name, Value: csrfCookie.Value})
	resp, _ = doRequest(t, app, req)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUnknownPagesRenderNotFound(t *testing.T) {
	app := newTestApp(t, false)

	resp, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/no/such/page", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "The requested page was not found.")
}
