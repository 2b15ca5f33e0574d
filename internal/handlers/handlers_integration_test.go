package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookreview/internal/handlers"
	"bookreview/internal/media"
	"bookreview/internal/middleware"
	"bookreview/internal/repositories"
	"bookreview/internal/services"
	"bookreview/internal/testutil"
	"bookreview/internal/validation"
)

const testPassword = "s3cure-Passw0rd!"

// setupApp sets up a Fiber app for testing with in-memory SQLite and all API handlers/services.
func setupApp(t *testing.T) *fiber.App {
	t.Helper()

	db := testutil.NewDB(t)
	thumbnails, err := media.NewStorage(t.TempDir(), 1<<20)
	require.NoError(t, err)

	v := validation.New()
	userRepo := repositories.NewGORMUserRepository(db)
	bookRepo := repositories.NewGORMBookRepository(db)
	reviewRepo := repositories.NewGORMReviewRepository(db)

	authService := services.NewAuthService(userRepo, v, "test_jwt_secret", 0, nil)
	bookService := services.NewBookService(bookRepo, reviewRepo, thumbnails, v, nil)
	reviewService := services.NewReviewService(reviewRepo, bookRepo, v, nil)

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	handlers.NewHealthHandler(db, false).RegisterRoutes(app)

	api := app.Group("/api/v1")
	authHandler := handlers.NewAuthHandler(authService)
	authHandler.RegisterRoutes(api)

	protected := api.Group("", middleware.AuthRequired(authService))
	authHandler.RegisterAccountRoutes(protected)
	handlers.NewBookHandler(bookService).RegisterRoutes(protected)
	handlers.NewReviewHandler(reviewService).RegisterRoutes(protected)
	return app
}

// call sends a JSON request and decodes the JSON response into a map.
func call(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	result := map[string]interface{}{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &result), string(raw))
	}
	return resp.StatusCode, result
}

func registerAndLogin(t *testing.T, app *fiber.App, username string) string {
	t.Helper()

	status, _ := call(t, app, http.MethodPost, "/api/v1/auth/register", "", fiber.Map{
		"username": username, "password1": testPassword, "password2": testPassword,
	})
	require.Equal(t, http.StatusCreated, status)

	status, body := call(t, app, http.MethodPost, "/api/v1/auth/login", "", fiber.Map{
		"username": username, "password": testPassword,
	})
	require.Equal(t, http.StatusOK, status)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func idOf(t *testing.T, m map[string]interface{}) int {
	t.Helper()
	id, ok := m["id"].(float64)
	require.True(t, ok, "missing id in %v", m)
	return int(id)
}

func TestAuthFlow(t *testing.T) {
	app := setupApp(t)

	t.Run("Register", func(t *testing.T) {
		status, body := call(t, app, http.MethodPost, "/api/v1/auth/register", "", fiber.Map{
			"username": "alice", "password1": testPassword, "password2": testPassword,
		})
		assert.Equal(t, http.StatusCreated, status)
		user := body["user"].(map[string]interface{})
		assert.Equal(t, "alice", user["username"])
		assert.NotContains(t, user, "password")
	})

	t.Run("RegisterDuplicate", func(t *testing.T) {
		status, body := call(t, app, http.MethodPost, "/api/v1/auth/register", "", fiber.Map{
			"username": "alice", "password1": testPassword, "password2": testPassword,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.Contains(t, body["errors"], "username")
	})

	t.Run("RegisterWeakPassword", func(t *testing.T) {
		status, body := call(t, app, http.MethodPost, "/api/v1/auth/register", "", fiber.Map{
			"username": "bob", "password1": "12345678", "password2": "12345678",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.Contains(t, body["errors"], "password2")
	})

	t.Run("LoginWrongPassword", func(t *testing.T) {
		status, _ := call(t, app, http.MethodPost, "/api/v1/auth/login", "", fiber.Map{
			"username": "alice", "password": "wrong-password",
		})
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("LoginUnknownUser", func(t *testing.T) {
		status, _ := call(t, app, http.MethodPost, "/api/v1/auth/login", "", fiber.Map{
			"username": "nobody", "password": testPassword,
		})
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("MeAndProfileUpdate", func(t *testing.T) {
		status, body := call(t, app, http.MethodPost, "/api/v1/auth/login", "", fiber.Map{
			"username": "alice", "password": testPassword,
		})
		require.Equal(t, http.StatusOK, status)
		token := body["token"].(string)
		assert.Greater(t, body["expires_in"], float64(0))

		status, body = call(t, app, http.MethodGet, "/api/v1/me", token, nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "alice", body["username"])

		status, body = call(t, app, http.MethodPut, "/api/v1/me", token, fiber.Map{
			"username": "alice2", "current_password": testPassword,
			"new_password1": "an0ther-Secret!", "new_password2": "an0ther-Secret!",
		})
		require.Equal(t, http.StatusOK, status)
		fresh := body["token"].(string)

		status, _ = call(t, app, http.MethodGet, "/api/v1/me", token, nil)
		assert.Equal(t, http.StatusUnauthorized, status, "token issued before the password change")

		status, body = call(t, app, http.MethodGet, "/api/v1/me", fresh, nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "alice2", body["username"])
	})

	t.Run("MalformedHeader", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req.Header.Set("Authorization", "Token abc")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestBookAndReviewAPI(t *testing.T) {
	app := setupApp(t)
	alice := registerAndLogin(t, app, "alice")
	bob := registerAndLogin(t, app, "bobby")

	status, book := call(t, app, http.MethodPost, "/api/v1/books", alice, fiber.Map{
		"title": "Refactoring", "text": "Improving the design of existing code", "category": "technical",
	})
	require.Equal(t, http.StatusCreated, status)
	bookID := idOf(t, book)
	bookPath := fmt.Sprintf("/api/v1/books/%d", bookID)

	t.Run("CreateInvalid", func(t *testing.T) {
		status, body := call(t, app, http.MethodPost, "/api/v1/books", alice, fiber.Map{
			"title": "", "text": "x", "category": "poetry",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		errs := body["errors"].(map[string]interface{})
		assert.Contains(t, errs, "title")
		assert.Contains(t, errs, "category")
	})

	t.Run("CreateBadThumbnail", func(t *testing.T) {
		status, body := call(t, app, http.MethodPost, "/api/v1/books", alice, fiber.Map{
			"title": "Broken", "text": "x", "category": "other", "thumbnail": "not base64!",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.Contains(t, body["errors"], "thumbnail")
	})

	t.Run("ListAndFilter", func(t *testing.T) {
		status, body := call(t, app, http.MethodGet, "/api/v1/books?q=refactor", bob, nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, float64(1), body["total"])

		status, body = call(t, app, http.MethodGet, "/api/v1/books?cat=novel", bob, nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, float64(0), body["total"])
	})

	t.Run("UpdateByStrangerForbidden", func(t *testing.T) {
		status, _ := call(t, app, http.MethodPut, bookPath, bob, fiber.Map{
			"title": "Hijacked", "text": "x", "category": "technical",
		})
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("UpdateByOwner", func(t *testing.T) {
		status, body := call(t, app, http.MethodPut, bookPath, alice, fiber.Map{
			"title": "Refactoring (2nd ed.)", "text": "Improving the design of existing code", "category": "technical",
		})
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Refactoring (2nd ed.)", body["title"])
	})

	var reviewID int
	t.Run("Review", func(t *testing.T) {
		status, review := call(t, app, http.MethodPost, bookPath+"/reviews", bob, fiber.Map{
			"title": "Classic", "text": "Must read", "rate": 5,
		})
		require.Equal(t, http.StatusCreated, status)
		reviewID = idOf(t, review)

		status, _ = call(t, app, http.MethodPost, bookPath+"/reviews", bob, fiber.Map{
			"title": "Too high", "text": "x", "rate": 6,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, status)

		status, _ = call(t, app, http.MethodPost, "/api/v1/books/999/reviews", bob, fiber.Map{
			"title": "Ghost", "text": "x", "rate": 3,
		})
		assert.Equal(t, http.StatusNotFound, status)

		status, detail := call(t, app, http.MethodGet, bookPath, bob, nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Len(t, detail["reviews"], 1)
		assert.Equal(t, false, detail["is_owner"])
	})

	t.Run("Ranking", func(t *testing.T) {
		status, body := call(t, app, http.MethodGet, "/api/v1/ranking", alice, nil)
		assert.Equal(t, http.StatusOK, status)
		books := body["books"].([]interface{})
		require.Len(t, books, 1)
		assert.Equal(t, float64(5), books[0].(map[string]interface{})["avg_rating"])
		page := body["page"].(map[string]interface{})
		assert.Equal(t, float64(1), page["number"])
	})

	t.Run("Categories", func(t *testing.T) {
		status, body := call(t, app, http.MethodGet, "/api/v1/categories", alice, nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Len(t, body["choices"], 8)
		assert.Len(t, body["in_use"], 1)
	})

	t.Run("ReviewOwnership", func(t *testing.T) {
		reviewPath := fmt.Sprintf("/api/v1/reviews/%d", reviewID)

		status, _ := call(t, app, http.MethodPut, reviewPath, alice, fiber.Map{
			"title": "Mine now", "text": "x", "rate": 1,
		})
		assert.Equal(t, http.StatusForbidden, status)

		status, body := call(t, app, http.MethodPut, reviewPath, bob, fiber.Map{
			"title": "Classic", "text": "Still a must read", "rate": 4,
		})
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, float64(4), body["rate"])

		status, _ = call(t, app, http.MethodDelete, reviewPath, alice, nil)
		assert.Equal(t, http.StatusForbidden, status)

		status, _ = call(t, app, http.MethodDelete, reviewPath, bob, nil)
		assert.Equal(t, http.StatusNoContent, status)

		status, _ = call(t, app, http.MethodGet, reviewPath, bob, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("Delete", func(t *testing.T) {
		status, _ := call(t, app, http.MethodDelete, bookPath, bob, nil)
		assert.Equal(t, http.StatusForbidden, status)

		status, _ = call(t, app, http.MethodDelete, bookPath, alice, nil)
		assert.Equal(t, http.StatusNoContent, status)

		status, _ = call(t, app, http.MethodGet, bookPath, alice, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestHealth(t *testing.T) {
	app := setupApp(t)

	status, body := call(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "disabled", body["rabbitmq"])
}
