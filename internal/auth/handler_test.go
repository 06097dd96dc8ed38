package auth

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookhub/pkg/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := setupTestDB(t)
	tokens := TokenService{
		Secret:   []byte("test-secret"),
		Issuer:   "bookhub-test",
		Duration: time.Hour,
	}
	handler := NewHandler(NewRepo(db), tokens)

	router := gin.New()
	handler.RegisterRoutes(router.Group("/auth"))
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func tokenFrom(t *testing.T, resp map[string]any) string {
	t.Helper()
	data, ok := resp["data"].(map[string]any)
	require.True(t, ok)
	token, ok := data["token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)
	return token
}

func TestRegister(t *testing.T) {
	router := setupRouter(t)

	w, resp := doJSON(t, router, http.MethodPost, "/auth/register", "", `{
		"name": "Demo User",
		"email": "User@Example.com",
		"password": "password123"
	}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, resp["success"])

	data := resp["data"].(map[string]any)
	user := data["user"].(map[string]any)
	assert.Equal(t, "Demo User", user["name"])
	// email normalized to lower case
	assert.Equal(t, "user@example.com", user["email"])
	assert.Equal(t, "user", user["role"])
	assert.NotEmpty(t, data["token"])
	assert.NotEmpty(t, data["expires_at"])
}

func TestRegister_Validation(t *testing.T) {
	router := setupRouter(t)

	tests := []struct {
		name string
		body string
		msg  string
	}{
		{
			name: "missing name",
			body: `{"email": "a@example.com", "password": "password123"}`,
			msg:  "name must be 1-60 chars",
		},
		{
			name: "bad email",
			body: `{"name": "A", "email": "not-an-email", "password": "password123"}`,
			msg:  "invalid email",
		},
		{
			name: "short password",
			body: `{"name": "A", "email": "a@example.com", "password": "short"}`,
			msg:  "password must be 8-72 chars",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, resp := doJSON(t, router, http.MethodPost, "/auth/register", "", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.msg, resp["message"])
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	router := setupRouter(t)

	body := `{"name": "Demo", "email": "user@example.com", "password": "password123"}`
	w, _ := doJSON(t, router, http.MethodPost, "/auth/register", "", body)
	require.Equal(t, http.StatusCreated, w.Code)

	w, resp := doJSON(t, router, http.MethodPost, "/auth/register", "", body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "email already exists", resp["message"])
}

func TestLogin(t *testing.T) {
	router := setupRouter(t)

	w, _ := doJSON(t, router, http.MethodPost, "/auth/register", "", `{
		"name": "Demo", "email": "user@example.com", "password": "password123"
	}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w, resp := doJSON(t, router, http.MethodPost, "/auth/login", "", `{
		"email": "user@example.com", "password": "password123"
	}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])
	assert.NotEmpty(t, tokenFrom(t, resp))
}

func TestLogin_WrongPassword(t *testing.T) {
	router := setupRouter(t)

	w, _ := doJSON(t, router, http.MethodPost, "/auth/register", "", `{
		"name": "Demo", "email": "user@example.com", "password": "password123"
	}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w, resp := doJSON(t, router, http.MethodPost, "/auth/login", "", `{
		"email": "user@example.com", "password": "wrong-password"
	}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid credentials", resp["message"])
}

func TestLogin_UnknownEmail(t *testing.T) {
	router := setupRouter(t)

	w, resp := doJSON(t, router, http.MethodPost, "/auth/login", "", `{
		"email": "nobody@example.com", "password": "password123"
	}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid credentials", resp["message"])
}

func TestMe(t *testing.T) {
	router := setupRouter(t)

	w, resp := doJSON(t, router, http.MethodPost, "/auth/register", "", `{
		"name": "Demo", "email": "user@example.com", "password": "password123"
	}`)
	require.Equal(t, http.StatusCreated, w.Code)
	token := tokenFrom(t, resp)

	w, resp = doJSON(t, router, http.MethodGet, "/auth/me", token, "")
	assert.Equal(t, http.StatusOK, w.Code)

	data := resp["data"].(map[string]any)
	assert.Equal(t, "user@example.com", data["email"])
}

func TestMe_NoToken(t *testing.T) {
	router := setupRouter(t)

	w, resp := doJSON(t, router, http.MethodGet, "/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "missing bearer token", resp["message"])
}

func TestLogout_RevokesToken(t *testing.T) {
	router := setupRouter(t)

	w, resp := doJSON(t, router, http.MethodPost, "/auth/register", "", `{
		"name": "Demo", "email": "user@example.com", "password": "password123"
	}`)
	require.Equal(t, http.StatusCreated, w.Code)
	token := tokenFrom(t, resp)

	w, _ = doJSON(t, router, http.MethodPost, "/auth/logout", token, "")
	assert.Equal(t, http.StatusOK, w.Code)

	// the old token no longer passes the token_version check
	w, resp = doJSON(t, router, http.MethodGet, "/auth/me", token, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid token", resp["message"])
}

func TestChangePassword_RevokesToken(t *testing.T) {
	router := setupRouter(t)

	w, resp := doJSON(t, router, http.MethodPost, "/auth/register", "", `{
		"name": "Demo", "email": "user@example.com", "password": "password123"
	}`)
	require.Equal(t, http.StatusCreated, w.Code)
	token := tokenFrom(t, resp)

	w, _ = doJSON(t, router, http.MethodPost, "/auth/change-password", token, `{
		"old_password": "password123", "new_password": "password456"
	}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, router, http.MethodGet, "/auth/me", token, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// new password works, old one does not
	w, _ = doJSON(t, router, http.MethodPost, "/auth/login", "", `{
		"email": "user@example.com", "password": "password456"
	}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, router, http.MethodPost, "/auth/login", "", `{
		"email": "user@example.com", "password": "password123"
	}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
