package lending

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookhub/internal/auth"
	"bookhub/internal/catalog"
	"bookhub/pkg/models"
)

func setupRouter(t *testing.T) (*gin.Engine, *sql.DB, auth.TokenService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := setupTestDB(t)

	tokens := auth.TokenService{
		Secret:   []byte("test-secret"),
		Issuer:   "bookhub-test",
		Duration: time.Hour,
	}
	authRepo := auth.NewRepo(db)

	handler := NewHandler(NewRepo(db), catalog.NewRepo(db), nil)

	router := gin.New()
	books := router.Group("/books")
	books.Use(auth.AuthMiddleware(tokens, authRepo))
	handler.RegisterBookRoutes(books)

	users := router.Group("/users")
	users.Use(auth.AuthMiddleware(tokens, authRepo))
	handler.RegisterUserRoutes(users)

	return router, db, tokens
}

func signFor(t *testing.T, tokens auth.TokenService, id, name string) string {
	t.Helper()
	token, _, err := tokens.Sign(&models.User{
		ID:    id,
		Name:  name,
		Email: id + "@example.com",
		Role:  models.RoleUser,
	})
	require.NoError(t, err)
	return token
}

func doAuthed(t *testing.T, router *gin.Engine, method, path, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestBorrowEndpoint(t *testing.T) {
	router, db, tokens := setupRouter(t)

	createTestUser(t, db, "u1", "Reader One")
	createTestBook(t, db, "b1", "1984", "9780451524935")
	token := signFor(t, tokens, "u1", "Reader One")

	w, resp := doAuthed(t, router, http.MethodPost, "/books/b1/borrow", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "book borrowed successfully", resp["message"])

	book, ok := resp["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, book["available"])
	assert.Equal(t, "u1", book["borrowed_by"])
	assert.NotEmpty(t, book["due_at"])
}

func TestBorrowEndpoint_Unauthorized(t *testing.T) {
	router, db, _ := setupRouter(t)

	createTestBook(t, db, "b1", "1984", "9780451524935")

	w, resp := doAuthed(t, router, http.MethodPost, "/books/b1/borrow", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, false, resp["success"])
}

func TestBorrowEndpoint_Conflicts(t *testing.T) {
	router, db, tokens := setupRouter(t)

	createTestUser(t, db, "u1", "Reader One")
	createTestUser(t, db, "u2", "Reader Two")
	createTestBook(t, db, "b1", "Dune", "9780441172719")
	token1 := signFor(t, tokens, "u1", "Reader One")
	token2 := signFor(t, tokens, "u2", "Reader Two")

	w, _ := doAuthed(t, router, http.MethodPost, "/books/b1/borrow", token1)
	require.Equal(t, http.StatusOK, w.Code)

	// same user again
	w, resp := doAuthed(t, router, http.MethodPost, "/books/b1/borrow", token1)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "you have already borrowed this book", resp["message"])

	// different user
	w, resp = doAuthed(t, router, http.MethodPost, "/books/b1/borrow", token2)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "book is not available for borrowing", resp["message"])

	// missing book
	w, resp = doAuthed(t, router, http.MethodPost, "/books/missing/borrow", token1)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "book not found", resp["message"])
}

func TestReturnEndpoint(t *testing.T) {
	router, db, tokens := setupRouter(t)

	createTestUser(t, db, "u1", "Reader One")
	createTestBook(t, db, "b1", "1984", "9780451524935")
	token := signFor(t, tokens, "u1", "Reader One")

	w, _ := doAuthed(t, router, http.MethodPost, "/books/b1/borrow", token)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := doAuthed(t, router, http.MethodPost, "/books/b1/return", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "book returned successfully", resp["message"])

	book, ok := resp["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, book["available"])
}

func TestReturnEndpoint_NotBorrower(t *testing.T) {
	router, db, tokens := setupRouter(t)

	createTestUser(t, db, "u1", "Reader One")
	createTestUser(t, db, "u2", "Reader Two")
	createTestBook(t, db, "b1", "Dune", "9780441172719")
	token1 := signFor(t, tokens, "u1", "Reader One")
	token2 := signFor(t, tokens, "u2", "Reader Two")

	w, _ := doAuthed(t, router, http.MethodPost, "/books/b1/borrow", token1)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := doAuthed(t, router, http.MethodPost, "/books/b1/return", token2)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "you can only return books you borrowed", resp["message"])
}

func TestReturnEndpoint_AlreadyAvailable(t *testing.T) {
	router, db, tokens := setupRouter(t)

	createTestUser(t, db, "u1", "Reader One")
	createTestBook(t, db, "b1", "Dune", "9780441172719")
	token := signFor(t, tokens, "u1", "Reader One")

	w, resp := doAuthed(t, router, http.MethodPost, "/books/b1/return", token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "book is already available", resp["message"])
}

func TestMyLoansEndpoint(t *testing.T) {
	router, db, tokens := setupRouter(t)

	createTestUser(t, db, "u1", "Reader One")
	createTestBook(t, db, "b1", "Dune", "9780441172719")
	createTestBook(t, db, "b2", "1984", "9780451524935")
	token := signFor(t, tokens, "u1", "Reader One")

	w, resp := doAuthed(t, router, http.MethodGet, "/users/me/loans", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), resp["count"])

	w, _ = doAuthed(t, router, http.MethodPost, "/books/b1/borrow", token)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = doAuthed(t, router, http.MethodPost, "/books/b2/borrow", token)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = doAuthed(t, router, http.MethodGet, "/users/me/loans", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), resp["count"])
}
