package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookhub/internal/reviews"
	"bookhub/pkg/models"
)

func setupRouter(t *testing.T) (*gin.Engine, *Repo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := setupTestDB(t)
	repo := NewRepo(db)
	handler := NewHandler(repo, reviews.NewRepo(db))

	router := gin.New()
	books := router.Group("/books")
	handler.RegisterPublicRoutes(books)
	// admin guard is exercised in the auth package tests
	handler.RegisterAdminRoutes(books)

	return router, repo
}

func doRequest(t *testing.T, router *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestListBooks(t *testing.T) {
	router, repo := setupRouter(t)

	mustCreate(t, repo, models.Book{ID: "b1", Title: "Dune", Author: "Frank Herbert", ISBN: "1", Genre: "Science Fiction"})
	mustCreate(t, repo, models.Book{ID: "b2", Title: "1984", Author: "George Orwell", ISBN: "2", Genre: "Dystopian"})

	w, resp := doRequest(t, router, http.MethodGet, "/books", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(2), resp["count"])

	w, resp = doRequest(t, router, http.MethodGet, "/books?search=orwell", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), resp["count"])
}

func TestListBooks_BadAvailableFilter(t *testing.T) {
	router, _ := setupRouter(t)

	w, resp := doRequest(t, router, http.MethodGet, "/books?available=maybe", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "available must be true or false", resp["message"])
}

func TestGetBook(t *testing.T) {
	router, repo := setupRouter(t)

	mustCreate(t, repo, models.Book{ID: "b1", Title: "Dune", Author: "Frank Herbert", ISBN: "1"})

	w, resp := doRequest(t, router, http.MethodGet, "/books/b1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])

	data, ok := resp["data"].(map[string]any)
	require.True(t, ok)
	book, ok := data["book"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Dune", book["title"])
	assert.NotNil(t, data["reviews"])
}

func TestGetBook_NotFound(t *testing.T) {
	router, _ := setupRouter(t)

	w, resp := doRequest(t, router, http.MethodGet, "/books/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "book not found", resp["message"])
}

func TestCreateBook(t *testing.T) {
	router, _ := setupRouter(t)

	body := `{
		"title": "Dune",
		"author": "Frank Herbert",
		"isbn": "9780441172719",
		"description": "Desert planet politics",
		"genre": "Science Fiction",
		"published_year": 1965
	}`
	w, resp := doRequest(t, router, http.MethodPost, "/books", body)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, resp["success"])

	book, ok := resp["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Dune", book["title"])
	assert.Equal(t, true, book["available"])
}

func TestCreateBook_Validation(t *testing.T) {
	router, _ := setupRouter(t)

	tests := []struct {
		name string
		body string
		msg  string
	}{
		{
			name: "missing title",
			body: `{"author": "A", "isbn": "1", "description": "d", "genre": "g", "published_year": 2000}`,
			msg:  "please provide a book title",
		},
		{
			name: "title too long",
			body: `{"title": "` + strings.Repeat("x", 101) + `", "author": "A", "isbn": "1", "description": "d", "genre": "g", "published_year": 2000}`,
			msg:  "title cannot be more than 100 characters",
		},
		{
			name: "missing author",
			body: `{"title": "T", "isbn": "1", "description": "d", "genre": "g", "published_year": 2000}`,
			msg:  "please provide an author name",
		},
		{
			name: "missing isbn",
			body: `{"title": "T", "author": "A", "description": "d", "genre": "g", "published_year": 2000}`,
			msg:  "please provide an ISBN",
		},
		{
			name: "description too long",
			body: `{"title": "T", "author": "A", "isbn": "1", "description": "` + strings.Repeat("x", 501) + `", "genre": "g", "published_year": 2000}`,
			msg:  "description cannot be more than 500 characters",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, resp := doRequest(t, router, http.MethodPost, "/books", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, false, resp["success"])
			assert.Equal(t, tc.msg, resp["message"])
		})
	}
}

func TestCreateBook_DuplicateISBN(t *testing.T) {
	router, _ := setupRouter(t)

	body := `{
		"title": "Dune",
		"author": "Frank Herbert",
		"isbn": "9780441172719",
		"description": "Desert planet politics",
		"genre": "Science Fiction",
		"published_year": 1965
	}`
	w, _ := doRequest(t, router, http.MethodPost, "/books", body)
	require.Equal(t, http.StatusCreated, w.Code)

	w, resp := doRequest(t, router, http.MethodPost, "/books", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "book with this ISBN already exists", resp["message"])
}
