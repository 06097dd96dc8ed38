package catalog

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bookhub/internal/reviews"
	"bookhub/pkg/models"
)

type Handler struct {
	Repo    *Repo
	Reviews *reviews.Repo
}

func NewHandler(repo *Repo, reviewsRepo *reviews.Repo) *Handler {
	return &Handler{Repo: repo, Reviews: reviewsRepo}
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)
	rg.GET("/:id", h.getByID)
}

// RegisterAdminRoutes expects a group already guarded by auth + admin
// middleware.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.create)
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		Search: c.Query("search"),
		Genre:  c.Query("genre"),
	}

	if raw := strings.TrimSpace(c.Query("available")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "available must be true or false"})
			return
		}
		q.Available = &v
	}

	books, err := h.Repo.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "error fetching books"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(books), "data": books})
}

func (h *Handler) getByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	book, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "error fetching book"})
		return
	}
	if book == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "book not found"})
		return
	}

	bookReviews, err := h.Reviews.ListByBook(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "error fetching book"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"book":    book,
			"reviews": bookReviews,
		},
	})
}

type createReq struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	ISBN          string `json:"isbn"`
	Description   string `json:"description"`
	Genre         string `json:"genre"`
	PublishedYear int    `json:"published_year"`
	CoverURL      string `json:"cover_url"`
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid json"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Author = strings.TrimSpace(req.Author)
	req.ISBN = strings.TrimSpace(req.ISBN)
	req.Description = strings.TrimSpace(req.Description)
	req.Genre = strings.TrimSpace(req.Genre)

	if msg := validateCreate(req); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msg})
		return
	}

	book, err := h.Repo.Create(c.Request.Context(), models.Book{
		ID:            uuid.NewString(),
		Title:         req.Title,
		Author:        req.Author,
		ISBN:          req.ISBN,
		Description:   req.Description,
		Genre:         req.Genre,
		PublishedYear: req.PublishedYear,
		CoverURL:      req.CoverURL,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateISBN) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "book with this ISBN already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "error adding book"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": book})
}

func validateCreate(req createReq) string {
	switch {
	case req.Title == "":
		return "please provide a book title"
	case len(req.Title) > 100:
		return "title cannot be more than 100 characters"
	case req.Author == "":
		return "please provide an author name"
	case len(req.Author) > 50:
		return "author name cannot be more than 50 characters"
	case req.ISBN == "":
		return "please provide an ISBN"
	case req.Description == "":
		return "please provide a description"
	case len(req.Description) > 500:
		return "description cannot be more than 500 characters"
	case req.Genre == "":
		return "please provide a genre"
	case req.PublishedYear == 0:
		return "please provide the published year"
	}
	return ""
}
