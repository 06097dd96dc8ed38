package lending

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"bookhub/internal/auth"
	"bookhub/internal/catalog"
	"bookhub/internal/feed"
)

type Handler struct {
	Repo    *Repo
	Catalog *catalog.Repo
	Hub     *feed.Hub
}

func NewHandler(repo *Repo, catalogRepo *catalog.Repo, hub *feed.Hub) *Handler {
	return &Handler{Repo: repo, Catalog: catalogRepo, Hub: hub}
}

// RegisterBookRoutes mounts borrow/return under the protected books group.
func (h *Handler) RegisterBookRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/borrow", h.borrow)
	rg.POST("/:id/return", h.returnBook)
}

// RegisterUserRoutes mounts the caller-scoped loan listing.
func (h *Handler) RegisterUserRoutes(rg *gin.RouterGroup) {
	rg.GET("/me/loans", h.myLoans)
}

func (h *Handler) borrow(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized"})
		return
	}

	bookID := strings.TrimSpace(c.Param("id"))
	if bookID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "book id required"})
		return
	}

	rec, err := h.Repo.Borrow(c.Request.Context(), bookID, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, ErrBookNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "book not found"})
		case errors.Is(err, ErrNotAvailable):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "book is not available for borrowing"})
		case errors.Is(err, ErrAlreadyBorrowed):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "you have already borrowed this book"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "error borrowing book"})
		}
		return
	}

	book, err := h.Catalog.GetByID(c.Request.Context(), bookID)
	if err != nil || book == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "error fetching book"})
		return
	}

	if h.Hub != nil {
		ev := feed.LendingEvent{
			Type:      feed.EventBookBorrowed,
			BookID:    bookID,
			BookTitle: book.Title,
			UserID:    claims.UserID,
			DueAt:     &rec.DueAt,
			At:        time.Now().UTC(),
		}
		go h.Hub.BroadcastJSON(ev)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "book borrowed successfully", "data": book})
}

func (h *Handler) returnBook(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized"})
		return
	}

	bookID := strings.TrimSpace(c.Param("id"))
	if bookID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "book id required"})
		return
	}

	if err := h.Repo.Return(c.Request.Context(), bookID, claims.UserID); err != nil {
		switch {
		case errors.Is(err, ErrBookNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "book not found"})
		case errors.Is(err, ErrAlreadyAvailable):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "book is already available"})
		case errors.Is(err, ErrNotBorrower):
			c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "you can only return books you borrowed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "error returning book"})
		}
		return
	}

	book, err := h.Catalog.GetByID(c.Request.Context(), bookID)
	if err != nil || book == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "error fetching book"})
		return
	}

	if h.Hub != nil {
		ev := feed.LendingEvent{
			Type:      feed.EventBookReturned,
			BookID:    bookID,
			BookTitle: book.Title,
			UserID:    claims.UserID,
			At:        time.Now().UTC(),
		}
		go h.Hub.BroadcastJSON(ev)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "book returned successfully", "data": book})
}

func (h *Handler) myLoans(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized"})
		return
	}

	loans, err := h.Repo.ListActiveByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "error fetching loans"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(loans), "data": loans})
}
