package reviews

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"bookhub/internal/auth"
	"bookhub/internal/feed"
)

const maxCommentLen = 300

type Handler struct {
	Repo *Repo
	Hub  *feed.Hub
}

func NewHandler(repo *Repo, hub *feed.Hub) *Handler {
	return &Handler{Repo: repo, Hub: hub}
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/reviews", h.listByBook)
}

func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/review", h.create)
}

type createReq struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h *Handler) create(c *gin.Context) {
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

	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid json"})
		return
	}

	comment := strings.TrimSpace(req.Comment)
	if req.Rating == 0 || comment == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "please provide both rating and comment"})
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "rating must be between 1 and 5"})
		return
	}
	if utf8.RuneCountInString(comment) > maxCommentLen {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "comment cannot be more than 300 characters"})
		return
	}

	review, err := h.Repo.Create(c.Request.Context(), bookID, claims.UserID, req.Rating, comment)
	if err != nil {
		switch {
		case errors.Is(err, ErrBookNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "book not found"})
		case errors.Is(err, ErrDuplicateReview):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "you have already reviewed this book"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "error adding review"})
		}
		return
	}

	if h.Hub != nil {
		ev := feed.LendingEvent{
			Type:   feed.EventReviewAdded,
			BookID: bookID,
			UserID: claims.UserID,
			Rating: req.Rating,
			At:     time.Now().UTC(),
		}
		go h.Hub.BroadcastJSON(ev)
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "review added successfully", "data": review})
}

func (h *Handler) listByBook(c *gin.Context) {
	bookID := strings.TrimSpace(c.Param("id"))
	if bookID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "book id required"})
		return
	}

	reviews, err := h.Repo.ListByBook(c.Request.Context(), bookID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "error fetching reviews"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(reviews), "data": reviews})
}
