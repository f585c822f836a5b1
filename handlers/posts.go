package handlers

import (
	"context"
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"inkwell/database"
	"inkwell/models"
	"inkwell/services"
	"inkwell/slug"
)

// PostStore is the read/write surface the handlers need; *database.PostRepo
// satisfies it.
type PostStore interface {
	services.PostRepository
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	FindBySlug(ctx context.Context, s string) (*models.Post, error)
	ListByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]models.Post, error)
}

type PostHandler struct {
	svc    *services.PostService
	assets *services.AssetService
	repo   PostStore
}

func NewPostHandler(svc *services.PostService, assets *services.AssetService, repo PostStore) *PostHandler {
	return &PostHandler{svc: svc, assets: assets, repo: repo}
}

// OpenFormSession hands the client the token that keys one form's lifetime:
// it is both the slug suffix and the re-entrancy guard for submits.
func (h *PostHandler) OpenFormSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"session": slug.NewSuffix()})
}

// PreviewSlug recomputes the slug for the title field binding. Called on
// every title change; pure derivation, no storage access.
func (h *PostHandler) PreviewSlug(c *gin.Context) {
	session := c.Query("session")
	if session == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session is required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"slug": slug.Derive(c.Query("title"), session)})
}

// SessionStatus reports whether a form session has a submit in flight.
func (h *PostHandler) SessionStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"state": h.svc.SessionState(c.Param("session"))})
}

// PreviewImage resolves the render-only preview URL for an existing asset
// reference; without one it returns the placeholder.
func (h *PostHandler) PreviewImage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"url": h.assets.Preview("", c.Query("ref"))})
}

func (h *PostHandler) CreatePost(c *gin.Context) {
	authorID, ok := authorFromContext(c)
	if !ok {
		return
	}

	in, file, ok := h.bindSubmission(c)
	if !ok {
		return
	}
	if file != nil {
		defer file.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	post, err := h.svc.Submit(ctx, authorID, in, nil)
	if err != nil {
		h.renderSubmitError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Post created",
		"post":    post,
	})
}

func (h *PostHandler) UpdatePost(c *gin.Context) {
	authorID, ok := authorFromContext(c)
	if !ok {
		return
	}

	postID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	prior, err := h.repo.FindByID(ctx, postID)
	if err == database.ErrPostNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		log.Printf("UpdatePost find error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load post"})
		return
	}
	if prior.AuthorID != authorID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your post"})
		return
	}

	in, file, ok := h.bindSubmission(c)
	if !ok {
		return
	}
	if file != nil {
		defer file.Close()
	}
	// The slug is fixed after creation; edits keep the stored one.
	in.Slug = prior.Slug

	post, err := h.svc.Submit(ctx, authorID, in, prior)
	if err != nil {
		h.renderSubmitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Post updated",
		"post":    post,
	})
}

func (h *PostHandler) GetPost(c *gin.Context) {
	postID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	post, err := h.repo.FindByID(ctx, postID)
	if err == database.ErrPostNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		log.Printf("GetPost error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch post"})
		return
	}

	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) GetPostBySlug(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	post, err := h.repo.FindBySlug(ctx, c.Param("slug"))
	if err == database.ErrPostNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		log.Printf("GetPostBySlug error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch post"})
		return
	}

	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) GetMyPosts(c *gin.Context) {
	authorID, ok := authorFromContext(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	posts, err := h.repo.ListByAuthor(ctx, authorID)
	if err != nil {
		log.Printf("GetMyPosts error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	c.JSON(http.StatusOK, posts)
}

// bindSubmission reads the multipart form into a SubmitInput. The image file
// is optional here; the service decides whether its absence is acceptable.
func (h *PostHandler) bindSubmission(c *gin.Context) (services.SubmitInput, multipart.File, bool) {
	in := services.SubmitInput{
		Session: c.PostForm("session"),
		Title:   c.PostForm("title"),
		Slug:    c.PostForm("slug"),
		Status:  c.PostForm("status"),
		Content: c.PostForm("content"),
	}

	header, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil, true
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read image file"})
		return in, nil, false
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to open image file"})
		return in, nil, false
	}

	in.Image = file
	in.ImageName = header.Filename
	return in, file, true
}

func (h *PostHandler) renderSubmitError(c *gin.Context, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, services.ErrMissingAsset):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "image"})
	case errors.Is(err, services.ErrSubmitInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		// Upload and persist failures carry the backend message verbatim.
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func authorFromContext(c *gin.Context) (primitive.ObjectID, bool) {
	authorID, err := primitive.ObjectIDFromHex(c.GetString("userId"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID"})
		return primitive.NilObjectID, false
	}
	return authorID, true
}
