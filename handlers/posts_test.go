package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"inkwell/database"
	"inkwell/models"
	"inkwell/services"
	"inkwell/storage"
)

type stubStore struct {
	uploads int
	deletes int
}

func (s *stubStore) Upload(_ context.Context, _ io.Reader, _ string) (storage.Asset, error) {
	s.uploads++
	return storage.Asset{PublicID: "asset-new", URL: "https://cdn.test/asset-new"}, nil
}

func (s *stubStore) Delete(_ context.Context, _ string) error {
	s.deletes++
	return nil
}

func (s *stubStore) PreviewURL(publicID string) string {
	if publicID == "" {
		return storage.PlaceholderURL
	}
	return "https://cdn.test/" + publicID
}

type stubRepo struct {
	posts map[primitive.ObjectID]*models.Post
}

func newStubRepo() *stubRepo {
	return &stubRepo{posts: make(map[primitive.ObjectID]*models.Post)}
}

func (r *stubRepo) Create(_ context.Context, p *models.Post) (*models.Post, error) {
	r.posts[p.ID] = p
	return p, nil
}

func (r *stubRepo) Update(_ context.Context, id primitive.ObjectID, p *models.Post) (*models.Post, error) {
	if _, ok := r.posts[id]; !ok {
		return nil, database.ErrPostNotFound
	}
	r.posts[id] = p
	return p, nil
}

func (r *stubRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Post, error) {
	p, ok := r.posts[id]
	if !ok {
		return nil, database.ErrPostNotFound
	}
	return p, nil
}

func (r *stubRepo) FindBySlug(_ context.Context, s string) (*models.Post, error) {
	for _, p := range r.posts {
		if p.Slug == s {
			return p, nil
		}
	}
	return nil, database.ErrPostNotFound
}

func (r *stubRepo) ListByAuthor(_ context.Context, authorID primitive.ObjectID) ([]models.Post, error) {
	var out []models.Post
	for _, p := range r.posts {
		if p.AuthorID == authorID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func newTestRouter(t *testing.T, store storage.Store, repo *stubRepo, authorID primitive.ObjectID) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	assets := services.NewAssetService(store, nil)
	svc := services.NewPostService(repo, assets, nil, nil)
	h := NewPostHandler(svc, assets, repo)

	r := gin.New()
	auth := func(c *gin.Context) { c.Set("userId", authorID.Hex()) }
	r.POST("/api/posts/session", auth, h.OpenFormSession)
	r.GET("/api/posts/slug", auth, h.PreviewSlug)
	r.GET("/api/posts/preview", auth, h.PreviewImage)
	r.POST("/api/posts", auth, h.CreatePost)
	r.PUT("/api/posts/:id", auth, h.UpdatePost)
	r.GET("/api/posts/:id", auth, h.GetPost)
	r.GET("/api/my/posts", auth, h.GetMyPosts)
	return r
}

type formField struct{ key, value string }

func multipartBody(t *testing.T, fields []formField, withImage bool) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, f := range fields {
		require.NoError(t, w.WriteField(f.key, f.value))
	}
	if withImage {
		part, err := w.CreateFormFile("image", "cover.png")
		require.NoError(t, err)
		_, err = part.Write([]byte("png-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func postFields(session string) []formField {
	return []formField{
		{"session", session},
		{"title", "Hello, World!"},
		{"slug", "hello-world-" + session},
		{"status", models.StatusActive},
		{"content", "first post"},
	}
}

func TestOpenFormSession(t *testing.T) {
	r := newTestRouter(t, &stubStore{}, newStubRepo(), primitive.NewObjectID())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/posts/session", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp["session"], 8)
}

func TestPreviewSlug(t *testing.T) {
	r := newTestRouter(t, &stubStore{}, newStubRepo(), primitive.NewObjectID())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/posts/slug?title=Hello,%20World!&session=ab12", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "hello-world-ab12", resp["slug"])
}

func TestPreviewSlugRequiresSession(t *testing.T) {
	r := newTestRouter(t, &stubStore{}, newStubRepo(), primitive.NewObjectID())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/posts/slug?title=Hello", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPreviewImage(t *testing.T) {
	r := newTestRouter(t, &stubStore{}, newStubRepo(), primitive.NewObjectID())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/posts/preview?ref=asset-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://cdn.test/asset-1")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/posts/preview", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), storage.PlaceholderURL)
}

func TestCreatePost(t *testing.T) {
	store := &stubStore{}
	repo := newStubRepo()
	author := primitive.NewObjectID()
	r := newTestRouter(t, store, repo, author)

	body, contentType := multipartBody(t, postFields("ab12"), true)
	req := httptest.NewRequest(http.MethodPost, "/api/posts", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 1, store.uploads)
	assert.Len(t, repo.posts, 1)
	for _, p := range repo.posts {
		assert.Equal(t, author, p.AuthorID)
		assert.Equal(t, "asset-new", p.FeaturedImage)
	}
}

func TestCreatePostMissingField(t *testing.T) {
	store := &stubStore{}
	repo := newStubRepo()
	r := newTestRouter(t, store, repo, primitive.NewObjectID())

	fields := []formField{
		{"session", "ab12"},
		{"title", "Hello"},
		{"slug", "hello-ab12"},
		{"status", models.StatusActive},
		// content omitted
	}
	body, contentType := multipartBody(t, fields, true)
	req := httptest.NewRequest(http.MethodPost, "/api/posts", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"content"`)
	assert.Zero(t, store.uploads, "validation failures must not reach the asset store")
	assert.Empty(t, repo.posts)
}

func TestCreatePostWithoutImage(t *testing.T) {
	store := &stubStore{}
	repo := newStubRepo()
	r := newTestRouter(t, store, repo, primitive.NewObjectID())

	body, contentType := multipartBody(t, postFields("ab12"), false)
	req := httptest.NewRequest(http.MethodPost, "/api/posts", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"image"`)
	assert.Zero(t, store.uploads)
	assert.Empty(t, repo.posts)
}

func TestUpdatePostKeepsSlugAndAsset(t *testing.T) {
	store := &stubStore{}
	repo := newStubRepo()
	author := primitive.NewObjectID()
	r := newTestRouter(t, store, repo, author)

	prior := &models.Post{
		ID:            primitive.NewObjectID(),
		AuthorID:      author,
		Title:         "Old",
		Slug:          "old-ab12",
		Status:        models.StatusActive,
		Content:       "old",
		FeaturedImage: "asset-old",
	}
	repo.posts[prior.ID] = prior

	body, contentType := multipartBody(t, postFields("ab12"), false)
	req := httptest.NewRequest(http.MethodPut, "/api/posts/"+prior.ID.Hex(), body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := repo.posts[prior.ID]
	assert.Equal(t, "old-ab12", updated.Slug, "slug is immutable after creation")
	assert.Equal(t, "asset-old", updated.FeaturedImage)
	assert.Equal(t, "Hello, World!", updated.Title)
	assert.Zero(t, store.uploads)
	assert.Zero(t, store.deletes)
}

func TestUpdatePostReplacesImage(t *testing.T) {
	store := &stubStore{}
	repo := newStubRepo()
	author := primitive.NewObjectID()
	r := newTestRouter(t, store, repo, author)

	prior := &models.Post{
		ID:            primitive.NewObjectID(),
		AuthorID:      author,
		Slug:          "old-ab12",
		Status:        models.StatusActive,
		FeaturedImage: "asset-old",
	}
	repo.posts[prior.ID] = prior

	body, contentType := multipartBody(t, postFields("ab12"), true)
	req := httptest.NewRequest(http.MethodPut, "/api/posts/"+prior.ID.Hex(), body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, store.uploads)
	assert.Equal(t, 1, store.deletes)
	assert.Equal(t, "asset-new", repo.posts[prior.ID].FeaturedImage)
}

func TestUpdatePostForeignAuthor(t *testing.T) {
	store := &stubStore{}
	repo := newStubRepo()
	r := newTestRouter(t, store, repo, primitive.NewObjectID())

	prior := &models.Post{
		ID:       primitive.NewObjectID(),
		AuthorID: primitive.NewObjectID(), // someone else
		Slug:     "old-ab12",
	}
	repo.posts[prior.ID] = prior

	body, contentType := multipartBody(t, postFields("ab12"), false)
	req := httptest.NewRequest(http.MethodPut, "/api/posts/"+prior.ID.Hex(), body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdatePostNotFound(t *testing.T) {
	r := newTestRouter(t, &stubStore{}, newStubRepo(), primitive.NewObjectID())

	body, contentType := multipartBody(t, postFields("ab12"), false)
	req := httptest.NewRequest(http.MethodPut, "/api/posts/"+primitive.NewObjectID().Hex(), body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
