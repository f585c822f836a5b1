package services

import (
	"context"
	"io"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"inkwell/models"
)

// PostRepository is the upsert capability the submission runs against.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) (*models.Post, error)
	Update(ctx context.Context, id primitive.ObjectID, post *models.Post) (*models.Post, error)
}

// Notifier delivers the created/updated outcome to the author out of band.
type Notifier interface {
	PostSaved(authorID primitive.ObjectID, created bool, post *models.Post)
}

// NopNotifier discards outcomes.
type NopNotifier struct{}

func (NopNotifier) PostSaved(primitive.ObjectID, bool, *models.Post) {}

// SubmitInput carries one submission's validated-to-be form values.
type SubmitInput struct {
	Session   string // form session token; keys the re-entrancy guard
	Title     string
	Slug      string
	Status    string
	Content   string
	Image     io.Reader // nil when no new file was chosen
	ImageName string
}

// PostService orchestrates post submission: field validation, image
// resolution, explicit record assembly, and exactly one create or update
// call per attempt, with state transitions reported to the sink.
type PostService struct {
	repo     PostRepository
	assets   *AssetService
	sink     StatusSink
	notifier Notifier

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewPostService(repo PostRepository, assets *AssetService, sink StatusSink, notifier Notifier) *PostService {
	if sink == nil {
		sink = NopSink{}
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &PostService{
		repo:     repo,
		assets:   assets,
		sink:     sink,
		notifier: notifier,
		inFlight: make(map[string]bool),
	}
}

// SessionState reports whether a form session is currently submitting.
func (s *PostService) SessionState(session string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[session] {
		return StateSubmitting
	}
	return StateIdle
}

func (s *PostService) acquire(session string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[session] {
		return false
	}
	s.inFlight[session] = true
	return true
}

func (s *PostService) release(session string) {
	s.mu.Lock()
	delete(s.inFlight, session)
	s.mu.Unlock()
}

// Submit runs one all-or-nothing submission attempt. When prior is nil a new
// post is created; otherwise the existing post is updated in place, keeping
// its id, slug, and author. The asset is always fully resolved before the
// record call is issued, and exactly one of create/update fires per attempt.
func (s *PostService) Submit(ctx context.Context, authorID primitive.ObjectID, in SubmitInput, prior *models.Post) (*models.Post, error) {
	session := in.Session
	if session == "" {
		session = authorID.Hex()
	}

	if !s.acquire(session) {
		return nil, ErrSubmitInFlight
	}
	defer func() {
		s.release(session)
		s.sink.SubmissionState(authorID, session, StateIdle, "")
	}()

	s.sink.SubmissionState(authorID, session, StateSubmitting, "")

	saved, err := s.submit(ctx, authorID, in, prior)
	if err != nil {
		s.sink.SubmissionState(authorID, session, StateFailed, err.Error())
		return nil, err
	}

	if prior == nil {
		s.sink.SubmissionState(authorID, session, StateSucceeded, "Post created")
	} else {
		s.sink.SubmissionState(authorID, session, StateSucceeded, "Post updated")
	}
	s.notifier.PostSaved(authorID, prior == nil, saved)
	return saved, nil
}

func (s *PostService) submit(ctx context.Context, authorID primitive.ObjectID, in SubmitInput, prior *models.Post) (*models.Post, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	priorRef := ""
	if prior != nil {
		priorRef = prior.FeaturedImage
	}
	res, err := s.assets.Resolve(ctx, authorID, priorRef, in.Image, in.ImageName)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()

	if prior != nil {
		// Edit path: id, slug, and author never change.
		record := *prior
		record.Title = in.Title
		record.Status = in.Status
		record.Content = in.Content
		record.FeaturedImage = res.Asset.PublicID
		record.UpdatedAt = now

		saved, err := s.repo.Update(ctx, prior.ID, &record)
		if err != nil {
			return nil, &PersistError{Op: "update", Err: err}
		}
		return saved, nil
	}

	record := &models.Post{
		ID:            primitive.NewObjectID(),
		AuthorID:      authorID,
		Title:         in.Title,
		Slug:          in.Slug,
		Status:        in.Status,
		Content:       in.Content,
		FeaturedImage: res.Asset.PublicID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	saved, err := s.repo.Create(ctx, record)
	if err != nil {
		return nil, &PersistError{Op: "create", Err: err}
	}
	return saved, nil
}

func validate(in SubmitInput) error {
	switch {
	case in.Title == "":
		return &ValidationError{Field: "title"}
	case in.Slug == "":
		return &ValidationError{Field: "slug"}
	case in.Status == "":
		return &ValidationError{Field: "status"}
	case in.Content == "":
		return &ValidationError{Field: "content"}
	}
	if !models.ValidStatus(in.Status) {
		return &ValidationError{Field: "status"}
	}
	return nil
}
