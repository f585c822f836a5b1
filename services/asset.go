package services

import (
	"context"
	"io"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"inkwell/storage"
)

// Resolution is the outcome of settling which image a post will reference.
type Resolution struct {
	Asset        storage.Asset
	DeletedPrior bool
}

// AssetService coordinates the featured image across create and edit flows:
// uploading a newly chosen file, deleting the asset it supersedes, and
// deriving preview URLs.
type AssetService struct {
	store storage.Store
	sink  StatusSink
}

func NewAssetService(store storage.Store, sink StatusSink) *AssetService {
	if sink == nil {
		sink = NopSink{}
	}
	return &AssetService{store: store, sink: sink}
}

// Resolve settles the final image reference for a submission. With no new
// file an existing reference is reused as-is; a new file is uploaded first
// and only then is the superseded asset deleted, so a failed upload never
// leaves the post pointing at nothing. A failed deletion does not fail the
// submission; it is logged and pushed to the telemetry channel.
func (s *AssetService) Resolve(ctx context.Context, authorID primitive.ObjectID, prior string, file io.Reader, filename string) (Resolution, error) {
	if file == nil {
		if prior != "" {
			return Resolution{Asset: storage.Asset{PublicID: prior, URL: s.store.PreviewURL(prior)}}, nil
		}
		return Resolution{}, ErrMissingAsset
	}

	uploaded, err := s.store.Upload(ctx, file, filename)
	if err != nil {
		return Resolution{}, &UploadError{Err: err}
	}

	res := Resolution{Asset: uploaded}
	if prior != "" {
		if err := s.store.Delete(ctx, prior); err != nil {
			derr := &DeletionError{PublicID: prior, Err: err}
			log.Printf("asset cleanup failed: %v", derr)
			s.sink.CleanupFailure(authorID, prior, derr)
		} else {
			res.DeletedPrior = true
		}
	}
	return res, nil
}

// Preview resolves the render-only image URL for the form: a locally chosen
// file wins, then the existing asset, then the placeholder. Nothing here
// touches the committed record.
func (s *AssetService) Preview(localURL, prior string) string {
	if localURL != "" {
		return localURL
	}
	if prior != "" {
		return s.store.PreviewURL(prior)
	}
	return storage.PlaceholderURL
}
