// Package storage abstracts the remote media store holding featured images.
package storage

import (
	"context"
	"io"
)

// PlaceholderURL is shown when a form has no image selected yet.
const PlaceholderURL = "/assets/placeholder.png"

// Asset identifies one stored image.
type Asset struct {
	PublicID string `json:"publicId"`
	URL      string `json:"url"`
}

// Store is the capability the asset lifecycle runs against. Implementations
// make remote calls; each method may fail independently.
type Store interface {
	Upload(ctx context.Context, r io.Reader, filename string) (Asset, error)
	Delete(ctx context.Context, publicID string) error
	// PreviewURL derives a render-only URL for an existing asset. It has no
	// failure mode: unknown refs still map to a well-formed URL.
	PreviewURL(publicID string) string
}
