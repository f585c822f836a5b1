package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Post statuses selectable in the authoring form.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

type Post struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AuthorID      primitive.ObjectID `bson:"authorId" json:"authorId"`
	Title         string             `bson:"title" json:"title"`
	Slug          string             `bson:"slug" json:"slug"` // unique, fixed after create
	Status        string             `bson:"status" json:"status"`
	Content       string             `bson:"content" json:"content"`
	FeaturedImage string             `bson:"featuredImage" json:"featuredImage"` // asset public ID
	CreatedAt     int64              `bson:"createdAt" json:"createdAt"`
	UpdatedAt     int64              `bson:"updatedAt" json:"updatedAt"`
}

// ValidStatus reports whether s is one of the selectable statuses.
func ValidStatus(s string) bool {
	return s == StatusActive || s == StatusInactive
}
