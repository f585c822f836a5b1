package database

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"inkwell/models"
)

var ErrPostNotFound = errors.New("post not found")

// PostRepo implements the post create/update capability on MongoDB.
type PostRepo struct {
	coll *mongo.Collection
}

func NewPostRepo(coll *mongo.Collection) *PostRepo {
	return &PostRepo{coll: coll}
}

func (r *PostRepo) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	if _, err := r.coll.InsertOne(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Update writes only the fields the form may change; id, slug, authorId, and
// createdAt are never touched.
func (r *PostRepo) Update(ctx context.Context, id primitive.ObjectID, post *models.Post) (*models.Post, error) {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"title":         post.Title,
		"status":        post.Status,
		"content":       post.Content,
		"featuredImage": post.FeaturedImage,
		"updatedAt":     post.UpdatedAt,
	}})
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (r *PostRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var post models.Post
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if err == mongo.ErrNoDocuments {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *PostRepo) FindBySlug(ctx context.Context, slug string) (*models.Post, error) {
	var post models.Post
	err := r.coll.FindOne(ctx, bson.M{"slug": slug}).Decode(&post)
	if err == mongo.ErrNoDocuments {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *PostRepo) ListByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"authorId": authorID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var posts []models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}
