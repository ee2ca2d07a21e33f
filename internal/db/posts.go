package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/campuslink/campuslink/internal/account"
	"github.com/campuslink/campuslink/internal/models"
)

// PostRepo is the Mongo-backed post collaborator. The identity core never
// assumes joins; callers that need hydrated posts fetch them here
// explicitly.
type PostRepo struct {
	col *mongo.Collection
}

func NewPostRepo(store *Mongo) *PostRepo {
	return &PostRepo{col: store.Posts}
}

func (r *PostRepo) FindByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, account.ErrPostNotFound
		}
		return nil, fmt.Errorf("posts: find: %w", err)
	}
	return &post, nil
}

// FindByIDs returns the posts that still exist, in the order requested.
// Dangling ids are skipped rather than reported.
func (r *PostRepo) FindByIDs(ctx context.Context, ids []string) ([]models.Post, error) {
	if len(ids) == 0 {
		return []models.Post{}, nil
	}

	cursor, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("posts: find by ids: %w", err)
	}
	defer cursor.Close(ctx)

	var fetched []models.Post
	if err := cursor.All(ctx, &fetched); err != nil {
		return nil, fmt.Errorf("posts: decode: %w", err)
	}

	byID := make(map[string]models.Post, len(fetched))
	for _, post := range fetched {
		byID[post.ID] = post
	}

	ordered := make([]models.Post, 0, len(fetched))
	for _, id := range ids {
		if post, ok := byID[id]; ok {
			ordered = append(ordered, post)
		}
	}
	return ordered, nil
}

func (r *PostRepo) FindByOwner(ctx context.Context, ownerID string) ([]models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.col.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("posts: find by owner: %w", err)
	}
	defer cursor.Close(ctx)

	var posts []models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("posts: decode: %w", err)
	}
	return posts, nil
}

func (r *PostRepo) FindAll(ctx context.Context) ([]models.Post, error) {
	cursor, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("posts: find all: %w", err)
	}
	defer cursor.Close(ctx)

	var posts []models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("posts: decode: %w", err)
	}
	return posts, nil
}

// Save replaces the whole document, creating it if absent. Last writer
// wins; there is no version check.
func (r *PostRepo) Save(ctx context.Context, post *models.Post) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := r.col.ReplaceOne(ctx, bson.M{"_id": post.ID}, post, opts); err != nil {
		return fmt.Errorf("posts: save: %w", err)
	}
	return nil
}

func (r *PostRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.col.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("posts: delete: %w", err)
	}
	return nil
}
