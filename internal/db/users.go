package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/campuslink/campuslink/internal/auth"
	"github.com/campuslink/campuslink/internal/models"
)

// UserRepo is the Mongo-backed auth.UserRepository. Updates replace the
// whole document; there is no version check, so concurrent writers race
// with last-writer-wins semantics.
type UserRepo struct {
	col *mongo.Collection
}

func NewUserRepo(store *Mongo) *UserRepo {
	return &UserRepo{col: store.Users}
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	_, err := r.col.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return auth.ErrDuplicateEmail
		}
		return fmt.Errorf("users: insert: %w", err)
	}
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepo) FindByResetTokenHash(ctx context.Context, hash string, now time.Time) (*models.User, error) {
	return r.findOne(ctx, bson.M{
		"reset_token_hash":   hash,
		"reset_token_expire": bson.M{"$gt": now},
	})
}

func (r *UserRepo) Update(ctx context.Context, user *models.User) error {
	result, err := r.col.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		return fmt.Errorf("users: replace: %w", err)
	}
	if result.MatchedCount == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, id string) error {
	result, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("users: delete: %w", err)
	}
	if result.DeletedCount == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) List(ctx context.Context, query auth.ListQuery) ([]models.User, error) {
	cursor, err := r.col.Find(ctx, BuildUserFilter(query), ListOptions(query.Page, query.Limit))
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("users: decode list: %w", err)
	}
	return users, nil
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := r.col.FindOne(ctx, filter).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("users: find: %w", err)
	}
	return &user, nil
}
