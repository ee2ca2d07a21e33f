package db

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/campuslink/campuslink/internal/account"
	"github.com/campuslink/campuslink/internal/auth"
	"github.com/campuslink/campuslink/internal/models"
)

// MemStore is a map-backed store for tests and local development. It
// implements the same repository contracts as the Mongo layer, including
// the email uniqueness rule (exact, case-sensitive as stored).
type MemStore struct {
	Users *MemUserRepo
	Posts *MemPostRepo
}

func NewMemStore() *MemStore {
	return &MemStore{
		Users: &MemUserRepo{byID: make(map[string]models.User)},
		Posts: &MemPostRepo{byID: make(map[string]models.Post)},
	}
}

type MemUserRepo struct {
	mu   sync.RWMutex
	byID map[string]models.User
}

func (r *MemUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if existing.Email == user.Email {
			return auth.ErrDuplicateEmail
		}
	}

	r.byID[user.ID] = *user
	return nil
}

func (r *MemUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return &user, nil
}

func (r *MemUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.byID {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (r *MemUserRepo) FindByResetTokenHash(_ context.Context, hash string, now time.Time) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.byID {
		if user.ResetTokenHash == hash && user.ResetTokenExpire != nil && user.ResetTokenExpire.After(now) {
			u := user
			return &u, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (r *MemUserRepo) Update(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[user.ID]; !ok {
		return auth.ErrUserNotFound
	}
	r.byID[user.ID] = *user
	return nil
}

func (r *MemUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return auth.ErrUserNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *MemUserRepo) List(_ context.Context, query auth.ListQuery) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]models.User, 0, len(r.byID))
	for _, user := range r.byID {
		if matchesQuery(user, query) {
			users = append(users, user)
		}
	}

	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })

	if query.Limit > 0 {
		start := int64(0)
		if query.Page > 1 {
			start = (query.Page - 1) * query.Limit
		}
		if start >= int64(len(users)) {
			return []models.User{}, nil
		}
		end := start + query.Limit
		if end > int64(len(users)) {
			end = int64(len(users))
		}
		users = users[start:end]
	}

	return users, nil
}

func matchesQuery(user models.User, query auth.ListQuery) bool {
	if query.Keyword != "" && !strings.Contains(strings.ToLower(user.Name), strings.ToLower(query.Keyword)) {
		return false
	}

	for field, want := range query.Filters {
		if want == "" {
			continue
		}
		var got string
		switch field {
		case "name":
			got = user.Name
		case "email":
			got = user.Email
		case "course":
			got = user.Course
		case "branch":
			got = user.Branch
		case "year":
			got = user.Year
		case "keyword", "page", "limit":
			continue
		default:
			return false
		}
		if got != want {
			return false
		}
	}

	return true
}

type MemPostRepo struct {
	mu   sync.RWMutex
	byID map[string]models.Post
}

func (r *MemPostRepo) FindByID(_ context.Context, id string) (*models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	post, ok := r.byID[id]
	if !ok {
		return nil, account.ErrPostNotFound
	}
	return &post, nil
}

func (r *MemPostRepo) FindByIDs(_ context.Context, ids []string) ([]models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	posts := make([]models.Post, 0, len(ids))
	for _, id := range ids {
		if post, ok := r.byID[id]; ok {
			posts = append(posts, post)
		}
	}
	return posts, nil
}

func (r *MemPostRepo) FindByOwner(_ context.Context, ownerID string) ([]models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var posts []models.Post
	for _, post := range r.byID {
		if post.OwnerID == ownerID {
			posts = append(posts, post)
		}
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
	return posts, nil
}

func (r *MemPostRepo) FindAll(_ context.Context) ([]models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	posts := make([]models.Post, 0, len(r.byID))
	for _, post := range r.byID {
		posts = append(posts, post)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].ID < posts[j].ID })
	return posts, nil
}

func (r *MemPostRepo) Save(_ context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[post.ID] = *post
	return nil
}

func (r *MemPostRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byID, id)
	return nil
}
