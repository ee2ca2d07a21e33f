package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/campuslink/campuslink/internal/models"
)

// UserRepository is the persistence contract the auth layer needs.
// Implementations report misses as ErrUserNotFound and unique-email
// violations as ErrDuplicateEmail.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByResetTokenHash(ctx context.Context, hash string, now time.Time) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, query ListQuery) ([]models.User, error)
}

// ListQuery narrows a user listing: an optional case-insensitive keyword
// match on the name plus arbitrary field equality filters.
type ListQuery struct {
	Keyword string
	Filters map[string]string
	Page    int64
	Limit   int64
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// ProfileUpdate carries the optional profile fields; nil pointers leave the
// stored value untouched. Email reassignment is not re-checked for
// uniqueness here (see DESIGN.md).
type ProfileUpdate struct {
	Name   *string
	Email  *string
	Course *string
	Branch *string
	Year   *string
}

// Service owns user records and password hashing. Emails are compared
// exactly as stored.
type Service struct {
	users UserRepository
}

func NewService(users UserRepository) *Service {
	return &Service{users: users}
}

func (s *Service) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	if name == "" || email == "" || input.Password == "" {
		return nil, ErrMissingField
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Posts:        []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Authenticate resolves the user for a login attempt. A missing account and
// a wrong password are reported as distinct failures.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrMissingField
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if !s.VerifyPassword(user, password) {
		return nil, ErrIncorrectCredential
	}

	return user, nil
}

// VerifyPassword compares the candidate against the stored hash. bcrypt's
// comparison is constant-time with respect to the hash content; the
// plaintext is never stored or logged.
func (s *Service) VerifyPassword(user *models.User, candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(candidate)) == nil
}

func (s *Service) UpdatePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return ErrMissingField
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if !s.VerifyPassword(user, oldPassword) {
		return ErrIncorrectCredential
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	user.PasswordHash = hash
	user.UpdatedAt = time.Now().UTC()

	return s.users.Update(ctx, user)
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		user.Name = *update.Name
	}
	if update.Email != nil {
		user.Email = *update.Email
	}
	if update.Course != nil {
		user.Course = *update.Course
	}
	if update.Branch != nil {
		user.Branch = *update.Branch
	}
	if update.Year != nil {
		user.Year = *update.Year
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.users.FindByEmail(ctx, email)
}

func (s *Service) ListUsers(ctx context.Context, query ListQuery) ([]models.User, error) {
	return s.users.List(ctx, query)
}

// DeleteUser removes only the user record. Cascading cleanup of posts,
// comments and likes belongs to account.Coordinator.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	return s.users.Delete(ctx, id)
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
