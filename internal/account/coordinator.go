package account

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/campuslink/campuslink/internal/auth"
	"github.com/campuslink/campuslink/internal/models"
)

// PostRepository is the slice of the post store the coordinator needs.
type PostRepository interface {
	FindByID(ctx context.Context, id string) (*models.Post, error)
	FindAll(ctx context.Context) ([]models.Post, error)
	Save(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id string) error
}

// MediaStore deletes the binary object a post references.
type MediaStore interface {
	Delete(ctx context.Context, ref string) error
}

// UserDirectory is the credential-store surface the coordinator composes.
// *auth.Service satisfies it.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// MediaFailure records one media object that could not be removed.
type MediaFailure struct {
	PostID   string
	MediaRef string
	Err      error
}

// Report summarises one DeleteAccount run. Media failures are surfaced
// here instead of aborting the operation.
type Report struct {
	UserDeleted     bool
	PostsDeleted    int
	CommentsRemoved int
	LikesRemoved    int
	MediaFailures   []MediaFailure
}

// Coordinator owns cascading account deletion. The store has no
// multi-document transactions, so the steps are not atomic; the operation
// is idempotent and a retried call converges to full consistency.
type Coordinator struct {
	creds UserDirectory
	posts PostRepository
	media MediaStore
	log   *zap.Logger
}

func NewCoordinator(creds UserDirectory, posts PostRepository, media MediaStore, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{creds: creds, posts: posts, media: media, log: log}
}

// DeleteAccount removes the user, their posts and media, then sweeps every
// remaining post for comments and likes referencing the user. An absent
// user record is a valid precondition: the sweep still runs so that a
// retry after a mid-operation failure finishes the cleanup.
func (c *Coordinator) DeleteAccount(ctx context.Context, userID string) (*Report, error) {
	report := &Report{}

	user, err := c.creds.GetByID(ctx, userID)
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		c.log.Info("account already deleted, resuming sweep", zap.String("user_id", userID))
	case err != nil:
		return report, err
	default:
		if err := c.deleteOwnedPosts(ctx, user, report); err != nil {
			return report, err
		}

		if err := c.creds.DeleteUser(ctx, userID); err != nil && !errors.Is(err, auth.ErrUserNotFound) {
			return report, err
		}
		report.UserDeleted = true
	}

	if err := c.sweepReferences(ctx, userID, report); err != nil {
		return report, err
	}

	return report, nil
}

func (c *Coordinator) deleteOwnedPosts(ctx context.Context, user *models.User, report *Report) error {
	for _, postID := range user.Posts {
		post, err := c.posts.FindByID(ctx, postID)
		if err != nil {
			if errors.Is(err, ErrPostNotFound) {
				continue
			}
			return err
		}

		if post.MediaRef != "" {
			if err := c.media.Delete(ctx, post.MediaRef); err != nil {
				c.log.Warn("media deletion failed, post removal continues",
					zap.String("post_id", post.ID),
					zap.String("media_ref", post.MediaRef),
					zap.Error(err))
				report.MediaFailures = append(report.MediaFailures, MediaFailure{
					PostID:   post.ID,
					MediaRef: post.MediaRef,
					Err:      err,
				})
			}
		}

		if err := c.posts.Delete(ctx, post.ID); err != nil {
			return err
		}
		report.PostsDeleted++
	}

	return nil
}

// sweepReferences rebuilds the comment and like sequences of every post,
// keeping entries that do not reference userID. Filtering into a fresh
// slice rather than deleting by index keeps adjacent matches from being
// skipped.
func (c *Coordinator) sweepReferences(ctx context.Context, userID string, report *Report) error {
	posts, err := c.posts.FindAll(ctx)
	if err != nil {
		return err
	}

	for i := range posts {
		post := &posts[i]

		comments := make([]models.Comment, 0, len(post.Comments))
		for _, comment := range post.Comments {
			if comment.UserID == userID {
				report.CommentsRemoved++
				continue
			}
			comments = append(comments, comment)
		}

		likes := make([]string, 0, len(post.Likes))
		for _, liker := range post.Likes {
			if liker == userID {
				report.LikesRemoved++
				continue
			}
			likes = append(likes, liker)
		}

		if len(comments) == len(post.Comments) && len(likes) == len(post.Likes) {
			continue
		}

		post.Comments = comments
		post.Likes = likes
		if err := c.posts.Save(ctx, post); err != nil {
			return err
		}
	}

	return nil
}
