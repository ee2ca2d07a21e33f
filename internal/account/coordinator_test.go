package account_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/campuslink/campuslink/internal/account"
	"github.com/campuslink/campuslink/internal/auth"
	"github.com/campuslink/campuslink/internal/db"
	"github.com/campuslink/campuslink/internal/models"
)

type fakeMedia struct {
	deleted []string
	fail    map[string]error
}

func (f *fakeMedia) Delete(_ context.Context, ref string) error {
	if err, ok := f.fail[ref]; ok {
		return err
	}
	f.deleted = append(f.deleted, ref)
	return nil
}

type fixture struct {
	creds *auth.Service
	store *db.MemStore
	media *fakeMedia
	coord *account.Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := db.NewMemStore()
	creds := auth.NewService(store.Users)
	media := &fakeMedia{fail: map[string]error{}}
	coord := account.NewCoordinator(creds, store.Posts, media, zap.NewNop())
	return &fixture{creds: creds, store: store, media: media, coord: coord}
}

func (f *fixture) mustRegister(t *testing.T, name, email string) *models.User {
	t.Helper()
	user, err := f.creds.Register(context.Background(), auth.RegisterInput{
		Name: name, Email: email, Password: "pw",
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return user
}

func (f *fixture) mustAddPost(t *testing.T, owner *models.User, post models.Post) {
	t.Helper()
	ctx := context.Background()
	post.OwnerID = owner.ID
	post.CreatedAt = time.Now().UTC()
	if err := f.store.Posts.Save(ctx, &post); err != nil {
		t.Fatalf("save post: %v", err)
	}

	stored, err := f.store.Users.FindByID(ctx, owner.ID)
	if err != nil {
		t.Fatalf("find owner: %v", err)
	}
	stored.Posts = append(stored.Posts, post.ID)
	if err := f.store.Users.Update(ctx, stored); err != nil {
		t.Fatalf("update owner: %v", err)
	}
}

func TestDeleteAccountCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u := f.mustRegister(t, "U", "u@x.com")
	other := f.mustRegister(t, "Other", "other@x.com")

	f.mustAddPost(t, u, models.Post{ID: "p1", MediaRef: "media/p1.jpg"})
	f.mustAddPost(t, u, models.Post{ID: "p2"})
	f.mustAddPost(t, other, models.Post{
		ID: "p3",
		Comments: []models.Comment{
			{ID: "c1", UserID: u.ID, Text: "first"},
			{ID: "c2", UserID: u.ID, Text: "second"},
			{ID: "c3", UserID: other.ID, Text: "keep"},
		},
		Likes: []string{u.ID, other.ID, u.ID},
	})

	report, err := f.coord.DeleteAccount(ctx, u.ID)
	if err != nil {
		t.Fatalf("delete account: %v", err)
	}

	if !report.UserDeleted {
		t.Fatalf("expected user record deletion in report")
	}
	if report.PostsDeleted != 2 {
		t.Fatalf("expected 2 owned posts deleted, got %d", report.PostsDeleted)
	}
	if report.CommentsRemoved != 2 || report.LikesRemoved != 2 {
		t.Fatalf("expected 2 comments and 2 likes removed, got %d/%d",
			report.CommentsRemoved, report.LikesRemoved)
	}

	if _, err := f.creds.GetByID(ctx, u.ID); !errors.Is(err, auth.ErrUserNotFound) {
		t.Fatalf("user record should be gone, got %v", err)
	}
	if _, err := f.store.Posts.FindByID(ctx, "p1"); !errors.Is(err, account.ErrPostNotFound) {
		t.Fatalf("owned post p1 should be gone")
	}

	if len(f.media.deleted) != 1 || f.media.deleted[0] != "media/p1.jpg" {
		t.Fatalf("expected media/p1.jpg deleted, got %v", f.media.deleted)
	}

	p3, err := f.store.Posts.FindByID(ctx, "p3")
	if err != nil {
		t.Fatalf("find p3: %v", err)
	}
	if len(p3.Comments) != 1 || p3.Comments[0].UserID != other.ID {
		t.Fatalf("expected only the other user's comment kept, got %+v", p3.Comments)
	}
	if len(p3.Likes) != 1 || p3.Likes[0] != other.ID {
		t.Fatalf("expected only the other user's like kept, got %v", p3.Likes)
	}
}

// Deleting by index while iterating forward skips the element after each
// removal, so consecutive matches survive. The sweep must not regress to
// that behavior for any arrangement of adjacent matches.
func TestDeleteAccountAdjacentMatches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u := f.mustRegister(t, "U", "u@x.com")
	other := f.mustRegister(t, "Other", "other@x.com")

	arrangements := [][]string{
		{u.ID, u.ID, other.ID},
		{u.ID, other.ID, u.ID},
		{u.ID, u.ID, u.ID},
		{other.ID, u.ID, u.ID, u.ID, other.ID},
	}

	for i, likes := range arrangements {
		comments := make([]models.Comment, len(likes))
		for j, id := range likes {
			comments[j] = models.Comment{ID: fmt.Sprintf("c%d-%d", i, j), UserID: id, Text: "t"}
		}
		f.mustAddPost(t, other, models.Post{
			ID:       fmt.Sprintf("post-%d", i),
			Comments: comments,
			Likes:    append([]string{}, likes...),
		})
	}

	if _, err := f.coord.DeleteAccount(ctx, u.ID); err != nil {
		t.Fatalf("delete account: %v", err)
	}

	posts, err := f.store.Posts.FindAll(ctx)
	if err != nil {
		t.Fatalf("find all: %v", err)
	}
	for _, post := range posts {
		for _, comment := range post.Comments {
			if comment.UserID == u.ID {
				t.Fatalf("post %s still has a comment by the deleted user", post.ID)
			}
			if comment.UserID != other.ID {
				t.Fatalf("post %s lost a comment it should have kept", post.ID)
			}
		}
		for _, liker := range post.Likes {
			if liker == u.ID {
				t.Fatalf("post %s still has a like by the deleted user", post.ID)
			}
		}
	}
}

func TestDeleteAccountIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u := f.mustRegister(t, "U", "u@x.com")
	other := f.mustRegister(t, "Other", "other@x.com")
	f.mustAddPost(t, other, models.Post{
		ID:    "p1",
		Likes: []string{u.ID, other.ID},
	})

	if _, err := f.coord.DeleteAccount(ctx, u.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}

	// A post with a stale reference appearing after the first run stands in
	// for a crash mid-sweep; the retry must still clean it up.
	stale := models.Post{
		ID:        "p2",
		OwnerID:   other.ID,
		Likes:     []string{u.ID},
		Comments:  []models.Comment{{ID: "c1", UserID: u.ID, Text: "stale"}},
		CreatedAt: time.Now().UTC(),
	}
	if err := f.store.Posts.Save(ctx, &stale); err != nil {
		t.Fatalf("save stale post: %v", err)
	}

	report, err := f.coord.DeleteAccount(ctx, u.ID)
	if err != nil {
		t.Fatalf("second delete must succeed: %v", err)
	}
	if report.UserDeleted {
		t.Fatalf("second run should find no user record")
	}
	if report.CommentsRemoved != 1 || report.LikesRemoved != 1 {
		t.Fatalf("second run should finish the sweep, got %+v", report)
	}

	p2, err := f.store.Posts.FindByID(ctx, "p2")
	if err != nil {
		t.Fatalf("find p2: %v", err)
	}
	if len(p2.Likes) != 0 || len(p2.Comments) != 0 {
		t.Fatalf("stale references survived the retried sweep: %+v", p2)
	}
}

func TestDeleteAccountMediaFailureDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u := f.mustRegister(t, "U", "u@x.com")
	f.mustAddPost(t, u, models.Post{ID: "p1", MediaRef: "media/broken.jpg"})
	f.mustAddPost(t, u, models.Post{ID: "p2", MediaRef: "media/fine.jpg"})
	f.media.fail["media/broken.jpg"] = errors.New("bucket unavailable")

	report, err := f.coord.DeleteAccount(ctx, u.ID)
	if err != nil {
		t.Fatalf("delete account: %v", err)
	}

	if len(report.MediaFailures) != 1 || report.MediaFailures[0].MediaRef != "media/broken.jpg" {
		t.Fatalf("expected one surfaced media failure, got %+v", report.MediaFailures)
	}
	if report.PostsDeleted != 2 {
		t.Fatalf("both posts must still be deleted, got %d", report.PostsDeleted)
	}
	if _, err := f.creds.GetByID(ctx, u.ID); !errors.Is(err, auth.ErrUserNotFound) {
		t.Fatalf("user record must be deleted despite media failure")
	}
	if len(f.media.deleted) != 1 || f.media.deleted[0] != "media/fine.jpg" {
		t.Fatalf("expected the healthy media object deleted, got %v", f.media.deleted)
	}
}
