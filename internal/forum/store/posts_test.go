package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func validNewPost(authorID string) NewPost {
	return NewPost{
		AuthorID: authorID,
		Title:    "A valid title",
		Content:  "Some valid content with enough length.",
		Flair:    FlairQuestion,
	}
}

func TestCreatePost_Validation(t *testing.T) {
	s := NewInMemoryStore()
	u := s.AddUser(User{Username: "alice", Email: "alice@example.com"})
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*NewPost)
		field  string
	}{
		{"short title", func(p *NewPost) { p.Title = "ab" }, "title"},
		{"whitespace title", func(p *NewPost) { p.Title = "   a   " }, "title"},
		{"short content", func(p *NewPost) { p.Content = "too short" }, "content"},
		{"bad flair", func(p *NewPost) { p.Flair = "off-topic" }, "flair"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			in := validNewPost(u.ID)
			c.mutate(&in)
			_, err := s.CreatePost(ctx, in)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Field != c.field {
				t.Fatalf("expected field %q, got %q", c.field, verr.Field)
			}
		})
	}
}

func TestCreatePost_TrimsAndPopulatesAuthor(t *testing.T) {
	s := NewInMemoryStore()
	u := s.AddUser(User{Username: "alice", Email: "alice@example.com"})

	in := validNewPost(u.ID)
	in.Title = "  Padded title  "
	p, err := s.CreatePost(context.Background(), in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Title != "Padded title" {
		t.Fatalf("title not trimmed: %q", p.Title)
	}
	if p.Author != "alice" {
		t.Fatalf("expected author alice, got %q", p.Author)
	}
	if p.Upvotes == nil || p.Downvotes == nil {
		t.Fatalf("vote sets must be empty, not nil")
	}
}

func TestCreatePost_UnknownAuthor(t *testing.T) {
	s := NewInMemoryStore()
	if _, err := s.CreatePost(context.Background(), validNewPost("nobody")); err != ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestGetPost_NotFound(t *testing.T) {
	s := NewInMemoryStore()
	if _, err := s.GetPost(context.Background(), "missing"); err != ErrPostNotFound {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
}

func TestListPosts_SortMostUpvoted(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	author := s.AddUser(User{Username: "author", Email: "author@example.com"})

	votes := []int{2, 0, 5}
	ids := make([]string, len(votes))
	for i, n := range votes {
		in := validNewPost(author.ID)
		in.Title = fmt.Sprintf("Post %d", i)
		p, err := s.CreatePost(ctx, in)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ids[i] = p.ID
		for v := 0; v < n; v++ {
			voter := s.AddUser(User{Username: fmt.Sprintf("voter-%d-%d", i, v), Email: fmt.Sprintf("v%d%d@example.com", i, v)})
			if _, err := s.Vote(ctx, p.ID, voter.ID, VoteUp); err != nil {
				t.Fatalf("vote: %v", err)
			}
		}
	}

	page, err := s.ListPosts(ctx, ListQuery{Sort: SortMostUpvoted})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Posts) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(page.Posts))
	}
	want := []string{ids[2], ids[0], ids[1]}
	for i, p := range page.Posts {
		if p.ID != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], p.ID)
		}
	}
}

func TestListPosts_SortNewestAndOldest(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	author := s.AddUser(User{Username: "author", Email: "author@example.com"})

	ids := make([]string, 3)
	for i := range ids {
		in := validNewPost(author.ID)
		in.Title = fmt.Sprintf("Post %d", i)
		p, err := s.CreatePost(ctx, in)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ids[i] = p.ID
	}

	newest, err := s.ListPosts(ctx, ListQuery{Sort: SortNewest})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if newest.Posts[0].ID != ids[2] || newest.Posts[2].ID != ids[0] {
		t.Fatalf("newest order wrong")
	}

	oldest, err := s.ListPosts(ctx, ListQuery{Sort: SortOldest})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if oldest.Posts[0].ID != ids[0] || oldest.Posts[2].ID != ids[2] {
		t.Fatalf("oldest order wrong")
	}
}

func TestListPosts_FlairFilterAndPagination(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	author := s.AddUser(User{Username: "author", Email: "author@example.com"})

	for i := 0; i < 5; i++ {
		in := validNewPost(author.ID)
		in.Title = fmt.Sprintf("Question %d", i)
		if _, err := s.CreatePost(ctx, in); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	other := validNewPost(author.ID)
	other.Flair = FlairSuccessStory
	if _, err := s.CreatePost(ctx, other); err != nil {
		t.Fatalf("create: %v", err)
	}

	page, err := s.ListPosts(ctx, ListQuery{Flair: FlairQuestion, Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 5 || page.Pages != 3 || page.Page != 2 || len(page.Posts) != 2 {
		t.Fatalf("pagination: total=%d pages=%d page=%d len=%d", page.Total, page.Pages, page.Page, len(page.Posts))
	}

	all, err := s.ListPosts(ctx, ListQuery{Flair: "all"})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if all.Total != 6 {
		t.Fatalf("expected 6 posts for flair=all, got %d", all.Total)
	}

	if _, err := s.ListPosts(ctx, ListQuery{Flair: "nonsense"}); err == nil {
		t.Fatalf("expected validation error for unknown flair")
	}
}

func TestUpdatePost_Partial(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	u := s.AddUser(User{Username: "alice", Email: "alice@example.com"})
	p, err := s.CreatePost(ctx, validNewPost(u.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	title := "Updated title"
	updated, err := s.UpdatePost(ctx, p.ID, u.ID, PostUpdate{Title: &title})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != title {
		t.Fatalf("title not updated: %q", updated.Title)
	}
	if updated.Content != p.Content || updated.Flair != p.Flair {
		t.Fatalf("untouched fields changed")
	}
}

func TestUpdatePost_NotAuthor(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	u := s.AddUser(User{Username: "alice", Email: "alice@example.com"})
	stranger := s.AddUser(User{Username: "bob", Email: "bob@example.com"})
	p, err := s.CreatePost(ctx, validNewPost(u.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	title := "Hijacked"
	if _, err := s.UpdatePost(ctx, p.ID, stranger.ID, PostUpdate{Title: &title}); err != ErrNotAuthor {
		t.Fatalf("expected ErrNotAuthor, got %v", err)
	}
}

func TestDeletePost_Cascade(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	u := s.AddUser(User{Username: "alice", Email: "alice@example.com"})
	p, err := s.CreatePost(ctx, validNewPost(u.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	c, err := s.CreateComment(ctx, NewComment{PostID: p.ID, AuthorID: u.ID, Content: "first"})
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	if _, err := s.CreateComment(ctx, NewComment{PostID: p.ID, AuthorID: u.ID, Content: "reply", ParentCommentID: &c.ID}); err != nil {
		t.Fatalf("reply: %v", err)
	}
	if _, err := s.Vote(ctx, p.ID, u.ID, VoteUp); err != nil {
		t.Fatalf("vote: %v", err)
	}

	if err := s.DeletePost(ctx, p.ID, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetPost(ctx, p.ID); err != ErrPostNotFound {
		t.Fatalf("post survived delete: %v", err)
	}
	if _, err := s.ListComments(ctx, p.ID); err != ErrPostNotFound {
		t.Fatalf("expected ErrPostNotFound listing comments, got %v", err)
	}
}

func TestDeletePost_NotAuthor(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	u := s.AddUser(User{Username: "alice", Email: "alice@example.com"})
	stranger := s.AddUser(User{Username: "bob", Email: "bob@example.com"})
	p, err := s.CreatePost(ctx, validNewPost(u.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.DeletePost(ctx, p.ID, stranger.ID); err != ErrNotAuthor {
		t.Fatalf("expected ErrNotAuthor, got %v", err)
	}
	if _, err := s.GetPost(ctx, p.ID); err != nil {
		t.Fatalf("post should survive forbidden delete: %v", err)
	}
}

func TestPostVoteLifecycle(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	a := s.AddUser(User{Username: "asker", Email: "asker@example.com"})
	b := s.AddUser(User{Username: "reader", Email: "reader@example.com"})

	p, err := s.CreatePost(ctx, validNewPost(a.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := s.Vote(ctx, p.ID, b.ID, VoteUp); err != nil {
		t.Fatalf("upvote: %v", err)
	}
	got, err := s.GetPost(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Upvotes) != 1 || got.Upvotes[0] != b.ID {
		t.Fatalf("expected reader in upvotes, got %v", got.Upvotes)
	}

	res, err := s.Vote(ctx, p.ID, b.ID, VoteDown)
	if err != nil {
		t.Fatalf("downvote: %v", err)
	}
	if res.Upvotes != 0 || res.Downvotes != 1 || res.UserVote != VoteStateDown {
		t.Fatalf("after switch: %+v", res)
	}
	got, err = s.GetPost(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Upvotes) != 0 || len(got.Downvotes) != 1 {
		t.Fatalf("vote sets after switch: up=%v down=%v", got.Upvotes, got.Downvotes)
	}
}
