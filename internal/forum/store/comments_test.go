package store

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func seedPost(t *testing.T) (*InMemoryStore, User, Post) {
	t.Helper()
	s := NewInMemoryStore()
	u := s.AddUser(User{Username: "alice", Email: "alice@example.com"})
	p, err := s.CreatePost(context.Background(), validNewPost(u.ID))
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	return s, u, p
}

func TestCreateComment(t *testing.T) {
	s, u, p := seedPost(t)
	ctx := context.Background()

	c, err := s.CreateComment(ctx, NewComment{PostID: p.ID, AuthorID: u.ID, Content: "  hello  "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Content != "hello" {
		t.Fatalf("content not trimmed: %q", c.Content)
	}
	if c.Author != "alice" {
		t.Fatalf("expected author alice, got %q", c.Author)
	}
	if c.ParentCommentID != nil {
		t.Fatalf("expected top-level comment")
	}

	reply, err := s.CreateComment(ctx, NewComment{PostID: p.ID, AuthorID: u.ID, Content: "reply", ParentCommentID: &c.ID})
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if reply.ParentCommentID == nil || *reply.ParentCommentID != c.ID {
		t.Fatalf("reply not linked to parent")
	}
}

func TestCreateComment_Validation(t *testing.T) {
	s, u, p := seedPost(t)
	ctx := context.Background()

	var verr *ValidationError
	if _, err := s.CreateComment(ctx, NewComment{PostID: p.ID, AuthorID: u.ID, Content: "   "}); !errors.As(err, &verr) {
		t.Fatalf("expected validation error for blank content, got %v", err)
	}
	long := strings.Repeat("x", 2001)
	if _, err := s.CreateComment(ctx, NewComment{PostID: p.ID, AuthorID: u.ID, Content: long}); !errors.As(err, &verr) {
		t.Fatalf("expected validation error for long content, got %v", err)
	}
}

func TestCreateComment_MissingParent(t *testing.T) {
	s, u, p := seedPost(t)
	missing := "nope"

	_, err := s.CreateComment(context.Background(), NewComment{PostID: p.ID, AuthorID: u.ID, Content: "hi", ParentCommentID: &missing})
	if err != ErrParentNotFound {
		t.Fatalf("expected ErrParentNotFound, got %v", err)
	}
}

func TestCreateComment_ParentOnOtherPost(t *testing.T) {
	s, u, p := seedPost(t)
	ctx := context.Background()

	other, err := s.CreatePost(ctx, validNewPost(u.ID))
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	parent, err := s.CreateComment(ctx, NewComment{PostID: other.ID, AuthorID: u.ID, Content: "elsewhere"})
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}

	_, err = s.CreateComment(ctx, NewComment{PostID: p.ID, AuthorID: u.ID, Content: "hi", ParentCommentID: &parent.ID})
	if err != ErrParentNotFound {
		t.Fatalf("expected ErrParentNotFound for cross-post parent, got %v", err)
	}
}

func TestListComments_CreationOrder(t *testing.T) {
	s, u, p := seedPost(t)
	ctx := context.Background()

	first, _ := s.CreateComment(ctx, NewComment{PostID: p.ID, AuthorID: u.ID, Content: "first"})
	second, _ := s.CreateComment(ctx, NewComment{PostID: p.ID, AuthorID: u.ID, Content: "second"})
	third, _ := s.CreateComment(ctx, NewComment{PostID: p.ID, AuthorID: u.ID, Content: "third", ParentCommentID: &first.ID})

	out, err := s.ListComments(ctx, p.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{first.ID, second.ID, third.ID}
	if len(out) != len(want) {
		t.Fatalf("expected %d comments, got %d", len(want), len(out))
	}
	for i, c := range out {
		if c.ID != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], c.ID)
		}
	}
}

func TestDeleteComment_CascadesReplies(t *testing.T) {
	s, u, p := seedPost(t)
	ctx := context.Background()

	root, _ := s.CreateComment(ctx, NewComment{PostID: p.ID, AuthorID: u.ID, Content: "root"})
	child, _ := s.CreateComment(ctx, NewComment{PostID: p.ID, AuthorID: u.ID, Content: "child", ParentCommentID: &root.ID})
	_, _ = s.CreateComment(ctx, NewComment{PostID: p.ID, AuthorID: u.ID, Content: "grandchild", ParentCommentID: &child.ID})
	keep, _ := s.CreateComment(ctx, NewComment{PostID: p.ID, AuthorID: u.ID, Content: "sibling"})

	deleted, err := s.DeleteComment(ctx, p.ID, root.ID, u.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != 3 {
		t.Fatalf("expected 3 deletions, got %d", deleted)
	}

	out, err := s.ListComments(ctx, p.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 1 || out[0].ID != keep.ID {
		t.Fatalf("expected only sibling to survive, got %d comments", len(out))
	}
}

func TestDeleteComment_Authorization(t *testing.T) {
	s, postAuthor, p := seedPost(t)
	ctx := context.Background()
	commenter := s.AddUser(User{Username: "bob", Email: "bob@example.com"})
	stranger := s.AddUser(User{Username: "carol", Email: "carol@example.com"})

	c, err := s.CreateComment(ctx, NewComment{PostID: p.ID, AuthorID: commenter.ID, Content: "mine"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := s.DeleteComment(ctx, p.ID, c.ID, stranger.ID); err != ErrNotAuthor {
		t.Fatalf("expected ErrNotAuthor for stranger, got %v", err)
	}

	// The post's author may remove any comment on their post.
	if _, err := s.DeleteComment(ctx, p.ID, c.ID, postAuthor.ID); err != nil {
		t.Fatalf("post author delete: %v", err)
	}

	c2, _ := s.CreateComment(ctx, NewComment{PostID: p.ID, AuthorID: commenter.ID, Content: "again"})
	if _, err := s.DeleteComment(ctx, p.ID, c2.ID, commenter.ID); err != nil {
		t.Fatalf("comment author delete: %v", err)
	}
}

func TestDeleteComment_WrongPost(t *testing.T) {
	s, u, p := seedPost(t)
	ctx := context.Background()

	other, err := s.CreatePost(ctx, validNewPost(u.ID))
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	c, _ := s.CreateComment(ctx, NewComment{PostID: other.ID, AuthorID: u.ID, Content: "elsewhere"})

	if _, err := s.DeleteComment(ctx, p.ID, c.ID, u.ID); err != ErrCommentNotFound {
		t.Fatalf("expected ErrCommentNotFound, got %v", err)
	}
}
