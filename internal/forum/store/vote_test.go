package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestNextVoteState(t *testing.T) {
	cases := []struct {
		cur  VoteState
		kind VoteKind
		want VoteState
	}{
		{VoteNone, VoteUp, VoteStateUp},
		{VoteNone, VoteDown, VoteStateDown},
		{VoteStateUp, VoteUp, VoteNone},
		{VoteStateDown, VoteDown, VoteNone},
		{VoteStateUp, VoteDown, VoteStateDown},
		{VoteStateDown, VoteUp, VoteStateUp},
	}
	for _, c := range cases {
		if got := NextVoteState(c.cur, c.kind); got != c.want {
			t.Fatalf("NextVoteState(%s, %s) = %s, want %s", c.cur, c.kind, got, c.want)
		}
	}
}

func newSeededStore(t *testing.T) (*InMemoryStore, User, Post) {
	t.Helper()
	s := NewInMemoryStore()
	u := s.AddUser(User{Username: "alice", Email: "alice@example.com"})
	p, err := s.CreatePost(context.Background(), NewPost{
		AuthorID: u.ID,
		Title:    "First post",
		Content:  "This is the first post on the forum.",
		Flair:    FlairQuestion,
	})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	return s, u, p
}

func TestVote_Toggle(t *testing.T) {
	s, u, p := newSeededStore(t)
	ctx := context.Background()

	res, err := s.Vote(ctx, p.ID, u.ID, VoteUp)
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	if res.Upvotes != 1 || res.Downvotes != 0 || res.UserVote != VoteStateUp {
		t.Fatalf("after upvote: %+v", res)
	}

	// Same direction again clears the vote.
	res, err = s.Vote(ctx, p.ID, u.ID, VoteUp)
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	if res.Upvotes != 0 || res.Downvotes != 0 || res.UserVote != VoteNone {
		t.Fatalf("after toggle off: %+v", res)
	}
}

func TestVote_SwitchDirection(t *testing.T) {
	s, u, p := newSeededStore(t)
	ctx := context.Background()

	if _, err := s.Vote(ctx, p.ID, u.ID, VoteUp); err != nil {
		t.Fatalf("vote: %v", err)
	}
	res, err := s.Vote(ctx, p.ID, u.ID, VoteDown)
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	if res.Upvotes != 0 || res.Downvotes != 1 || res.UserVote != VoteStateDown {
		t.Fatalf("after switch: %+v", res)
	}

	got, err := s.GetPost(ctx, p.ID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if len(got.Upvotes) != 0 || len(got.Downvotes) != 1 {
		t.Fatalf("vote sets overlap: up=%v down=%v", got.Upvotes, got.Downvotes)
	}
}

func TestVote_InvalidKind(t *testing.T) {
	s, u, p := newSeededStore(t)

	_, err := s.Vote(context.Background(), p.ID, u.ID, VoteKind("sideways"))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestVote_UnknownPost(t *testing.T) {
	s, u, _ := newSeededStore(t)

	if _, err := s.Vote(context.Background(), "missing", u.ID, VoteUp); err != ErrPostNotFound {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
}

func TestVote_Concurrent(t *testing.T) {
	s, _, p := newSeededStore(t)
	ctx := context.Background()

	const n = 50
	users := make([]User, n)
	for i := range users {
		users[i] = s.AddUser(User{Username: fmt.Sprintf("user-%d", i), Email: fmt.Sprintf("user-%d@example.com", i)})
	}

	var wg sync.WaitGroup
	for i := range users {
		wg.Add(1)
		go func(uid string) {
			defer wg.Done()
			if _, err := s.Vote(ctx, p.ID, uid, VoteUp); err != nil {
				t.Errorf("vote: %v", err)
			}
		}(users[i].ID)
	}
	wg.Wait()

	got, err := s.GetPost(ctx, p.ID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if len(got.Upvotes) != n {
		t.Fatalf("expected %d upvotes, got %d", n, len(got.Upvotes))
	}

	// Everyone toggles off, again concurrently.
	for i := range users {
		wg.Add(1)
		go func(uid string) {
			defer wg.Done()
			if _, err := s.Vote(ctx, p.ID, uid, VoteUp); err != nil {
				t.Errorf("vote: %v", err)
			}
		}(users[i].ID)
	}
	wg.Wait()

	got, err = s.GetPost(ctx, p.ID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if len(got.Upvotes) != 0 || len(got.Downvotes) != 0 {
		t.Fatalf("expected empty vote sets, got up=%d down=%d", len(got.Upvotes), len(got.Downvotes))
	}
}
