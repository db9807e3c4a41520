package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a development-only implementation of PostStore,
// CommentStore and UserStore backed by maps. All forum state lives in one
// struct because cascading deletes span posts, comments and votes.
type InMemoryStore struct {
	mu       sync.RWMutex
	users    map[string]User
	posts    map[string]Post
	votes    map[string]map[string]VoteKind // postID -> userID -> kind
	comments map[string]Comment
	likes    map[string]map[string]struct{} // commentID -> userID

	// Insertion sequence breaks creation-time ties so sibling order stays
	// deterministic even when timestamps collide.
	seq        uint64
	postSeq    map[string]uint64
	commentSeq map[string]uint64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:      make(map[string]User),
		posts:      make(map[string]Post),
		votes:      make(map[string]map[string]VoteKind),
		comments:   make(map[string]Comment),
		likes:      make(map[string]map[string]struct{}),
		postSeq:    make(map[string]uint64),
		commentSeq: make(map[string]uint64),
	}
}

// AddUser registers a profile record. Used for dev seeding and tests; in
// production the profile subsystem owns the users table.
func (s *InMemoryStore) AddUser(u User) User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.users[u.ID] = u
	return u
}

// ─── UserStore ──────────────────────────────────────────────────────────────

func (s *InMemoryStore) UserByID(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *InMemoryStore) UserByEmail(_ context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

// ─── PostStore ──────────────────────────────────────────────────────────────

func (s *InMemoryStore) CreatePost(_ context.Context, in NewPost) (Post, error) {
	if err := in.Validate(); err != nil {
		return Post{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	author, ok := s.users[in.AuthorID]
	if !ok {
		return Post{}, ErrUserNotFound
	}

	now := time.Now().UTC()
	p := Post{
		ID:        uuid.NewString(),
		AuthorID:  author.ID,
		Author:    author.Username,
		Title:     in.Title,
		Content:   in.Content,
		Flair:     in.Flair,
		Upvotes:   []string{},
		Downvotes: []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.posts[p.ID] = p
	s.seq++
	s.postSeq[p.ID] = s.seq
	return p, nil
}

func (s *InMemoryStore) GetPost(_ context.Context, id string) (Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return Post{}, ErrPostNotFound
	}
	return s.fillPostLocked(p), nil
}

func (s *InMemoryStore) ListPosts(_ context.Context, q ListQuery) (PostPage, error) {
	if err := q.Normalize(); err != nil {
		return PostPage{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]Post, 0, len(s.posts))
	for _, p := range s.posts {
		if q.Flair != "" && p.Flair != q.Flair {
			continue
		}
		matched = append(matched, p)
	}

	newestFirst := func(a, b Post) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return s.postSeq[a.ID] > s.postSeq[b.ID]
	}
	switch q.Sort {
	case SortOldest:
		sort.Slice(matched, func(i, j int) bool { return newestFirst(matched[j], matched[i]) })
	case SortMostUpvoted:
		sort.Slice(matched, func(i, j int) bool {
			ui, uj := s.upvoteCountLocked(matched[i].ID), s.upvoteCountLocked(matched[j].ID)
			if ui != uj {
				return ui > uj
			}
			return newestFirst(matched[i], matched[j])
		})
	default:
		sort.Slice(matched, func(i, j int) bool { return newestFirst(matched[i], matched[j]) })
	}

	total := len(matched)
	pages := (total + q.PageSize - 1) / q.PageSize
	start := (q.Page - 1) * q.PageSize
	if start > total {
		start = total
	}
	end := start + q.PageSize
	if end > total {
		end = total
	}

	page := make([]Post, 0, end-start)
	for _, p := range matched[start:end] {
		page = append(page, s.fillPostLocked(p))
	}
	return PostPage{Posts: page, Total: total, Page: q.Page, PageSize: q.PageSize, Pages: pages}, nil
}

func (s *InMemoryStore) UpdatePost(_ context.Context, id, editorID string, upd PostUpdate) (Post, error) {
	if err := upd.Validate(); err != nil {
		return Post{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return Post{}, ErrPostNotFound
	}
	if p.AuthorID != editorID {
		return Post{}, ErrNotAuthor
	}

	if upd.Title != nil {
		p.Title = *upd.Title
	}
	if upd.Content != nil {
		p.Content = *upd.Content
	}
	if upd.Flair != nil {
		p.Flair = *upd.Flair
	}
	p.UpdatedAt = time.Now().UTC()
	s.posts[id] = p
	return s.fillPostLocked(p), nil
}

func (s *InMemoryStore) DeletePost(_ context.Context, id, requesterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return ErrPostNotFound
	}
	if p.AuthorID != requesterID {
		return ErrNotAuthor
	}

	for cid, c := range s.comments {
		if c.PostID == id {
			delete(s.comments, cid)
			delete(s.commentSeq, cid)
			delete(s.likes, cid)
		}
	}
	delete(s.votes, id)
	delete(s.posts, id)
	delete(s.postSeq, id)
	return nil
}

func (s *InMemoryStore) Vote(_ context.Context, postID, userID string, kind VoteKind) (VoteResult, error) {
	if !kind.Valid() {
		return VoteResult{}, invalid("vote_type", "must be upvote or downvote")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[postID]; !ok {
		return VoteResult{}, ErrPostNotFound
	}
	if _, ok := s.users[userID]; !ok {
		return VoteResult{}, ErrUserNotFound
	}

	if s.votes[postID] == nil {
		s.votes[postID] = make(map[string]VoteKind)
	}

	cur := VoteNone
	if k, ok := s.votes[postID][userID]; ok {
		cur = VoteState(k)
	}
	next := NextVoteState(cur, kind)
	if next == VoteNone {
		delete(s.votes[postID], userID)
	} else {
		s.votes[postID][userID] = VoteKind(next)
	}

	res := VoteResult{UserVote: next}
	for _, k := range s.votes[postID] {
		if k == VoteUp {
			res.Upvotes++
		} else {
			res.Downvotes++
		}
	}
	return res, nil
}

// ─── CommentStore ───────────────────────────────────────────────────────────

func (s *InMemoryStore) CreateComment(_ context.Context, in NewComment) (Comment, error) {
	if err := in.Validate(); err != nil {
		return Comment{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[in.PostID]; !ok {
		return Comment{}, ErrPostNotFound
	}
	author, ok := s.users[in.AuthorID]
	if !ok {
		return Comment{}, ErrUserNotFound
	}
	if in.ParentCommentID != nil {
		parent, ok := s.comments[*in.ParentCommentID]
		if !ok || parent.PostID != in.PostID {
			return Comment{}, ErrParentNotFound
		}
	}

	now := time.Now().UTC()
	c := Comment{
		ID:              uuid.NewString(),
		PostID:          in.PostID,
		AuthorID:        author.ID,
		Author:          author.Username,
		ParentCommentID: in.ParentCommentID,
		Content:         in.Content,
		Likes:           []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.comments[c.ID] = c
	s.seq++
	s.commentSeq[c.ID] = s.seq
	return c, nil
}

func (s *InMemoryStore) ListComments(_ context.Context, postID string) ([]Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.posts[postID]; !ok {
		return nil, ErrPostNotFound
	}

	out := make([]Comment, 0)
	for _, c := range s.comments {
		if c.PostID == postID {
			out = append(out, s.fillCommentLocked(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return s.commentSeq[out[i].ID] < s.commentSeq[out[j].ID]
	})
	return out, nil
}

func (s *InMemoryStore) DeleteComment(_ context.Context, postID, commentID, requesterID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[postID]
	if !ok {
		return 0, ErrPostNotFound
	}
	c, ok := s.comments[commentID]
	if !ok || c.PostID != postID {
		return 0, ErrCommentNotFound
	}
	if requesterID != c.AuthorID && requesterID != p.AuthorID {
		return 0, ErrNotAuthor
	}

	// Iterative preorder walk; deleting in reverse removes every reply
	// before its parent, so a partial failure can only leave orphans.
	stack := []string{commentID}
	order := make([]string, 0, 1)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, id)
		for cid, cc := range s.comments {
			if cc.ParentCommentID != nil && *cc.ParentCommentID == id {
				stack = append(stack, cid)
			}
		}
	}
	for i := len(order) - 1; i >= 0; i-- {
		delete(s.comments, order[i])
		delete(s.commentSeq, order[i])
		delete(s.likes, order[i])
	}
	return len(order), nil
}

// ─── helpers ────────────────────────────────────────────────────────────────

func (s *InMemoryStore) fillPostLocked(p Post) Post {
	p.Author = s.users[p.AuthorID].Username
	p.Upvotes, p.Downvotes = []string{}, []string{}
	for uid, k := range s.votes[p.ID] {
		if k == VoteUp {
			p.Upvotes = append(p.Upvotes, uid)
		} else {
			p.Downvotes = append(p.Downvotes, uid)
		}
	}
	sort.Strings(p.Upvotes)
	sort.Strings(p.Downvotes)
	return p
}

func (s *InMemoryStore) fillCommentLocked(c Comment) Comment {
	c.Author = s.users[c.AuthorID].Username
	c.Likes = []string{}
	for uid := range s.likes[c.ID] {
		c.Likes = append(c.Likes, uid)
	}
	sort.Strings(c.Likes)
	return c
}

func (s *InMemoryStore) upvoteCountLocked(postID string) int {
	n := 0
	for _, k := range s.votes[postID] {
		if k == VoteUp {
			n++
		}
	}
	return n
}
