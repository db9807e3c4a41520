// Package store persists forum posts, comments and votes.
//
// Posts and comments are independent records referencing each other by id
// (arena style); the nested reply tree is reconstructed on read by
// AssembleThread and never persisted as a nested structure.
package store

import (
	"context"
	"strings"
	"time"
)

// Flair classifies a post. The set is fixed.
type Flair string

const (
	FlairCareerDiscussion    Flair = "career-discussion"
	FlairInterviewExperience Flair = "interview-experience"
	FlairSalaryDetails       Flair = "salary-details"
	FlairSuccessStory        Flair = "success-story"
	FlairQuestion            Flair = "question"
	FlairOther               Flair = "other"
)

func (f Flair) Valid() bool {
	switch f {
	case FlairCareerDiscussion, FlairInterviewExperience, FlairSalaryDetails,
		FlairSuccessStory, FlairQuestion, FlairOther:
		return true
	}
	return false
}

// User is the profile subsystem's record; this service only reads it.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Post is a discussion post. Upvotes and Downvotes are user-id sets; a user
// id never appears in both at once.
type Post struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Author    string    `json:"author,omitempty"` // username, populated on reads
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Flair     Flair     `json:"flair"`
	Upvotes   []string  `json:"upvotes"`
	Downvotes []string  `json:"downvotes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Comment is a single comment row. ParentCommentID is nil for top-level
// comments. Likes and IsDeleted are carried for schema parity; no current
// flow mutates them.
type Comment struct {
	ID              string    `json:"id"`
	PostID          string    `json:"post_id"`
	AuthorID        string    `json:"author_id"`
	Author          string    `json:"author,omitempty"`
	ParentCommentID *string   `json:"parent_comment_id,omitempty"`
	Content         string    `json:"content"`
	Likes           []string  `json:"likes"`
	IsDeleted       bool      `json:"is_deleted"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewPost carries input for creating a post.
type NewPost struct {
	AuthorID string
	Title    string
	Content  string
	Flair    Flair
}

const (
	titleMinLen       = 3
	titleMaxLen       = 200
	postContentMinLen = 10
	postContentMaxLen = 10000
	commentMaxLen     = 2000
)

// Validate trims fields and checks length and enum constraints.
func (p *NewPost) Validate() error {
	p.Title = strings.TrimSpace(p.Title)
	p.Content = strings.TrimSpace(p.Content)
	if len(p.Title) < titleMinLen || len(p.Title) > titleMaxLen {
		return invalid("title", "must be between 3 and 200 characters")
	}
	if len(p.Content) < postContentMinLen || len(p.Content) > postContentMaxLen {
		return invalid("content", "must be between 10 and 10000 characters")
	}
	if !p.Flair.Valid() {
		return invalid("flair", "not a valid flair option")
	}
	return nil
}

// PostUpdate is a partial update; nil fields are left unchanged.
type PostUpdate struct {
	Title   *string
	Content *string
	Flair   *Flair
}

func (u *PostUpdate) Validate() error {
	if u.Title != nil {
		*u.Title = strings.TrimSpace(*u.Title)
		if len(*u.Title) < titleMinLen || len(*u.Title) > titleMaxLen {
			return invalid("title", "must be between 3 and 200 characters")
		}
	}
	if u.Content != nil {
		*u.Content = strings.TrimSpace(*u.Content)
		if len(*u.Content) < postContentMinLen || len(*u.Content) > postContentMaxLen {
			return invalid("content", "must be between 10 and 10000 characters")
		}
	}
	if u.Flair != nil && !u.Flair.Valid() {
		return invalid("flair", "not a valid flair option")
	}
	return nil
}

// NewComment carries input for creating a comment. A non-nil ParentCommentID
// must reference an existing comment on the same post.
type NewComment struct {
	PostID          string
	AuthorID        string
	Content         string
	ParentCommentID *string
}

func (c *NewComment) Validate() error {
	c.Content = strings.TrimSpace(c.Content)
	if len(c.Content) < 1 || len(c.Content) > commentMaxLen {
		return invalid("content", "must be between 1 and 2000 characters")
	}
	return nil
}

// SortOrder orders post listings.
type SortOrder string

const (
	SortNewest      SortOrder = "newest"
	SortOldest      SortOrder = "oldest"
	SortMostUpvoted SortOrder = "most-upvoted"
)

// ListQuery selects a page of posts. Flair empty means no filter.
type ListQuery struct {
	Page     int
	PageSize int
	Flair    Flair
	Sort     SortOrder
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Normalize applies defaults and validates the flair filter.
// An unknown sort falls back to newest, matching the web client's behaviour.
func (q *ListQuery) Normalize() error {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	if q.Flair == "all" {
		q.Flair = ""
	}
	if q.Flair != "" && !q.Flair.Valid() {
		return invalid("flair", "not a valid flair option")
	}
	switch q.Sort {
	case SortNewest, SortOldest, SortMostUpvoted:
	default:
		q.Sort = SortNewest
	}
	return nil
}

// PostPage is one page of a listing.
type PostPage struct {
	Posts    []Post `json:"posts"`
	Total    int    `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Pages    int    `json:"pages"`
}

// PostStore defines persistence for posts, including votes.
type PostStore interface {
	CreatePost(ctx context.Context, in NewPost) (Post, error)
	GetPost(ctx context.Context, id string) (Post, error)
	ListPosts(ctx context.Context, q ListQuery) (PostPage, error)
	// UpdatePost applies a partial update; only the post's author may edit.
	UpdatePost(ctx context.Context, id, editorID string, upd PostUpdate) (Post, error)
	// DeletePost removes the post and every comment and vote attached to
	// it. Only the post's author may delete.
	DeletePost(ctx context.Context, id, requesterID string) error
	// Vote applies one toggle transition for userID and returns the
	// resulting tallies and the user's vote state.
	Vote(ctx context.Context, postID, userID string, kind VoteKind) (VoteResult, error)
}

// CommentStore defines persistence for comments.
type CommentStore interface {
	CreateComment(ctx context.Context, in NewComment) (Comment, error)
	// ListComments returns the post's flat comment collection in creation
	// order; callers nest it with AssembleThread.
	ListComments(ctx context.Context, postID string) ([]Comment, error)
	// DeleteComment removes the comment and all of its descendant replies,
	// children first. The requester must be the comment's author or the
	// post's author. Returns the number of removed comments.
	DeleteComment(ctx context.Context, postID, commentID, requesterID string) (int, error)
}

// UserStore reads profile records owned by the excluded profile subsystem.
type UserStore interface {
	UserByID(ctx context.Context, id string) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
}
