package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPostStore persists posts and votes in Postgres.
type PostgresPostStore struct {
	pool *pgxpool.Pool
}

// NewPostgresPostStore creates a store backed by Postgres.
func NewPostgresPostStore(pool *pgxpool.Pool) *PostgresPostStore {
	return &PostgresPostStore{pool: pool}
}

func (s *PostgresPostStore) CreatePost(ctx context.Context, in NewPost) (Post, error) {
	if err := in.Validate(); err != nil {
		return Post{}, err
	}

	var username string
	err := s.pool.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, in.AuthorID).Scan(&username)
	if errors.Is(err, pgx.ErrNoRows) {
		return Post{}, ErrUserNotFound
	}
	if err != nil {
		return Post{}, err
	}

	const q = `INSERT INTO posts (author_id, title, content, flair)
	           VALUES ($1, $2, $3, $4)
	           RETURNING id, created_at, updated_at`
	p := Post{
		AuthorID:  in.AuthorID,
		Author:    username,
		Title:     in.Title,
		Content:   in.Content,
		Flair:     in.Flair,
		Upvotes:   []string{},
		Downvotes: []string{},
	}
	if err := s.pool.QueryRow(ctx, q, in.AuthorID, in.Title, in.Content, string(in.Flair)).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Post{}, err
	}
	return p, nil
}

func (s *PostgresPostStore) GetPost(ctx context.Context, id string) (Post, error) {
	const q = `SELECT p.id, p.author_id, u.username, p.title, p.content, p.flair, p.created_at, p.updated_at
	           FROM posts p
	           JOIN users u ON u.id = p.author_id
	           WHERE p.id = $1`
	var p Post
	err := s.pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.AuthorID, &p.Author,
		&p.Title, &p.Content, &p.Flair, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Post{}, ErrPostNotFound
	}
	if err != nil {
		return Post{}, err
	}

	ups, downs, err := s.loadVotes(ctx, []string{p.ID})
	if err != nil {
		return Post{}, err
	}
	p.Upvotes, p.Downvotes = ups[p.ID], downs[p.ID]
	return p, nil
}

func (s *PostgresPostStore) ListPosts(ctx context.Context, q ListQuery) (PostPage, error) {
	if err := q.Normalize(); err != nil {
		return PostPage{}, err
	}

	where := ""
	args := []any{}
	if q.Flair != "" {
		where = " WHERE p.flair = $1"
		args = append(args, string(q.Flair))
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM posts p"+where, args...).Scan(&total); err != nil {
		return PostPage{}, err
	}

	var orderBy string
	switch q.Sort {
	case SortOldest:
		orderBy = "p.created_at ASC, p.id ASC"
	case SortMostUpvoted:
		orderBy = `(SELECT COUNT(*) FROM post_votes v WHERE v.post_id = p.id AND v.vote = 1) DESC,
		           p.created_at DESC, p.id DESC`
	default: // newest
		orderBy = "p.created_at DESC, p.id DESC"
	}

	args = append(args, q.PageSize, (q.Page-1)*q.PageSize)
	sel := fmt.Sprintf(`SELECT p.id, p.author_id, u.username, p.title, p.content, p.flair, p.created_at, p.updated_at
	                    FROM posts p
	                    JOIN users u ON u.id = p.author_id%s
	                    ORDER BY %s
	                    LIMIT $%d OFFSET $%d`, where, orderBy, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, sel, args...)
	if err != nil {
		return PostPage{}, err
	}
	defer rows.Close()

	posts := make([]Post, 0, q.PageSize)
	ids := make([]string, 0, q.PageSize)
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.Author, &p.Title, &p.Content,
			&p.Flair, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return PostPage{}, err
		}
		posts = append(posts, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return PostPage{}, err
	}

	if len(ids) > 0 {
		ups, downs, err := s.loadVotes(ctx, ids)
		if err != nil {
			return PostPage{}, err
		}
		for i := range posts {
			posts[i].Upvotes = ups[posts[i].ID]
			posts[i].Downvotes = downs[posts[i].ID]
		}
	}

	pages := (total + q.PageSize - 1) / q.PageSize
	return PostPage{Posts: posts, Total: total, Page: q.Page, PageSize: q.PageSize, Pages: pages}, nil
}

func (s *PostgresPostStore) UpdatePost(ctx context.Context, id, editorID string, upd PostUpdate) (Post, error) {
	if err := upd.Validate(); err != nil {
		return Post{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Post{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var authorID string
	err = tx.QueryRow(ctx, `SELECT author_id FROM posts WHERE id = $1 FOR UPDATE`, id).Scan(&authorID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Post{}, ErrPostNotFound
	}
	if err != nil {
		return Post{}, err
	}
	if authorID != editorID {
		return Post{}, ErrNotAuthor
	}

	set := []string{"updated_at = now()"}
	args := []any{id}
	if upd.Title != nil {
		args = append(args, *upd.Title)
		set = append(set, fmt.Sprintf("title = $%d", len(args)))
	}
	if upd.Content != nil {
		args = append(args, *upd.Content)
		set = append(set, fmt.Sprintf("content = $%d", len(args)))
	}
	if upd.Flair != nil {
		args = append(args, string(*upd.Flair))
		set = append(set, fmt.Sprintf("flair = $%d", len(args)))
	}
	if _, err := tx.Exec(ctx, "UPDATE posts SET "+strings.Join(set, ", ")+" WHERE id = $1", args...); err != nil {
		return Post{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Post{}, err
	}
	return s.GetPost(ctx, id)
}

// DeletePost removes the post, its comments and its votes in one
// transaction. Child rows go first so a partial failure cannot leave
// references to a missing post.
func (s *PostgresPostStore) DeletePost(ctx context.Context, id, requesterID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var authorID string
	err = tx.QueryRow(ctx, `SELECT author_id FROM posts WHERE id = $1 FOR UPDATE`, id).Scan(&authorID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrPostNotFound
	}
	if err != nil {
		return err
	}
	if authorID != requesterID {
		return ErrNotAuthor
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM comment_likes WHERE comment_id IN (SELECT id FROM comments WHERE post_id = $1)`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM comments WHERE post_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM post_votes WHERE post_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Vote applies one toggle transition inside a transaction. The mutation is
// keyed on the (post_id, user_id) row, so concurrent votes by different
// users never contend and cannot lose updates.
func (s *PostgresPostStore) Vote(ctx context.Context, postID, userID string, kind VoteKind) (VoteResult, error) {
	if !kind.Valid() {
		return VoteResult{}, invalid("vote_type", "must be upvote or downvote")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return VoteResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`, postID).Scan(&exists); err != nil {
		return VoteResult{}, err
	}
	if !exists {
		return VoteResult{}, ErrPostNotFound
	}
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return VoteResult{}, err
	}
	if !exists {
		return VoteResult{}, ErrUserNotFound
	}

	cur := VoteNone
	var v int16
	err = tx.QueryRow(ctx,
		`SELECT vote FROM post_votes WHERE post_id = $1 AND user_id = $2 FOR UPDATE`,
		postID, userID).Scan(&v)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return VoteResult{}, err
	case v == 1:
		cur = VoteStateUp
	default:
		cur = VoteStateDown
	}

	next := NextVoteState(cur, kind)
	if next == VoteNone {
		_, err = tx.Exec(ctx, `DELETE FROM post_votes WHERE post_id = $1 AND user_id = $2`, postID, userID)
	} else {
		_, err = tx.Exec(ctx,
			`INSERT INTO post_votes (post_id, user_id, vote) VALUES ($1, $2, $3)
			 ON CONFLICT (post_id, user_id) DO UPDATE SET vote = EXCLUDED.vote, created_at = now()`,
			postID, userID, voteValue(next))
	}
	if err != nil {
		return VoteResult{}, err
	}

	res := VoteResult{UserVote: next}
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FILTER (WHERE vote = 1), COUNT(*) FILTER (WHERE vote = -1)
		 FROM post_votes WHERE post_id = $1`, postID).Scan(&res.Upvotes, &res.Downvotes)
	if err != nil {
		return VoteResult{}, err
	}
	return res, tx.Commit(ctx)
}

func voteValue(st VoteState) int16 {
	if st == VoteStateUp {
		return 1
	}
	return -1
}

// loadVotes fetches the vote sets for a batch of posts in one query.
func (s *PostgresPostStore) loadVotes(ctx context.Context, postIDs []string) (map[string][]string, map[string][]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT post_id, user_id, vote FROM post_votes WHERE post_id = ANY($1) ORDER BY created_at, user_id`,
		postIDs)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	ups := make(map[string][]string, len(postIDs))
	downs := make(map[string][]string, len(postIDs))
	for _, id := range postIDs {
		ups[id], downs[id] = []string{}, []string{}
	}
	for rows.Next() {
		var postID, userID string
		var vote int16
		if err := rows.Scan(&postID, &userID, &vote); err != nil {
			return nil, nil, err
		}
		if vote == 1 {
			ups[postID] = append(ups[postID], userID)
		} else {
			downs[postID] = append(downs[postID], userID)
		}
	}
	return ups, downs, rows.Err()
}
