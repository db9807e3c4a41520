package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCommentStore persists comments in Postgres. Comments are flat rows
// referencing their parent by id; nesting happens on read with AssembleThread.
type PostgresCommentStore struct {
	pool *pgxpool.Pool
}

// NewPostgresCommentStore creates a store backed by Postgres.
func NewPostgresCommentStore(pool *pgxpool.Pool) *PostgresCommentStore {
	return &PostgresCommentStore{pool: pool}
}

func (s *PostgresCommentStore) CreateComment(ctx context.Context, in NewComment) (Comment, error) {
	if err := in.Validate(); err != nil {
		return Comment{}, err
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`, in.PostID).Scan(&exists); err != nil {
		return Comment{}, err
	}
	if !exists {
		return Comment{}, ErrPostNotFound
	}

	var username string
	err := s.pool.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, in.AuthorID).Scan(&username)
	if errors.Is(err, pgx.ErrNoRows) {
		return Comment{}, ErrUserNotFound
	}
	if err != nil {
		return Comment{}, err
	}

	if in.ParentCommentID != nil {
		var parentPostID string
		err := s.pool.QueryRow(ctx, `SELECT post_id FROM comments WHERE id = $1`, *in.ParentCommentID).Scan(&parentPostID)
		if errors.Is(err, pgx.ErrNoRows) || (err == nil && parentPostID != in.PostID) {
			return Comment{}, ErrParentNotFound
		}
		if err != nil {
			return Comment{}, err
		}
	}

	const q = `INSERT INTO comments (post_id, author_id, parent_id, content)
	           VALUES ($1, $2, $3, $4)
	           RETURNING id, created_at, updated_at`
	c := Comment{
		PostID:          in.PostID,
		AuthorID:        in.AuthorID,
		Author:          username,
		ParentCommentID: in.ParentCommentID,
		Content:         in.Content,
		Likes:           []string{},
	}
	if err := s.pool.QueryRow(ctx, q, in.PostID, in.AuthorID, in.ParentCommentID, in.Content).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Comment{}, err
	}
	return c, nil
}

func (s *PostgresCommentStore) ListComments(ctx context.Context, postID string) ([]Comment, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`, postID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrPostNotFound
	}

	const q = `SELECT c.id, c.post_id, c.author_id, u.username, c.parent_id, c.content, c.is_deleted, c.created_at, c.updated_at
	           FROM comments c
	           JOIN users u ON u.id = c.author_id
	           WHERE c.post_id = $1
	           ORDER BY c.created_at ASC, c.id ASC`
	rows, err := s.pool.Query(ctx, q, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Comment, 0)
	ids := make([]string, 0)
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Author, &c.ParentCommentID,
			&c.Content, &c.IsDeleted, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.Likes = []string{}
		out = append(out, c)
		ids = append(ids, c.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	likeRows, err := s.pool.Query(ctx,
		`SELECT comment_id, user_id FROM comment_likes WHERE comment_id = ANY($1) ORDER BY created_at, user_id`, ids)
	if err != nil {
		return nil, err
	}
	defer likeRows.Close()

	likes := make(map[string][]string)
	for likeRows.Next() {
		var commentID, userID string
		if err := likeRows.Scan(&commentID, &userID); err != nil {
			return nil, err
		}
		likes[commentID] = append(likes[commentID], userID)
	}
	if err := likeRows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if l := likes[out[i].ID]; l != nil {
			out[i].Likes = l
		}
	}
	return out, nil
}

// DeleteComment removes the comment and every descendant reply in one
// transaction. The subtree is collected level by level and deleted deepest
// level first, so replies always go before their parent.
func (s *PostgresCommentStore) DeleteComment(ctx context.Context, postID, commentID, requesterID string) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var postAuthorID string
	err = tx.QueryRow(ctx, `SELECT author_id FROM posts WHERE id = $1`, postID).Scan(&postAuthorID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrPostNotFound
	}
	if err != nil {
		return 0, err
	}

	var commentAuthorID, commentPostID string
	err = tx.QueryRow(ctx,
		`SELECT author_id, post_id FROM comments WHERE id = $1 FOR UPDATE`, commentID).
		Scan(&commentAuthorID, &commentPostID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrCommentNotFound
	}
	if err != nil {
		return 0, err
	}
	if commentPostID != postID {
		return 0, ErrCommentNotFound
	}
	if requesterID != commentAuthorID && requesterID != postAuthorID {
		return 0, ErrNotAuthor
	}

	levels := [][]string{{commentID}}
	all := []string{commentID}
	frontier := []string{commentID}
	for len(frontier) > 0 {
		rows, err := tx.Query(ctx, `SELECT id FROM comments WHERE parent_id = ANY($1)`, frontier)
		if err != nil {
			return 0, err
		}
		next := make([]string, 0)
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return 0, err
			}
			next = append(next, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return 0, err
		}
		if len(next) == 0 {
			break
		}
		levels = append(levels, next)
		all = append(all, next...)
		frontier = next
	}

	if _, err := tx.Exec(ctx, `DELETE FROM comment_likes WHERE comment_id = ANY($1)`, all); err != nil {
		return 0, err
	}
	for i := len(levels) - 1; i >= 0; i-- {
		if _, err := tx.Exec(ctx, `DELETE FROM comments WHERE id = ANY($1)`, levels[i]); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(all), nil
}
