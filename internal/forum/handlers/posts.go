package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/career-platform/internal/forum/events"
	"github.com/example/career-platform/internal/forum/store"
	"github.com/example/career-platform/internal/platform/api"
	"github.com/example/career-platform/internal/platform/httpserver"
)

type createPostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Flair   string `json:"flair"`
}

type updatePostRequest struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
	Flair   *string `json:"flair,omitempty"`
}

// CreatePost handles POST /v1/forum/posts
func CreatePost(ps store.PostStore, us store.UserStore, pub *events.Publisher, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := requester(w, r, us, log)
		if !ok {
			return
		}

		var req createPostRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", httpserver.RequestIDFromContext(r.Context()), nil)
			return
		}

		created, err := ps.CreatePost(r.Context(), store.NewPost{
			AuthorID: u.ID,
			Title:    req.Title,
			Content:  req.Content,
			Flair:    store.Flair(req.Flair),
		})
		if err != nil {
			writeStoreError(w, r, log, err)
			return
		}

		pub.Publish(r.Context(), events.SubjectPostCreated, u.ID, created)
		api.WriteJSON(w, http.StatusCreated, created)
	}
}

// ListPosts handles GET /v1/forum/posts
func ListPosts(ps store.PostStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := store.ListQuery{
			Flair: store.Flair(strings.TrimSpace(r.URL.Query().Get("flair"))),
			Sort:  store.SortOrder(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("sort")))),
		}
		if p := r.URL.Query().Get("page"); p != "" {
			if parsed, err := strconv.Atoi(p); err == nil {
				q.Page = parsed
			}
		}
		if l := r.URL.Query().Get("limit"); l != "" {
			if parsed, err := strconv.Atoi(l); err == nil {
				q.PageSize = parsed
			}
		}

		page, err := ps.ListPosts(r.Context(), q)
		if err != nil {
			writeStoreError(w, r, log, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, page)
	}
}

type postDetailResponse struct {
	store.Post
	Comments []*store.CommentNode `json:"comments"`
}

// GetPost handles GET /v1/forum/posts/{post_id}. The response carries the
// post together with its assembled comment tree.
func GetPost(ps store.PostStore, cs store.CommentStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "post_id"))
		if id == "" {
			api.BadRequest(w, "MISSING_ID", "post_id is required", httpserver.RequestIDFromContext(r.Context()), nil)
			return
		}

		p, err := ps.GetPost(r.Context(), id)
		if err != nil {
			writeStoreError(w, r, log, err)
			return
		}
		comments, err := cs.ListComments(r.Context(), id)
		if err != nil {
			writeStoreError(w, r, log, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, postDetailResponse{
			Post:     p,
			Comments: store.AssembleThread(comments),
		})
	}
}

// UpdatePost handles PUT /v1/forum/posts/{post_id}
func UpdatePost(ps store.PostStore, us store.UserStore, pub *events.Publisher, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := requester(w, r, us, log)
		if !ok {
			return
		}

		id := strings.TrimSpace(chi.URLParam(r, "post_id"))
		if id == "" {
			api.BadRequest(w, "MISSING_ID", "post_id is required", httpserver.RequestIDFromContext(r.Context()), nil)
			return
		}

		var req updatePostRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", httpserver.RequestIDFromContext(r.Context()), nil)
			return
		}

		upd := store.PostUpdate{Title: req.Title, Content: req.Content}
		if req.Flair != nil {
			f := store.Flair(*req.Flair)
			upd.Flair = &f
		}

		updated, err := ps.UpdatePost(r.Context(), id, u.ID, upd)
		if err != nil {
			writeStoreError(w, r, log, err)
			return
		}

		pub.Publish(r.Context(), events.SubjectPostUpdated, u.ID, updated)
		api.WriteJSON(w, http.StatusOK, updated)
	}
}

// DeletePost handles DELETE /v1/forum/posts/{post_id}
func DeletePost(ps store.PostStore, us store.UserStore, pub *events.Publisher, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := requester(w, r, us, log)
		if !ok {
			return
		}

		id := strings.TrimSpace(chi.URLParam(r, "post_id"))
		if id == "" {
			api.BadRequest(w, "MISSING_ID", "post_id is required", httpserver.RequestIDFromContext(r.Context()), nil)
			return
		}

		if err := ps.DeletePost(r.Context(), id, u.ID); err != nil {
			writeStoreError(w, r, log, err)
			return
		}

		pub.Publish(r.Context(), events.SubjectPostDeleted, u.ID, map[string]string{"post_id": id})
		api.WriteJSON(w, http.StatusOK, map[string]string{"message": "post deleted"})
	}
}
