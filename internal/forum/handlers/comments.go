package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/career-platform/internal/forum/events"
	"github.com/example/career-platform/internal/forum/store"
	"github.com/example/career-platform/internal/platform/api"
	"github.com/example/career-platform/internal/platform/httpserver"
)

type createCommentRequest struct {
	Content         string  `json:"content"`
	ParentCommentID *string `json:"parent_comment_id,omitempty"`
}

type threadResponse struct {
	Comments []*store.CommentNode `json:"comments"`
	Total    int                  `json:"total"`
}

type deleteCommentResponse struct {
	Message string `json:"message"`
	Deleted int    `json:"deleted"`
}

// CreateComment handles POST /v1/forum/posts/{post_id}/comments
func CreateComment(cs store.CommentStore, us store.UserStore, pub *events.Publisher, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := requester(w, r, us, log)
		if !ok {
			return
		}

		postID := strings.TrimSpace(chi.URLParam(r, "post_id"))
		if postID == "" {
			api.BadRequest(w, "MISSING_ID", "post_id is required", httpserver.RequestIDFromContext(r.Context()), nil)
			return
		}

		var req createCommentRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", httpserver.RequestIDFromContext(r.Context()), nil)
			return
		}

		created, err := cs.CreateComment(r.Context(), store.NewComment{
			PostID:          postID,
			AuthorID:        u.ID,
			Content:         req.Content,
			ParentCommentID: req.ParentCommentID,
		})
		if err != nil {
			writeStoreError(w, r, log, err)
			return
		}

		pub.Publish(r.Context(), events.SubjectCommentCreated, u.ID, created)
		api.WriteJSON(w, http.StatusCreated, created)
	}
}

// GetThread handles GET /v1/forum/posts/{post_id}/comments
func GetThread(cs store.CommentStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID := strings.TrimSpace(chi.URLParam(r, "post_id"))
		if postID == "" {
			api.BadRequest(w, "MISSING_ID", "post_id is required", httpserver.RequestIDFromContext(r.Context()), nil)
			return
		}

		comments, err := cs.ListComments(r.Context(), postID)
		if err != nil {
			writeStoreError(w, r, log, err)
			return
		}

		api.WriteJSON(w, http.StatusOK, threadResponse{
			Comments: store.AssembleThread(comments),
			Total:    len(comments),
		})
	}
}

// DeleteComment handles DELETE /v1/forum/posts/{post_id}/comments/{comment_id}
func DeleteComment(cs store.CommentStore, us store.UserStore, pub *events.Publisher, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := requester(w, r, us, log)
		if !ok {
			return
		}

		postID := strings.TrimSpace(chi.URLParam(r, "post_id"))
		commentID := strings.TrimSpace(chi.URLParam(r, "comment_id"))
		if postID == "" || commentID == "" {
			api.BadRequest(w, "MISSING_ID", "post_id and comment_id are required", httpserver.RequestIDFromContext(r.Context()), nil)
			return
		}

		deleted, err := cs.DeleteComment(r.Context(), postID, commentID, u.ID)
		if err != nil {
			writeStoreError(w, r, log, err)
			return
		}

		pub.Publish(r.Context(), events.SubjectCommentDeleted, u.ID, map[string]any{
			"post_id":    postID,
			"comment_id": commentID,
			"deleted":    deleted,
		})
		api.WriteJSON(w, http.StatusOK, deleteCommentResponse{Message: "comment deleted", Deleted: deleted})
	}
}
