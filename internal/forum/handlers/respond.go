// Package handlers exposes the forum HTTP API.
package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/example/career-platform/internal/forum/store"
	"github.com/example/career-platform/internal/platform/api"
	"github.com/example/career-platform/internal/platform/auth"
	"github.com/example/career-platform/internal/platform/httpserver"
)

// requester resolves the authenticated caller to a profile record. Tokens
// carry the identity email; the profile row is the source of truth for the
// user id and username.
func requester(w http.ResponseWriter, r *http.Request, us store.UserStore, log *zap.Logger) (store.User, bool) {
	email, ok := auth.EmailFromContext(r.Context())
	if !ok || email == "" {
		api.Unauthorized(w, "UNAUTHORIZED", "authentication required", httpserver.RequestIDFromContext(r.Context()))
		return store.User{}, false
	}
	u, err := us.UserByEmail(r.Context(), email)
	if err != nil {
		writeStoreError(w, r, log, err)
		return store.User{}, false
	}
	return u, true
}

// writeStoreError maps store errors onto the API error envelope. Unknown
// errors are logged and returned as 500.
func writeStoreError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	reqID := httpserver.RequestIDFromContext(r.Context())

	var verr *store.ValidationError
	switch {
	case errors.As(err, &verr):
		api.BadRequest(w, "VALIDATION_FAILED", verr.Error(), reqID, map[string]any{"field": verr.Field})
	case errors.Is(err, store.ErrPostNotFound):
		api.NotFound(w, "POST_NOT_FOUND", "post not found", reqID)
	case errors.Is(err, store.ErrParentNotFound):
		api.NotFound(w, "PARENT_COMMENT_NOT_FOUND", "parent comment not found", reqID)
	case errors.Is(err, store.ErrCommentNotFound):
		api.NotFound(w, "COMMENT_NOT_FOUND", "comment not found", reqID)
	case errors.Is(err, store.ErrUserNotFound):
		api.NotFound(w, "USER_NOT_FOUND", "user not found", reqID)
	case errors.Is(err, store.ErrNotAuthor):
		api.Forbidden(w, "FORBIDDEN", "not allowed to modify this resource", reqID)
	default:
		if log != nil {
			log.Error("request failed",
				zap.String("path", r.URL.Path),
				zap.String("request_id", reqID),
				zap.Error(err))
		}
		api.Internal(w, reqID)
	}
}
