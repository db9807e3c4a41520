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

type voteRequest struct {
	VoteType string `json:"vote_type"`
}

type voteResponse struct {
	Upvotes   int     `json:"upvotes"`
	Downvotes int     `json:"downvotes"`
	UserVote  *string `json:"user_vote"` // null when the vote was cleared
}

// VotePost handles POST /v1/forum/posts/{post_id}/vote
func VotePost(ps store.PostStore, us store.UserStore, pub *events.Publisher, log *zap.Logger) http.HandlerFunc {
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

		var req voteRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", httpserver.RequestIDFromContext(r.Context()), nil)
			return
		}

		res, err := ps.Vote(r.Context(), postID, u.ID, store.VoteKind(req.VoteType))
		if err != nil {
			writeStoreError(w, r, log, err)
			return
		}

		resp := voteResponse{Upvotes: res.Upvotes, Downvotes: res.Downvotes}
		if res.UserVote != store.VoteNone {
			v := string(res.UserVote)
			resp.UserVote = &v
		}

		pub.Publish(r.Context(), events.SubjectPostVoted, u.ID, map[string]any{
			"post_id":   postID,
			"upvotes":   res.Upvotes,
			"downvotes": res.Downvotes,
			"user_vote": resp.UserVote,
		})
		api.WriteJSON(w, http.StatusOK, resp)
	}
}
