package store

// VoteKind is the direction of a vote request.
type VoteKind string

const (
	VoteUp   VoteKind = "upvote"
	VoteDown VoteKind = "downvote"
)

func (k VoteKind) Valid() bool {
	return k == VoteUp || k == VoteDown
}

// VoteState is a user's vote on a post: exactly one of none, upvote, downvote.
type VoteState string

const (
	VoteNone      VoteState = "none"
	VoteStateUp   VoteState = VoteState(VoteUp)
	VoteStateDown VoteState = VoteState(VoteDown)
)

// NextVoteState applies one toggle transition. Voting in the direction the
// user already holds clears the vote; any other vote replaces the previous
// one. Both directions share this single transition, so the up and down
// paths cannot drift apart.
func NextVoteState(cur VoteState, kind VoteKind) VoteState {
	if cur == VoteState(kind) {
		return VoteNone
	}
	return VoteState(kind)
}

// VoteResult reports the tallies after a vote and the caller's state.
type VoteResult struct {
	Upvotes   int       `json:"upvotes"`
	Downvotes int       `json:"downvotes"`
	UserVote  VoteState `json:"user_vote"`
}
