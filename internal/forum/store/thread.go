package store

// CommentNode is a comment with its nested replies, built on read.
type CommentNode struct {
	Comment
	Replies []*CommentNode `json:"replies"`
}

// AssembleThread nests a flat comment collection by parent reference.
// Sibling order follows the input order, which stores return as creation
// order. A comment whose declared parent is absent is promoted to top level:
// deletion and assembly are not transactionally consistent, so orphans must
// render rather than fail the read.
func AssembleThread(comments []Comment) []*CommentNode {
	nodes := make(map[string]*CommentNode, len(comments))
	ordered := make([]*CommentNode, 0, len(comments))
	for i := range comments {
		n := &CommentNode{Comment: comments[i], Replies: []*CommentNode{}}
		nodes[n.ID] = n
		ordered = append(ordered, n)
	}

	roots := make([]*CommentNode, 0, len(ordered))
	for _, n := range ordered {
		if n.ParentCommentID != nil {
			if parent, ok := nodes[*n.ParentCommentID]; ok && parent != n {
				parent.Replies = append(parent.Replies, n)
				continue
			}
		}
		roots = append(roots, n)
	}
	return roots
}
