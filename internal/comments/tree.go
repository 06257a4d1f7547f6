// Package comments builds and serves the threaded comments under a study group.
package comments

// BuildTree turns a flat comment list into a forest of reply threads.
//
// The input must already be ascending by creation time; siblings and roots
// keep input order. A comment whose parent is not in the list is dropped:
// it is neither a root nor attached anywhere.
func BuildTree(list []Comment) []*CommentNode {
	nodes := make(map[int64]*CommentNode, len(list))
	for _, c := range list {
		nodes[c.ID] = &CommentNode{Comment: c, Replies: []*CommentNode{}}
	}

	roots := []*CommentNode{}
	for _, c := range list {
		node := nodes[c.ID]
		if c.ParentCommentID == nil {
			roots = append(roots, node)
			continue
		}
		if parent, ok := nodes[*c.ParentCommentID]; ok {
			parent.Replies = append(parent.Replies, node)
		}
	}
	return roots
}
