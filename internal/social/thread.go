package social

import "revayat/internal/models"

// ThreadRoot is the GroupByParent key holding top-level comments.
const ThreadRoot = ""

// GroupByParent groups a flat comment list by parent ID. Top-level comments
// are under ThreadRoot. Each group keeps the input (creation) order.
func GroupByParent(comments []models.Comment) map[string][]models.Comment {
	groups := make(map[string][]models.Comment)
	for _, c := range comments {
		groups[c.ParentID] = append(groups[c.ParentID], c)
	}
	return groups
}

// ThreadNode is a comment with its nested replies.
type ThreadNode struct {
	Comment models.Comment
	Replies []ThreadNode
}

// BuildThread renders grouped comments as a tree starting at ThreadRoot.
// Replies whose parent is missing are not reachable and are dropped.
func BuildThread(groups map[string][]models.Comment) []ThreadNode {
	return buildThread(groups, ThreadRoot, map[string]bool{})
}

func buildThread(groups map[string][]models.Comment, parent string, seen map[string]bool) []ThreadNode {
	children := groups[parent]
	if len(children) == 0 {
		return nil
	}
	nodes := make([]ThreadNode, 0, len(children))
	for _, c := range children {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		nodes = append(nodes, ThreadNode{
			Comment: c,
			Replies: buildThread(groups, c.ID, seen),
		})
	}
	return nodes
}
