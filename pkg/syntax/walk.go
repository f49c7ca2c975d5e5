package syntax

// WalkFunc is the function signature for Walk callbacks.
// Return a non-nil error to stop the walk.
type WalkFunc func(n *Node, depth int) error

// Walk performs a pre-order traversal of the tree starting at root.
// If walkFunc returns a non-nil error, the walk stops immediately and
// returns that error.
func Walk(root *Node, walkFunc WalkFunc) error {
	return walk(root, 0, walkFunc)
}

func walk(n *Node, depth int, walkFunc WalkFunc) error {
	if n == nil {
		return nil
	}
	if err := walkFunc(n, depth); err != nil {
		return err
	}
	for _, child := range n.Children {
		if err := walk(child, depth+1, walkFunc); err != nil {
			return err
		}
	}
	return nil
}
