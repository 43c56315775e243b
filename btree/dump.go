package btree

import (
	"fmt"
	"io"

	"bptreeindex/disk"
)

// Dump writes a Graphviz .dot rendering of the tree to w: one record node
// per page, parent/child edges, and leaf-to-leaf sibling edges — a
// generalization of the BFS page walk the teacher's index inspector does,
// but laid out as a graph rather than a flat log.
func (t *BTree) Dump(w io.Writer) error {
	rootID, ok, err := GetRootID(t.pool, t.Name)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "digraph %s {\n  node [shape=plaintext]\n", dotSafe(t.Name))
	if !ok || rootID == disk.InvalidPageID {
		fmt.Fprintln(w, "  empty [label=\"(empty tree)\"]")
		fmt.Fprintln(w, "}")
		return nil
	}

	nodes := make(map[int64]*Node)
	queue := []int64{rootID}
	for len(queue) > 0 {
		pid := queue[0]
		queue = queue[1:]
		if _, seen := nodes[pid]; seen {
			continue
		}

		f, err := t.pool.FetchPage(pid)
		if err != nil {
			return err
		}
		f.RLock()
		n, decErr := Decode(f.RawBytes())
		f.RUnlock()
		unpinErr := t.pool.UnpinPage(pid, false)
		if decErr != nil {
			return decErr
		}
		if unpinErr != nil {
			return unpinErr
		}

		nodes[pid] = n
		if n.IsInternal() {
			queue = append(queue, n.Children...)
		}
	}

	dotID := func(pid int64) string {
		if nodes[pid].IsInternal() {
			return fmt.Sprintf("INT_%d", pid)
		}
		return fmt.Sprintf("LEAF_%d", pid)
	}

	for pid, n := range nodes {
		if n.IsInternal() {
			fmt.Fprintf(w, "  INT_%d [label=<<table border=\"1\" cellspacing=\"0\"><tr>", pid)
			for i := 0; i < n.Size; i++ {
				if i == 0 {
					fmt.Fprint(w, "<td>*</td>")
				} else {
					fmt.Fprintf(w, "<td>%s</td>", dotEscape(string(n.Keys[i])))
				}
			}
			fmt.Fprintln(w, "</tr></table>>]")
			for i := 0; i < n.Size; i++ {
				fmt.Fprintf(w, "  INT_%d -> %s\n", pid, dotID(n.Children[i]))
			}
		} else {
			fmt.Fprintf(w, "  LEAF_%d [label=<<table border=\"1\" cellspacing=\"0\"><tr>", pid)
			for i := 0; i < n.Size; i++ {
				fmt.Fprintf(w, "<td>%s</td>", dotEscape(string(n.Keys[i])))
			}
			fmt.Fprintln(w, "</tr></table>>]")
		}
	}

	// Walk next_page_id from the leftmost leaf so the dashed edges drawn
	// below reflect the actual leaf linked list, not map iteration order.
	leftmost := rootID
	for nodes[leftmost].IsInternal() {
		leftmost = nodes[leftmost].Children[0]
	}
	var leafChain []int64
	for pid := leftmost; pid != disk.InvalidPageID; pid = nodes[pid].Next {
		leafChain = append(leafChain, pid)
	}

	for i := 0; i+1 < len(leafChain); i++ {
		fmt.Fprintf(w, "  LEAF_%d -> LEAF_%d [style=dashed, constraint=false]\n", leafChain[i], leafChain[i+1])
	}

	fmt.Fprintln(w, "}")
	return nil
}

func dotEscape(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '<', '>', '&':
			out = append(out, ' ')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

func dotSafe(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			out = append(out, r)
		} else {
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "tree"
	}
	return string(out)
}
