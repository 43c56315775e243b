package btree

import "bptreeindex/disk"

// ReparentFunc fetches a child page and rewrites its parent-page-id,
// marking it dirty and unpinning it. Internal-page move operations take
// one because a moved child's parent_page_id must follow it — the spec's
// reason for threading the buffer pool handle through these moves. Here
// the dependency is a narrow callback instead of the whole pool manager,
// so the page layer stays free of buffer-pool concerns.
type ReparentFunc func(childPageID, newParentPageID int64) error

// Lookup routes key to a child page-id: the largest i in [1,Size) with
// KeyAt(i) <= key, defaulting to ValueAt(0) if key < KeyAt(1).
func (n *Node) Lookup(key []byte, cmp Comparator) int64 {
	lo, hi := 1, n.Size
	for lo < hi {
		mid := (lo + hi) / 2
		if cmp(n.Keys[mid], key) <= 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	// lo is now the first index with KeyAt(lo) > key; the routing index is lo-1.
	return n.Children[lo-1]
}

func (n *Node) ValueAt(i int) int64 { return n.Children[i] }

func (n *Node) SetKeyAt(i int, key []byte) { n.Keys[i] = key; n.dirty = true }

// ValueIndex returns the slot index holding childPageID, or -1.
func (n *Node) ValueIndex(childPageID int64) int {
	for i, c := range n.Children {
		if c == childPageID {
			return i
		}
	}
	return -1
}

// InsertNodeAfter inserts (key, newPageID) immediately after the slot
// holding oldPageID.
func (n *Node) InsertNodeAfter(oldPageID int64, key []byte, newPageID int64) {
	idx := n.ValueIndex(oldPageID)
	insertAt := idx + 1
	n.Keys = append(n.Keys, nil)
	n.Children = append(n.Children, 0)
	copy(n.Keys[insertAt+1:], n.Keys[insertAt:])
	copy(n.Children[insertAt+1:], n.Children[insertAt:])
	n.Keys[insertAt] = key
	n.Children[insertAt] = newPageID
	n.Size++
	n.dirty = true
}

// Remove deletes slot i.
func (n *Node) Remove(i int) {
	n.Keys = append(n.Keys[:i], n.Keys[i+1:]...)
	n.Children = append(n.Children[:i], n.Children[i+1:]...)
	n.Size--
	n.dirty = true
}

// RemoveAndReturnOnlyChild is used by AdjustRoot when an internal root
// shrinks to a single child.
func (n *Node) RemoveAndReturnOnlyChild() int64 {
	child := n.Children[0]
	n.Keys, n.Children, n.Size = nil, nil, 0
	n.dirty = true
	return child
}

// PopulateNewRoot initializes a freshly allocated internal page as a new
// root over (leftPageID, key, rightPageID).
func (n *Node) PopulateNewRoot(leftPageID int64, key []byte, rightPageID int64) {
	n.Keys = [][]byte{nil, key}
	n.Children = []int64{leftPageID, rightPageID}
	n.Size = 2
	n.ParentPageID = disk.InvalidPageID
	n.dirty = true
}

// MoveHalfTo moves the upper half of n's slots to dst when n splits after
// exceeding MaxSize, reparenting each moved child via reparent.
func (n *Node) MoveHalfTo(dst *Node, reparent ReparentFunc) error {
	mid := n.Size / 2
	dst.Keys = append(dst.Keys, n.Keys[mid:]...)
	dst.Children = append(dst.Children, n.Children[mid:]...)
	dst.Size = len(dst.Children)
	n.Keys = n.Keys[:mid]
	n.Children = n.Children[:mid]
	n.Size = mid
	n.dirty = true
	dst.dirty = true
	for _, c := range dst.Children {
		if err := reparent(c, dst.PageID); err != nil {
			return err
		}
	}
	return nil
}

// MoveAllTo appends all of n's slots onto dst during coalesce. middleKey is
// the separator that used to sit between n and dst in their parent — it
// becomes the key for n's first (previously unused) child slot as it lands
// in dst.
func (n *Node) MoveAllTo(dst *Node, middleKey []byte, reparent ReparentFunc) error {
	n.Keys[0] = middleKey
	dst.Keys = append(dst.Keys, n.Keys...)
	dst.Children = append(dst.Children, n.Children...)
	dst.Size = len(dst.Children)
	moved := n.Children
	n.Keys, n.Children, n.Size = nil, nil, 0
	n.dirty = true
	dst.dirty = true
	for _, c := range moved {
		if err := reparent(c, dst.PageID); err != nil {
			return err
		}
	}
	return nil
}

// MoveFirstToEndOf steals n's first child onto the end of dst, with
// middleKey (the parent's separator for n) becoming the key that now
// precedes the moved child in dst; n's new first slot's key becomes unused.
func (n *Node) MoveFirstToEndOf(dst *Node, middleKey []byte, reparent ReparentFunc) error {
	movedChild := n.Children[0]
	dst.Keys = append(dst.Keys, middleKey)
	dst.Children = append(dst.Children, movedChild)
	dst.Size++

	n.Keys = n.Keys[1:]
	n.Children = n.Children[1:]
	n.Size--
	if n.Size > 0 {
		n.Keys[0] = nil
	}
	n.dirty = true
	dst.dirty = true
	return reparent(movedChild, dst.PageID)
}

// MoveLastToFrontOf steals n's last child onto the front of dst, with
// middleKey (the parent's separator for dst) becoming the key that now
// follows dst's old first slot.
func (n *Node) MoveLastToFrontOf(dst *Node, middleKey []byte, reparent ReparentFunc) error {
	last := n.Size - 1
	movedChild := n.Children[last]

	dst.Keys = append([][]byte{nil}, dst.Keys...)
	dst.Children = append([]int64{movedChild}, dst.Children...)
	dst.Keys[1] = middleKey
	dst.Size++

	n.Keys = n.Keys[:last]
	n.Children = n.Children[:last]
	n.Size--
	n.dirty = true
	dst.dirty = true
	return reparent(movedChild, dst.PageID)
}
