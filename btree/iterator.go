package btree

import (
	"fmt"

	"bptreeindex/disk"
	"bptreeindex/storage"
)

// Iterator is an ordered forward cursor over a leaf's entries, crossing
// leaf boundaries via next_page_id. It holds the current leaf pinned but,
// per the spec's acknowledged limitation, takes no latch between steps: it
// observes a weakly-consistent snapshot and should only be used concurrently
// with non-structural modifications.
type Iterator struct {
	tree  *BTree
	leaf  *Node
	frame *storage.Frame
	index int
}

func (t *BTree) descendPinOnly(rootID int64, route func(*Node) int64) (*Node, *storage.Frame, error) {
	pid := rootID
	var prevPid int64 = disk.InvalidPageID

	for {
		f, err := t.pool.FetchPage(pid)
		if err != nil {
			return nil, nil, err
		}
		f.RLock()
		n, err := Decode(f.RawBytes())
		f.RUnlock()
		if err != nil {
			t.pool.UnpinPage(pid, false)
			return nil, nil, err
		}

		if prevPid != disk.InvalidPageID {
			if err := t.pool.UnpinPage(prevPid, false); err != nil {
				t.pool.UnpinPage(pid, false)
				return nil, nil, err
			}
		}

		if n.IsLeaf() {
			return n, f, nil
		}
		prevPid = pid
		pid = route(n)
	}
}

// begin returns a cursor at the leftmost leaf's first entry.
func (t *BTree) begin() (*Iterator, error) {
	rootID, ok, err := GetRootID(t.pool, t.Name)
	if err != nil {
		return nil, err
	}
	if !ok || rootID == disk.InvalidPageID {
		return &Iterator{tree: t}, nil
	}
	leaf, f, err := t.descendPinOnly(rootID, func(n *Node) int64 { return n.ValueAt(0) })
	if err != nil {
		return nil, err
	}
	return &Iterator{tree: t, leaf: leaf, frame: f, index: 0}, nil
}

// Begin returns a cursor positioned at the first key >= target.
func (t *BTree) Begin(target []byte) (*Iterator, error) {
	rootID, ok, err := GetRootID(t.pool, t.Name)
	if err != nil {
		return nil, err
	}
	if !ok || rootID == disk.InvalidPageID {
		return &Iterator{tree: t}, nil
	}
	leaf, f, err := t.descendPinOnly(rootID, func(n *Node) int64 { return n.Lookup(target, t.cmp) })
	if err != nil {
		return nil, err
	}
	idx := leaf.KeyIndex(target, t.cmp)
	it := &Iterator{tree: t, leaf: leaf, frame: f, index: idx}
	// A target greater than every key in its leaf lands on the first entry
	// of the next leaf.
	if idx == leaf.Size && leaf.Next != disk.InvalidPageID {
		it.index = idx - 1
		if _, err := it.Next(); err != nil {
			it.Close()
			return nil, err
		}
	}
	return it, nil
}

// end returns the sentinel cursor: rightmost leaf, index == size.
func (t *BTree) end() (*Iterator, error) {
	rootID, ok, err := GetRootID(t.pool, t.Name)
	if err != nil {
		return nil, err
	}
	if !ok || rootID == disk.InvalidPageID {
		return &Iterator{tree: t}, nil
	}
	leaf, f, err := t.descendPinOnly(rootID, func(n *Node) int64 { return n.ValueAt(n.Size - 1) })
	if err != nil {
		return nil, err
	}
	return &Iterator{tree: t, leaf: leaf, frame: f, index: leaf.Size}, nil
}

// IsEnd reports whether the cursor has exhausted the tree.
func (it *Iterator) IsEnd() bool {
	if it.leaf == nil {
		return true
	}
	return it.index == it.leaf.Size && it.leaf.Next == disk.InvalidPageID
}

// Key/Value return the entry at the cursor. Calling them at IsEnd is a
// programming error, matching the source's operator* contract.
func (it *Iterator) Key() []byte   { return it.leaf.KeyAt(it.index) }
func (it *Iterator) Value() []byte { k, v := it.leaf.GetItem(it.index); _ = k; return v }

// Next advances the cursor, crossing into the next leaf when the current
// one is exhausted. Returns false once the cursor reaches the end.
func (it *Iterator) Next() (bool, error) {
	if it.IsEnd() {
		return false, nil
	}
	it.index++
	if it.index == it.leaf.Size && it.leaf.Next != disk.InvalidPageID {
		nextID := it.leaf.Next
		oldFrame := it.frame
		oldPid := it.leaf.PageID

		f, err := it.tree.pool.FetchPage(nextID)
		if err != nil {
			return false, fmt.Errorf("btree: iterator advance: %w", err)
		}
		f.RLock()
		n, err := Decode(f.RawBytes())
		f.RUnlock()
		if err != nil {
			it.tree.pool.UnpinPage(nextID, false)
			return false, err
		}

		it.leaf = n
		it.frame = f
		it.index = 0

		if err := it.tree.pool.UnpinPage(oldPid, false); err != nil {
			return false, err
		}
		_ = oldFrame
	}
	return !it.IsEnd(), nil
}

// Close releases the pin on the iterator's current leaf.
func (it *Iterator) Close() error {
	if it.leaf == nil {
		return nil
	}
	pid := it.leaf.PageID
	it.leaf = nil
	it.frame = nil
	return it.tree.pool.UnpinPage(pid, false)
}
