package btree

import (
	"fmt"

	"bptreeindex/disk"
	"bptreeindex/storage"
)

// Remove deletes key if present. A miss is not an error — RemoveAndDelete
// already makes "not found" a no-op.
func (t *BTree) Remove(key []byte) error {
	tx := NewTransaction(OpDelete)
	defer t.ReleaseAndUnpin(tx)

	headerFrame, err := t.pool.FetchPage(disk.HeaderPageID)
	if err != nil {
		return fmt.Errorf("btree: Remove: %w", err)
	}
	headerFrame.Lock()
	tx.AddIntoPageSet(headerFrame, true)

	rootID, ok, err := GetRootIDLocked(headerFrame, t.Name)
	if err != nil {
		return err
	}
	if !ok || rootID == disk.InvalidPageID {
		return nil
	}

	leaf, leafFrame, err := t.findLeafWithLock(rootID, key, OpDelete, tx)
	if err != nil {
		return err
	}

	before := leaf.Size
	after := leaf.RemoveAndDelete(key, t.cmp)
	if after == before {
		return nil // key was absent
	}
	if err := writeBack(leafFrame, leaf); err != nil {
		return err
	}

	if leaf.Size < leaf.MinSize() {
		return t.coalesceOrRedistribute(headerFrame, leaf, leafFrame, tx)
	}
	return nil
}

// fetchInto fetches+write-latches pid and adds it to tx's latch set, so it
// is released together with everything else this operation touched when
// ReleaseAndUnpin runs — matching the spec's delete-path discipline of
// releasing all latches and pins in one sweep at the very end.
//
// pid is frequently the underflowing node's own parent, which crabbing may
// have already left write-latched in tx (any ancestor above an unsafe
// descendant stays latched — see btree.go's findLeafWithLock). Re-fetching
// and re-locking that same frame would deadlock this goroutine against
// itself on a non-reentrant sync.RWMutex, so the already-held frame is
// reused instead of relatched.
func (t *BTree) fetchInto(pid int64, tx *Transaction) (*Node, *storage.Frame, error) {
	if f, ok := tx.Held(pid); ok {
		n, err := Decode(f.RawBytes())
		if err != nil {
			return nil, nil, err
		}
		return n, f, nil
	}

	f, err := t.pool.FetchPage(pid)
	if err != nil {
		return nil, nil, err
	}
	f.Lock()
	n, err := Decode(f.RawBytes())
	if err != nil {
		f.Unlock()
		t.pool.UnpinPage(pid, false)
		return nil, nil, err
	}
	tx.AddIntoPageSet(f, true)
	return n, f, nil
}

// releaseUnused unlatches+unpins a frame that was fetched as a sibling
// candidate but turned out not to be needed — the spec's "release that
// sibling's latch and try the other" — without waiting for the
// transaction's final sweep. It must also drop the frame from tx's held
// set: fetchInto recorded it there, and leaving the entry behind would make
// ReleaseAndUnpin unlock the same frame a second time.
func (t *BTree) releaseUnused(tx *Transaction, f *storage.Frame) error {
	pid := f.PageID
	f.Unlock()
	tx.Forget(pid)
	return t.pool.UnpinPage(pid, false)
}

// coalesceOrRedistribute implements the spec's CoalesceOrRedistribute. node
// is known to be underfull; nodeFrame is already latched and tracked in tx.
func (t *BTree) coalesceOrRedistribute(headerFrame *storage.Frame, node *Node, nodeFrame *storage.Frame, tx *Transaction) error {
	if node.ParentPageID == disk.InvalidPageID {
		return t.adjustRoot(headerFrame, node, tx)
	}

	parent, parentFrame, err := t.fetchInto(node.ParentPageID, tx)
	if err != nil {
		return err
	}
	index := parent.ValueIndex(node.PageID)

	var left, right *Node
	var leftFrame, rightFrame *storage.Frame

	if index > 0 {
		leftID := parent.ValueAt(index - 1)
		left, leftFrame, err = t.fetchInto(leftID, tx)
		if err != nil {
			return err
		}
		if node.Size+left.Size < node.MaxSize {
			return t.coalesce(headerFrame, parent, parentFrame, left, leftFrame, node, nodeFrame, index, tx)
		}
	}

	if index+1 < parent.Size {
		rightID := parent.ValueAt(index + 1)
		right, rightFrame, err = t.fetchInto(rightID, tx)
		if err != nil {
			return err
		}
		if node.Size+right.Size < node.MaxSize {
			return t.coalesce(headerFrame, parent, parentFrame, node, nodeFrame, right, rightFrame, index+1, tx)
		}
	}

	// Neither sibling permits a coalesce: redistribute, preferring left.
	if left != nil {
		if right != nil {
			if err := t.releaseUnused(tx, rightFrame); err != nil {
				return err
			}
		}
		return t.redistribute(node, nodeFrame, left, leftFrame, parent, parentFrame, index, true)
	}
	return t.redistribute(node, nodeFrame, right, rightFrame, parent, parentFrame, index, false)
}

// coalesce merges right into left (left is the left-most of the pair),
// removes the separator at parentIndex from parent, schedules right for
// deletion, and recurses on parent if it now underflows.
func (t *BTree) coalesce(headerFrame *storage.Frame, parent *Node, parentFrame *storage.Frame, left *Node, leftFrame *storage.Frame, right *Node, rightFrame *storage.Frame, parentIndex int, tx *Transaction) error {
	if left.IsLeaf() {
		right.MoveAllTo(left)
		left.Next = right.Next
	} else {
		separator := parent.KeyAt(parentIndex)
		if err := right.MoveAllTo(left, separator, t.reparent); err != nil {
			return err
		}
	}
	if err := writeBack(leftFrame, left); err != nil {
		return err
	}

	parent.Remove(parentIndex)
	if err := writeBack(parentFrame, parent); err != nil {
		return err
	}

	// right's page-id, not its former slot index, is what gets scheduled —
	// the source this is grounded on unpins the slot index in this spot,
	// which is the bug the spec calls out; the page-id is what must go here.
	tx.AddIntoDeletedPageSet(right.PageID)

	if parent.Size < parent.MinSize() {
		return t.coalesceOrRedistribute(headerFrame, parent, parentFrame, tx)
	}
	return nil
}

// redistribute moves exactly one entry between node and sibling to cure
// node's underflow, then updates parent's separator. fromLeft indicates
// sibling is node's left neighbor and parentIndex is node's own slot index
// in parent; otherwise sibling is node's right neighbor at parentIndex+1.
func (t *BTree) redistribute(node *Node, nodeFrame *storage.Frame, sibling *Node, siblingFrame *storage.Frame, parent *Node, parentFrame *storage.Frame, parentIndex int, fromLeft bool) error {
	if node.IsLeaf() {
		if fromLeft {
			sibling.MoveLastToFrontOf(node)
			parent.SetKeyAt(parentIndex, node.KeyAt(0))
		} else {
			sibling.MoveFirstToEndOf(node)
			parent.SetKeyAt(parentIndex+1, sibling.KeyAt(0))
		}
	} else {
		if fromLeft {
			middleKey := parent.KeyAt(parentIndex)
			// The moved child's separator is sibling's last key as it stands
			// right now — MoveLastToFrontOf truncates it away, and node's
			// slot 0 key is always the unused placeholder, never the moved
			// value, so this must be captured before the move runs.
			newSeparator := sibling.KeyAt(sibling.Size - 1)
			if err := sibling.MoveLastToFrontOf(node, middleKey, t.reparent); err != nil {
				return err
			}
			parent.SetKeyAt(parentIndex, newSeparator)
		} else {
			middleKey := parent.KeyAt(parentIndex + 1)
			// Likewise here: sibling's slot 1 key is the separator that
			// follows the child being moved out from under slot 0.
			// MoveFirstToEndOf overwrites slot 0 with nil once it shifts, so
			// this must also be captured before the move runs.
			newSeparator := sibling.KeyAt(1)
			if err := sibling.MoveFirstToEndOf(node, middleKey, t.reparent); err != nil {
				return err
			}
			parent.SetKeyAt(parentIndex+1, newSeparator)
		}
	}

	if err := writeBack(nodeFrame, node); err != nil {
		return err
	}
	if err := writeBack(siblingFrame, sibling); err != nil {
		return err
	}
	return writeBack(parentFrame, parent)
}

// adjustRoot implements the spec's AdjustRoot for a node with no parent.
func (t *BTree) adjustRoot(headerFrame *storage.Frame, root *Node, tx *Transaction) error {
	if root.IsLeaf() {
		if root.Size == 0 {
			if err := UpdateRecordLocked(headerFrame, t.Name, disk.InvalidPageID); err != nil {
				return err
			}
			tx.AddIntoDeletedPageSet(root.PageID)
		}
		return nil
	}

	if root.Size == 1 {
		onlyChild := root.RemoveAndReturnOnlyChild()
		if err := t.reparent(onlyChild, disk.InvalidPageID); err != nil {
			return err
		}
		if err := UpdateRecordLocked(headerFrame, t.Name, onlyChild); err != nil {
			return err
		}
		tx.AddIntoDeletedPageSet(root.PageID)
		return nil
	}

	return nil
}
