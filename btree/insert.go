package btree

import (
	"fmt"

	"bptreeindex/disk"
	"bptreeindex/storage"
)

// Insert performs a unique-key insertion, returning false (no mutation) if
// key already exists.
func (t *BTree) Insert(key, val []byte) (bool, error) {
	tx := NewTransaction(OpInsert)
	defer t.ReleaseAndUnpin(tx)

	headerFrame, err := t.pool.FetchPage(disk.HeaderPageID)
	if err != nil {
		return false, fmt.Errorf("btree: Insert: %w", err)
	}
	headerFrame.Lock()
	tx.AddIntoPageSet(headerFrame, true)

	rootID, ok, err := GetRootIDLocked(headerFrame, t.Name)
	if err != nil {
		return false, err
	}
	if !ok || rootID == disk.InvalidPageID {
		return t.startNewTree(headerFrame, key, val)
	}

	leaf, leafFrame, err := t.findLeafWithLock(rootID, key, OpInsert, tx)
	if err != nil {
		return false, err
	}
	if _, found := leaf.Lookup(key, t.cmp); found {
		return false, nil
	}

	leaf.Insert(key, val, t.cmp)
	if err := writeBack(leafFrame, leaf); err != nil {
		return false, err
	}

	// Split convention: leaves split once filled to exactly MaxSize.
	if leaf.Size == leaf.MaxSize {
		right, rightFrame, err := t.allocLeaf()
		if err != nil {
			return false, err
		}
		defer t.pool.UnpinPage(right.PageID, true)

		right.ParentPageID = leaf.ParentPageID
		leaf.MoveHalfTo(right)
		right.Next = leaf.Next
		leaf.Next = right.PageID
		if err := writeBack(leafFrame, leaf); err != nil {
			return false, err
		}
		if err := writeBack(rightFrame, right); err != nil {
			return false, err
		}

		if err := t.insertIntoParent(headerFrame, tx, leaf.PageID, right.KeyAt(0), right.PageID, leaf.ParentPageID); err != nil {
			return false, err
		}
	}

	return true, nil
}

// startNewTree allocates the first leaf of an empty index, inserts
// (key, val) into it, and records it as root via InsertRecordLocked — the
// "nonzero insert_record" case the header-page API distinguishes.
func (t *BTree) startNewTree(headerFrame *storage.Frame, key, val []byte) (bool, error) {
	leaf, leafFrame, err := t.allocLeaf()
	if err != nil {
		return false, err
	}
	defer t.pool.UnpinPage(leaf.PageID, true)

	leaf.Insert(key, val, t.cmp)
	if err := writeBack(leafFrame, leaf); err != nil {
		return false, err
	}

	if err := InsertRecordLocked(headerFrame, t.Name, leaf.PageID); err != nil {
		return false, err
	}
	return true, nil
}

// allocLeaf allocates a fresh page and formats it as an empty leaf.
func (t *BTree) allocLeaf() (*Node, *storage.Frame, error) {
	pid, f, err := t.pool.NewPage()
	if err != nil {
		return nil, nil, fmt.Errorf("btree: allocate leaf: %w", err)
	}
	n := NewLeafNode(pid, t.leafMaxSize)
	f.Lock()
	werr := writeBack(f, n)
	f.Unlock()
	if werr != nil {
		return nil, nil, werr
	}
	return n, f, nil
}

// allocInternal allocates a fresh page and formats it as an empty internal
// node.
func (t *BTree) allocInternal() (*Node, *storage.Frame, error) {
	pid, f, err := t.pool.NewPage()
	if err != nil {
		return nil, nil, fmt.Errorf("btree: allocate internal page: %w", err)
	}
	n := NewInternalNode(pid, t.internalMaxSize)
	f.Lock()
	werr := writeBack(f, n)
	f.Unlock()
	if werr != nil {
		return nil, nil, werr
	}
	return n, f, nil
}

// reparent fetches childID outside the caller's transaction latch set
// (a short-lived pin+write-latch) and rewrites its parent-page-id. Used by
// internal-page move operations, which must keep every moved child's
// parent_page_id in sync with its new home.
func (t *BTree) reparent(childID, newParentID int64) error {
	f, err := t.pool.FetchPage(childID)
	if err != nil {
		return fmt.Errorf("btree: reparent page %d: %w", childID, err)
	}
	f.Lock()
	n, err := Decode(f.RawBytes())
	if err != nil {
		f.Unlock()
		t.pool.UnpinPage(childID, false)
		return err
	}
	n.ParentPageID = newParentID
	werr := writeBack(f, n)
	f.Unlock()
	if werr != nil {
		t.pool.UnpinPage(childID, false)
		return werr
	}
	return t.pool.UnpinPage(childID, true)
}

// insertIntoParent implements the spec's InsertIntoParent: if old was the
// root, allocate a new root over (old, key, new); otherwise insert into
// old's existing parent and recurse if that parent now overflows.
func (t *BTree) insertIntoParent(headerFrame *storage.Frame, tx *Transaction, oldID int64, key []byte, newID int64, oldParentID int64) error {
	if oldParentID == disk.InvalidPageID {
		root, rootFrame, err := t.allocInternal()
		if err != nil {
			return err
		}
		defer t.pool.UnpinPage(root.PageID, true)

		root.PopulateNewRoot(oldID, key, newID)
		if err := writeBack(rootFrame, root); err != nil {
			return err
		}
		if err := t.reparent(oldID, root.PageID); err != nil {
			return err
		}
		if err := t.reparent(newID, root.PageID); err != nil {
			return err
		}
		return UpdateRecordLocked(headerFrame, t.Name, root.PageID)
	}

	// An unsafe leaf leaves every ancestor above it still latched in tx
	// (btree.go's findLeafWithLock only releases ancestors once a safe
	// descendant is found) — reuse that latch rather than re-fetching and
	// re-locking the same frame, which would deadlock this goroutine against
	// itself on a non-reentrant sync.RWMutex.
	parentFrame, held := tx.Held(oldParentID)
	if !held {
		var err error
		parentFrame, err = t.pool.FetchPage(oldParentID)
		if err != nil {
			return fmt.Errorf("btree: insertIntoParent: fetch parent %d: %w", oldParentID, err)
		}
		parentFrame.Lock()
	}
	parent, err := Decode(parentFrame.RawBytes())
	if err != nil {
		t.releaseParent(tx, parentFrame, oldParentID, false)
		return err
	}

	parent.InsertNodeAfter(oldID, key, newID)
	if err := writeBack(parentFrame, parent); err != nil {
		t.releaseParent(tx, parentFrame, oldParentID, false)
		return err
	}

	// Split convention: internals split strictly when they exceed MaxSize.
	if parent.Size <= parent.MaxSize {
		return t.releaseParent(tx, parentFrame, oldParentID, true)
	}

	siblingParentID := parent.ParentPageID
	right, rightFrame, err := t.allocInternal()
	if err != nil {
		t.releaseParent(tx, parentFrame, oldParentID, false)
		return err
	}
	defer t.pool.UnpinPage(right.PageID, true)
	right.ParentPageID = siblingParentID

	if err := parent.MoveHalfTo(right, t.reparent); err != nil {
		t.releaseParent(tx, parentFrame, oldParentID, false)
		return err
	}
	separator := right.KeyAt(0)

	if err := writeBack(parentFrame, parent); err != nil {
		t.releaseParent(tx, parentFrame, oldParentID, false)
		return err
	}
	if err := writeBack(rightFrame, right); err != nil {
		t.releaseParent(tx, parentFrame, oldParentID, false)
		return err
	}

	if err := t.releaseParent(tx, parentFrame, oldParentID, true); err != nil {
		return err
	}

	return t.insertIntoParent(headerFrame, tx, parent.PageID, separator, right.PageID, siblingParentID)
}

// releaseParent unlocks and unpins a parent frame insertIntoParent is done
// mutating, marking it dirty when dirty is true, and drops it from tx's
// held set — whether it was freshly fetched here or reused from an ancestor
// latch retained during crabbing — so ReleaseAndUnpin's final sweep never
// releases it a second time.
func (t *BTree) releaseParent(tx *Transaction, parentFrame *storage.Frame, pid int64, dirty bool) error {
	parentFrame.Unlock()
	tx.Forget(pid)
	return t.pool.UnpinPage(pid, dirty)
}
