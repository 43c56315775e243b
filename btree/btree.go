package btree

import (
	"fmt"

	"bptreeindex/buffer"
	"bptreeindex/disk"
	"bptreeindex/storage"
)

// BTree is the tree-level algorithm layer: find-leaf, insert-with-split,
// remove-with-coalesce-or-redistribute, adjust-root, on top of the page
// layout and buffer pool below it.
type BTree struct {
	Name string

	pool            *buffer.PoolManager
	cmp             Comparator
	leafMaxSize     int
	internalMaxSize int
}

// NewBTree opens (or creates) the named index backed by pool, ordering keys
// with cmp. leafMaxSize/internalMaxSize are the page-layout capacities for
// this index's pages.
func NewBTree(name string, pool *buffer.PoolManager, cmp Comparator, leafMaxSize, internalMaxSize int) *BTree {
	return &BTree{
		Name:            name,
		pool:            pool,
		cmp:             cmp,
		leafMaxSize:     leafMaxSize,
		internalMaxSize: internalMaxSize,
	}
}

// fetchNode fetches pid, latches its frame (write latch if write is true),
// decodes it into a Node, and records the latch in tx.
func (t *BTree) fetchNode(pid int64, write bool, tx *Transaction) (*Node, *storage.Frame, error) {
	f, err := t.pool.FetchPage(pid)
	if err != nil {
		return nil, nil, err
	}
	if write {
		f.Lock()
	} else {
		f.RLock()
	}
	n, err := Decode(f.RawBytes())
	if err != nil {
		if write {
			f.Unlock()
		} else {
			f.RUnlock()
		}
		t.pool.UnpinPage(pid, false)
		return nil, nil, err
	}
	tx.AddIntoPageSet(f, write)
	return n, f, nil
}

// writeBack re-encodes n into f's bytes and marks the frame dirty. Caller
// must hold f's write latch.
func writeBack(f *storage.Frame, n *Node) error {
	data, err := n.Encode()
	if err != nil {
		return err
	}
	copy(f.Bytes, data)
	f.IsDirty = true
	return nil
}

// ReleaseAndUnpin walks tx's latch set in acquisition order, unlatching and
// unpinning each page (dirty=true for non-read operations), then dispatches
// any scheduled deletions to the buffer pool. This is the single release
// site for a tree operation: every exit path, including error paths, must
// route through it.
func (t *BTree) ReleaseAndUnpin(tx *Transaction) error {
	dirty := tx.Mode != OpRead
	for _, lp := range tx.GetPageSet() {
		pid := lp.Frame.PageID
		if lp.Write {
			lp.Frame.Unlock()
		} else {
			lp.Frame.RUnlock()
		}
		if err := t.pool.UnpinPage(pid, dirty); err != nil {
			return fmt.Errorf("btree: release page %d: %w", pid, err)
		}
	}
	tx.ClearPageSet()

	for pid := range tx.GetDeletedPageSet() {
		if err := t.pool.DeletePage(pid); err != nil {
			return fmt.Errorf("btree: delete scheduled page %d: %w", pid, err)
		}
	}
	return nil
}

// IsSafe reports whether n is guaranteed not to propagate a structural
// change to its parent under the given operation mode.
func IsSafe(n *Node, mode OpMode) bool {
	switch mode {
	case OpInsert:
		return n.Size < n.MaxSize-1
	case OpDelete:
		return n.Size > n.MinSize()
	default:
		return true
	}
}

// releaseAncestors unlatches/unpins every page in tx except the most
// recently added one, used mid-descent once a child is found to be safe.
func (t *BTree) releaseAncestors(tx *Transaction) error {
	pages := tx.GetPageSet()
	if len(pages) <= 1 {
		return nil
	}
	keep := pages[len(pages)-1]
	for _, lp := range pages[:len(pages)-1] {
		pid := lp.Frame.PageID
		if lp.Write {
			lp.Frame.Unlock()
		} else {
			lp.Frame.RUnlock()
		}
		dirty := tx.Mode != OpRead
		if err := t.pool.UnpinPage(pid, dirty); err != nil {
			return fmt.Errorf("btree: release ancestor page %d: %w", pid, err)
		}
	}
	tx.pageSet = []latchedPage{keep}
	return nil
}

// IsEmpty reports whether the index currently has a root.
func (t *BTree) IsEmpty() (bool, error) {
	rootID, ok, err := GetRootID(t.pool, t.Name)
	if err != nil {
		return false, err
	}
	return !ok || rootID == disk.InvalidPageID, nil
}

// findLeafWithLock crabs from the header page down to the leaf that would
// contain key, latching each page per mode and releasing ancestors as soon
// as the descendant is safe (write modes) or immediately (read mode).
// headerFrame must already be latched and present in tx; findLeafWithLock
// adds every page it visits below it.
func (t *BTree) findLeafWithLock(rootID int64, key []byte, mode OpMode, tx *Transaction) (*Node, *storage.Frame, error) {
	write := mode != OpRead

	n, f, err := t.fetchNode(rootID, write, tx)
	if err != nil {
		return nil, nil, err
	}

	for {
		if mode == OpRead || IsSafe(n, mode) {
			if err := t.releaseAncestors(tx); err != nil {
				return nil, nil, err
			}
		}
		if n.IsLeaf() {
			return n, f, nil
		}
		childID := n.Lookup(key, t.cmp)
		n, f, err = t.fetchNode(childID, write, tx)
		if err != nil {
			return nil, nil, err
		}
	}
}
