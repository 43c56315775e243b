package btree

import (
	"fmt"

	"bptreeindex/disk"
)

// GetValue performs an equality lookup. It read-latches the header
// sentinel page first so root-pointer changes serialize against concurrent
// emptiness checks, then crabs read-latches down to the leaf.
func (t *BTree) GetValue(key []byte) ([]byte, bool, error) {
	tx := NewTransaction(OpRead)
	defer t.ReleaseAndUnpin(tx)

	headerFrame, err := t.pool.FetchPage(disk.HeaderPageID)
	if err != nil {
		return nil, false, fmt.Errorf("btree: GetValue: %w", err)
	}
	headerFrame.RLock()
	tx.AddIntoPageSet(headerFrame, false)

	rootID, ok, err := GetRootIDLocked(headerFrame, t.Name)
	if err != nil {
		return nil, false, err
	}
	if !ok || rootID == disk.InvalidPageID {
		return nil, false, nil
	}

	leaf, _, err := t.findLeafWithLock(rootID, key, OpRead, tx)
	if err != nil {
		return nil, false, err
	}
	val, found := leaf.Lookup(key, t.cmp)
	return val, found, nil
}
