package btree

import "bptreeindex/storage"

// OpMode is the operation a Transaction is latching pages for, which
// governs both which kind of latch FindLeafWithLock takes and how
// ReleaseAndUnpin marks pages dirty on release.
type OpMode int

const (
	OpRead OpMode = iota
	OpInsert
	OpDelete
)

// latchedPage records one page this transaction currently holds a latch on,
// and which kind, so release can unlatch and unpin it correctly.
type latchedPage struct {
	Frame *storage.Frame
	Write bool
}

// Transaction is the per-operation accumulator latch-crabbing needs: an
// ordered list of currently-held pages (so release happens in acquisition
// order) and a set of page-ids scheduled for deletion once all latches are
// released. It is passed explicitly into every recursive helper rather than
// kept in thread-local state, because crabbing adds and removes members
// mid-operation.
type Transaction struct {
	Mode OpMode

	pageSet   []latchedPage
	deleteSet map[int64]bool
}

// NewTransaction opens a transaction context for a single tree operation.
func NewTransaction(mode OpMode) *Transaction {
	return &Transaction{
		Mode:      mode,
		deleteSet: make(map[int64]bool),
	}
}

// AddIntoPageSet records that f is currently latched (write latch if write
// is true, read latch otherwise) under this transaction's operation.
func (t *Transaction) AddIntoPageSet(f *storage.Frame, write bool) {
	t.pageSet = append(t.pageSet, latchedPage{Frame: f, Write: write})
}

// GetPageSet returns the latched pages in acquisition order.
func (t *Transaction) GetPageSet() []latchedPage {
	return t.pageSet
}

// ClearPageSet drops everything from the latch set without releasing
// anything — used once ReleaseAndUnpin has already unlatched/unpinned them.
func (t *Transaction) ClearPageSet() {
	t.pageSet = t.pageSet[:0]
}

// AddIntoDeletedPageSet schedules pid for deletion once the transaction's
// latches are released.
func (t *Transaction) AddIntoDeletedPageSet(pid int64) {
	t.deleteSet[pid] = true
}

// Held returns the frame already latched for pid under this transaction, if
// any. Crabbing keeps every ancestor above an unsafe descendant latched in
// pageSet, so any helper that needs to touch an ancestor again — to insert a
// split's separator into a parent, or to coalesce/redistribute an
// underflowing node against it — must check here first: sync.RWMutex is not
// reentrant, and fetching+relatching an already-held frame deadlocks the
// calling goroutine against itself.
func (t *Transaction) Held(pid int64) (*storage.Frame, bool) {
	for _, lp := range t.pageSet {
		if lp.Frame.PageID == pid {
			return lp.Frame, true
		}
	}
	return nil, false
}

// Forget drops pid's entry from pageSet without unlatching or unpinning it —
// used after a caller has released an already-held page itself, so the
// final ReleaseAndUnpin sweep does not try to release it a second time.
func (t *Transaction) Forget(pid int64) {
	for i, lp := range t.pageSet {
		if lp.Frame.PageID == pid {
			t.pageSet = append(t.pageSet[:i], t.pageSet[i+1:]...)
			return
		}
	}
}

// GetDeletedPageSet returns the scheduled deletions.
func (t *Transaction) GetDeletedPageSet() map[int64]bool {
	return t.deleteSet
}
