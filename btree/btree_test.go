package btree

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"testing"

	"bptreeindex/buffer"
	"bptreeindex/disk"
)

func newTestTree(t *testing.T, poolSize, leafMax, internalMax int) *BTree {
	t.Helper()
	pool := buffer.NewPoolManager(poolSize, disk.NewMemoryManager())
	return NewBTree("t1", pool, bytes.Compare, leafMax, internalMax)
}

func key(i int) []byte { return []byte(fmt.Sprintf("k%04d", i)) }
func val(i int) []byte { return []byte(fmt.Sprintf("v%04d", i)) }

// S1: a handful of inserts that never overflow a single leaf.
func TestBTreeInsertAndGetNoSplit(t *testing.T) {
	tr := newTestTree(t, 16, 8, 8)
	for i := 0; i < 5; i++ {
		ok, err := tr.Insert(key(i), val(i))
		if err != nil || !ok {
			t.Fatalf("Insert(%d) = %v, %v", i, ok, err)
		}
	}
	for i := 0; i < 5; i++ {
		v, found, err := tr.GetValue(key(i))
		if err != nil || !found || !bytes.Equal(v, val(i)) {
			t.Fatalf("GetValue(%d) = %q, %v, %v", i, v, found, err)
		}
	}
	if _, found, _ := tr.GetValue(key(99)); found {
		t.Fatalf("GetValue(99) unexpectedly found")
	}
}

// S2: enough inserts to force repeated leaf splits and a cascading internal
// split, then confirm every key is still reachable.
func TestBTreeInsertCascadeSplit(t *testing.T) {
	tr := newTestTree(t, 64, 4, 4)
	const n = 200
	for i := 0; i < n; i++ {
		ok, err := tr.Insert(key(i), val(i))
		if err != nil || !ok {
			t.Fatalf("Insert(%d) = %v, %v", i, ok, err)
		}
	}
	for i := 0; i < n; i++ {
		v, found, err := tr.GetValue(key(i))
		if err != nil || !found || !bytes.Equal(v, val(i)) {
			t.Fatalf("GetValue(%d) = %q, %v, %v", i, v, found, err)
		}
	}
}

// Duplicate insert is rejected without mutating the tree.
func TestBTreeInsertDuplicateRejected(t *testing.T) {
	tr := newTestTree(t, 16, 4, 4)
	if ok, err := tr.Insert(key(1), val(1)); err != nil || !ok {
		t.Fatalf("first insert: %v, %v", ok, err)
	}
	if ok, err := tr.Insert(key(1), val(99)); err != nil || ok {
		t.Fatalf("duplicate insert = %v, %v, want false/nil", ok, err)
	}
	v, _, _ := tr.GetValue(key(1))
	if !bytes.Equal(v, val(1)) {
		t.Fatalf("value overwritten by rejected duplicate insert: %q", v)
	}
}

// S3: deletes in the middle of the key-space. The underflowing leaves
// coalesce with a sibling, and the internal underflow that follows is cured
// by redistributing from an internal sibling.
func TestBTreeDeleteRedistribute(t *testing.T) {
	tr := newTestTree(t, 64, 4, 4)
	const n = 40
	for i := 0; i < n; i++ {
		if _, err := tr.Insert(key(i), val(i)); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	// Remove every other key in the middle of the key-space; the surviving
	// key of each emptied-out pair is merged into a neighbouring leaf.
	for i := 10; i < 20; i += 2 {
		if err := tr.Remove(key(i)); err != nil {
			t.Fatalf("Remove(%d): %v", i, err)
		}
	}
	for i := 0; i < n; i++ {
		v, found, err := tr.GetValue(key(i))
		wantFound := !(i >= 10 && i < 20 && i%2 == 0)
		if err != nil {
			t.Fatalf("GetValue(%d): %v", i, err)
		}
		if found != wantFound {
			t.Fatalf("GetValue(%d) found=%v, want %v", i, found, wantFound)
		}
		if found && !bytes.Equal(v, val(i)) {
			t.Fatalf("GetValue(%d) = %q, want %q", i, v, val(i))
		}
	}
}

// Deletes that cascade past the leaf level and force internal nodes to
// redistribute against internal siblings many times over, in both
// directions, where TestBTreeDeleteRedistribute above does so only once.
func TestBTreeDeleteForcesInternalRedistribute(t *testing.T) {
	tr := newTestTree(t, 128, 4, 3)
	const n = 300
	for i := 0; i < n; i++ {
		if _, err := tr.Insert(key(i), val(i)); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	// Remove a large contiguous block from the middle of the key-space. The
	// inserts above cascade-split deep enough (internalMax=3) that draining
	// this many adjacent leaves forces coalesce/redistribute up past the
	// leaf level into the internal nodes routing to them.
	const lo, hi = 80, 220
	for i := lo; i < hi; i++ {
		if err := tr.Remove(key(i)); err != nil {
			t.Fatalf("Remove(%d): %v", i, err)
		}
	}

	removed := func(i int) bool { return i >= lo && i < hi }
	for i := 0; i < n; i++ {
		v, found, err := tr.GetValue(key(i))
		if err != nil {
			t.Fatalf("GetValue(%d): %v", i, err)
		}
		if found == removed(i) {
			t.Fatalf("GetValue(%d) found=%v, want %v", i, found, !removed(i))
		}
		if found && !bytes.Equal(v, val(i)) {
			t.Fatalf("GetValue(%d) = %q, want %q", i, v, val(i))
		}
	}

	// A corrupted (nil) separator from a buggy redistribute would break
	// routing and show up here as missing keys or an ordering violation.
	it, err := tr.begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer it.Close()

	var prev []byte
	count := 0
	for !it.IsEnd() {
		if prev != nil && bytes.Compare(prev, it.Key()) >= 0 {
			t.Fatalf("keys out of order: %q then %q", prev, it.Key())
		}
		prev = append([]byte(nil), it.Key()...)
		count++
		more, err := it.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !more {
			break
		}
	}
	if want := n - (hi - lo); count != want {
		t.Fatalf("iterator produced %d keys, want %d", count, want)
	}
}

// S4/S5: drain the whole tree via repeated deletes, including root shrink
// through AdjustRoot, down to empty.
func TestBTreeFullDrain(t *testing.T) {
	tr := newTestTree(t, 64, 4, 4)
	const n = 100
	for i := 0; i < n; i++ {
		if _, err := tr.Insert(key(i), val(i)); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	for i := 0; i < n; i++ {
		if err := tr.Remove(key(i)); err != nil {
			t.Fatalf("Remove(%d): %v", i, err)
		}
	}
	empty, err := tr.IsEmpty()
	if err != nil {
		t.Fatalf("IsEmpty: %v", err)
	}
	if !empty {
		t.Fatalf("tree not empty after draining all keys")
	}
	for i := 0; i < n; i++ {
		if _, found, _ := tr.GetValue(key(i)); found {
			t.Fatalf("GetValue(%d) found after full drain", i)
		}
	}
}

// Removing an absent key is a silent no-op.
func TestBTreeRemoveAbsentKeyIsNoop(t *testing.T) {
	tr := newTestTree(t, 16, 4, 4)
	if _, err := tr.Insert(key(1), val(1)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := tr.Remove(key(2)); err != nil {
		t.Fatalf("Remove(absent) returned error: %v", err)
	}
	if v, found, _ := tr.GetValue(key(1)); !found || !bytes.Equal(v, val(1)) {
		t.Fatalf("surviving key disturbed by no-op remove: %q, %v", v, found)
	}
}

// Iterator walks every key in order across leaf boundaries.
func TestBTreeIteratorOrdersAcrossLeaves(t *testing.T) {
	tr := newTestTree(t, 64, 4, 4)
	const n = 60
	want := make([]int, 0, n)
	for i := n - 1; i >= 0; i-- { // insert out of order
		if _, err := tr.Insert(key(i), val(i)); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	for i := 0; i < n; i++ {
		want = append(want, i)
	}
	sort.Ints(want)

	it, err := tr.begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer it.Close()

	var got []int
	for !it.IsEnd() {
		var i int
		fmt.Sscanf(string(it.Key()), "k%04d", &i)
		got = append(got, i)
		more, err := it.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !more {
			break
		}
	}
	if len(got) != len(want) {
		t.Fatalf("iterator produced %d keys, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

// Begin(target) lands on the first key >= target.
func TestBTreeIteratorBeginSeeksTarget(t *testing.T) {
	tr := newTestTree(t, 64, 4, 4)
	for i := 0; i < 30; i += 2 { // even keys only
		if _, err := tr.Insert(key(i), val(i)); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	it, err := tr.Begin(key(7)) // odd, absent: should land on key(8)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer it.Close()
	if it.IsEnd() {
		t.Fatalf("iterator at end, want a match")
	}
	if !bytes.Equal(it.Key(), key(8)) {
		t.Fatalf("Key() = %q, want %q", it.Key(), key(8))
	}
}

// Concurrent readers alongside a single writer must never see a torn read:
// every value observed for a key, once visible, must be correct.
func TestBTreeConcurrentReadersAndWriter(t *testing.T) {
	tr := newTestTree(t, 64, 4, 4)
	const n = 150
	for i := 0; i < n/2; i++ {
		if _, err := tr.Insert(key(i), val(i)); err != nil {
			t.Fatalf("seed Insert(%d): %v", i, err)
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := n / 2; i < n; i++ {
			if _, err := tr.Insert(key(i), val(i)); err != nil {
				t.Errorf("writer Insert(%d): %v", i, err)
			}
		}
	}()

	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < n/2; i++ {
				v, found, err := tr.GetValue(key(i))
				if err != nil {
					t.Errorf("reader GetValue(%d): %v", i, err)
					continue
				}
				if !found || !bytes.Equal(v, val(i)) {
					t.Errorf("reader GetValue(%d) = %q, %v", i, v, found)
				}
			}
		}()
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if _, found, err := tr.GetValue(key(i)); err != nil || !found {
			t.Fatalf("post-check GetValue(%d) = %v, %v", i, found, err)
		}
	}
}
