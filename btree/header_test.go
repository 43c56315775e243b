package btree

import (
	"testing"

	"bptreeindex/buffer"
	"bptreeindex/disk"
)

func TestHeaderRecordInsertAndUpdate(t *testing.T) {
	pool := buffer.NewPoolManager(4, disk.NewMemoryManager())

	f, err := pool.FetchPage(disk.HeaderPageID)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	f.Lock()
	if err := InsertRecordLocked(f, "idx_a", 5); err != nil {
		t.Fatalf("InsertRecordLocked: %v", err)
	}
	if err := InsertRecordLocked(f, "idx_b", 9); err != nil {
		t.Fatalf("InsertRecordLocked: %v", err)
	}
	f.Unlock()
	if err := pool.UnpinPage(disk.HeaderPageID, true); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}

	pid, ok, err := GetRootID(pool, "idx_a")
	if err != nil || !ok || pid != 5 {
		t.Fatalf("GetRootID(idx_a) = %d, %v, %v", pid, ok, err)
	}
	if _, ok, _ := GetRootID(pool, "idx_missing"); ok {
		t.Fatalf("GetRootID(idx_missing) unexpectedly found")
	}

	f, err = pool.FetchPage(disk.HeaderPageID)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	f.Lock()
	if err := UpdateRecordLocked(f, "idx_a", 50); err != nil {
		t.Fatalf("UpdateRecordLocked: %v", err)
	}
	f.Unlock()
	if err := pool.UnpinPage(disk.HeaderPageID, true); err != nil {
		t.Fatalf("UnpinPage: %v", err)
	}

	pid, ok, err = GetRootID(pool, "idx_a")
	if err != nil || !ok || pid != 50 {
		t.Fatalf("GetRootID(idx_a) after update = %d, %v, %v", pid, ok, err)
	}
	pid, ok, err = GetRootID(pool, "idx_b")
	if err != nil || !ok || pid != 9 {
		t.Fatalf("GetRootID(idx_b) = %d, %v, %v", pid, ok, err)
	}
}
