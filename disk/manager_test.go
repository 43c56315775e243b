package disk

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestManagerAllocateReadWrite(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close()

	pid, err := m.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage: %v", err)
	}
	if pid != 1 {
		t.Fatalf("first allocated page = %d, want 1 (page 0 reserved for header)", pid)
	}

	payload := bytes.Repeat([]byte{0xAB}, PageSize)
	if err := m.WritePage(pid, payload); err != nil {
		t.Fatalf("WritePage: %v", err)
	}

	got, err := m.ReadPage(pid)
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("read back mismatch")
	}
}

func TestManagerPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")

	m1, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	pid, _ := m1.AllocatePage()
	payload := bytes.Repeat([]byte{0x42}, PageSize)
	if err := m1.WritePage(pid, payload); err != nil {
		t.Fatalf("WritePage: %v", err)
	}
	if err := m1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	m2, err := NewManager(path)
	if err != nil {
		t.Fatalf("reopen NewManager: %v", err)
	}
	defer m2.Close()

	got, err := m2.ReadPage(pid)
	if err != nil {
		t.Fatalf("ReadPage after reopen: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("data lost across reopen")
	}

	next, err := m2.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage after reopen: %v", err)
	}
	if next <= pid {
		t.Fatalf("allocator did not recover nextPage: got %d, want > %d", next, pid)
	}
}

func TestManagerWrongSizeRejected(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close()

	if err := m.WritePage(HeaderPageID, []byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error writing undersized page")
	}
}

func TestMemoryManagerRoundTrip(t *testing.T) {
	m := NewMemoryManager()
	pid, err := m.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage: %v", err)
	}
	payload := bytes.Repeat([]byte{0x7, 0x7}, PageSize/2)
	if err := m.WritePage(pid, payload); err != nil {
		t.Fatalf("WritePage: %v", err)
	}
	got, err := m.ReadPage(pid)
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("mismatch")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := m.ReadPage(pid); err == nil {
		t.Fatalf("expected error reading from closed manager")
	}
}
