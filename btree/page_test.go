package btree

import (
	"bytes"
	"testing"

	"bptreeindex/disk"
)

func TestLeafNodeEncodeDecodeRoundTrip(t *testing.T) {
	n := NewLeafNode(7, 4)
	n.ParentPageID = 3
	n.Next = 9
	n.Insert([]byte("b"), []byte("2"), bytes.Compare)
	n.Insert([]byte("a"), []byte("1"), bytes.Compare)
	n.Insert([]byte("c"), []byte("3"), bytes.Compare)

	data, err := n.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(data) != disk.PageSize {
		t.Fatalf("encoded length = %d, want %d", len(data), disk.PageSize)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.PageID != n.PageID || got.ParentPageID != n.ParentPageID || got.Next != n.Next {
		t.Fatalf("header mismatch: got %+v", got)
	}
	if !got.IsLeaf() || got.Size != 3 {
		t.Fatalf("got.IsLeaf()=%v got.Size=%d", got.IsLeaf(), got.Size)
	}
	for i, want := range []string{"a", "b", "c"} {
		if string(got.Keys[i]) != want {
			t.Errorf("key[%d] = %q, want %q", i, got.Keys[i], want)
		}
	}
}

func TestInternalNodeEncodeDecodeRoundTrip(t *testing.T) {
	n := NewInternalNode(5, 4)
	n.PopulateNewRoot(10, []byte("m"), 20)
	n.InsertNodeAfter(20, []byte("z"), 30)

	data, err := n.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.IsLeaf() || got.Size != 3 {
		t.Fatalf("got.IsLeaf()=%v got.Size=%d", got.IsLeaf(), got.Size)
	}
	wantChildren := []int64{10, 20, 30}
	for i, want := range wantChildren {
		if got.Children[i] != want {
			t.Errorf("child[%d] = %d, want %d", i, got.Children[i], want)
		}
	}
	if string(got.Keys[1]) != "m" || string(got.Keys[2]) != "z" {
		t.Fatalf("keys = %q, %q", got.Keys[1], got.Keys[2])
	}
}

func TestNodeMinSize(t *testing.T) {
	leaf := NewLeafNode(1, 5)
	if got, want := leaf.MinSize(), 2; got != want {
		t.Errorf("leaf MinSize() = %d, want %d", got, want)
	}
	internal := NewInternalNode(1, 5)
	if got, want := internal.MinSize(), 3; got != want {
		t.Errorf("internal MinSize() = %d, want %d", got, want)
	}
}
