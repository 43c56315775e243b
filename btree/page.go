// Package btree implements the page layout, B+ tree algorithms, latch
// crabbing, iterator, and transaction context of the storage-index core.
package btree

import (
	"encoding/binary"
	"fmt"

	"bptreeindex/disk"
)

// PageType tags a page's variant, the way the on-page layout is dispatched
// by field rather than by runtime subclassing.
type PageType byte

const (
	InternalPageType PageType = 0
	LeafPageType     PageType = 1
)

const (
	headerSize = 32 // pageType,reserved,size,maxSize,reserved,pageID,parentPageID,nextPageID
)

// Node is the in-memory decoded view of one B+ tree page: header fields
// shared by both variants, plus either (keys, values, next) for a leaf or
// (keys, children) for an internal page. Keys/values/children are parallel
// arrays; for an internal node keys[0] is the unused placeholder the spec
// describes ("slot 0 holds (unused key, child0)").
type Node struct {
	PageID       int64
	ParentPageID int64
	Type         PageType
	Size         int
	MaxSize      int

	Keys     [][]byte
	Values   [][]byte // leaf only
	Children []int64  // internal only
	Next     int64    // leaf only

	dirty bool
}

func (n *Node) IsLeaf() bool     { return n.Type == LeafPageType }
func (n *Node) IsInternal() bool { return n.Type == InternalPageType }

// MinSize follows the spec's convention: internal balances on ceil(max/2),
// leaves on ceil((max-1)/2) — "fewer than half full".
func (n *Node) MinSize() int {
	if n.IsInternal() {
		return (n.MaxSize + 1) / 2
	}
	return n.MaxSize / 2
}

// NewLeafNode builds an empty leaf page record.
func NewLeafNode(pageID int64, maxSize int) *Node {
	return &Node{
		PageID:       pageID,
		ParentPageID: disk.InvalidPageID,
		Type:         LeafPageType,
		MaxSize:      maxSize,
		Next:         disk.InvalidPageID,
	}
}

// NewInternalNode builds an empty internal page record.
func NewInternalNode(pageID int64, maxSize int) *Node {
	return &Node{
		PageID:       pageID,
		ParentPageID: disk.InvalidPageID,
		Type:         InternalPageType,
		MaxSize:      maxSize,
	}
}

// Encode serializes the node into a PageSize-byte buffer, length-prefixing
// each variable-width key/value the way the teacher's node codec does.
func (n *Node) Encode() ([]byte, error) {
	buf := make([]byte, disk.PageSize)
	offset := 0

	buf[offset] = byte(n.Type)
	offset++
	offset++ // reserved

	binary.LittleEndian.PutUint16(buf[offset:], uint16(n.Size))
	offset += 2
	binary.LittleEndian.PutUint16(buf[offset:], uint16(n.MaxSize))
	offset += 2
	offset += 2 // reserved

	binary.LittleEndian.PutUint64(buf[offset:], uint64(n.PageID))
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:], uint64(n.ParentPageID))
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:], uint64(n.Next))
	offset += 8

	if offset != headerSize {
		return nil, fmt.Errorf("btree: internal error: header size drift (%d != %d)", offset, headerSize)
	}

	writeBytes := func(b []byte) error {
		if offset+2+len(b) > disk.PageSize {
			return fmt.Errorf("btree: page %d overflow while encoding", n.PageID)
		}
		binary.LittleEndian.PutUint16(buf[offset:], uint16(len(b)))
		offset += 2
		copy(buf[offset:], b)
		offset += len(b)
		return nil
	}

	if n.IsLeaf() {
		for i := 0; i < n.Size; i++ {
			if err := writeBytes(n.Keys[i]); err != nil {
				return nil, err
			}
			if err := writeBytes(n.Values[i]); err != nil {
				return nil, err
			}
		}
	} else {
		for i := 0; i < n.Size; i++ {
			if offset+8 > disk.PageSize {
				return nil, fmt.Errorf("btree: page %d overflow while encoding children", n.PageID)
			}
			binary.LittleEndian.PutUint64(buf[offset:], uint64(n.Children[i]))
			offset += 8
			if err := writeBytes(n.Keys[i]); err != nil {
				return nil, err
			}
		}
	}

	return buf, nil
}

// Decode reconstructs a Node from a PageSize-byte buffer produced by Encode.
func Decode(data []byte) (*Node, error) {
	if len(data) != disk.PageSize {
		return nil, fmt.Errorf("btree: decode: buffer is %d bytes, want %d", len(data), disk.PageSize)
	}

	n := &Node{}
	offset := 0

	n.Type = PageType(data[offset])
	offset++
	offset++ // reserved

	n.Size = int(binary.LittleEndian.Uint16(data[offset:]))
	offset += 2
	n.MaxSize = int(binary.LittleEndian.Uint16(data[offset:]))
	offset += 2
	offset += 2 // reserved

	n.PageID = int64(binary.LittleEndian.Uint64(data[offset:]))
	offset += 8
	n.ParentPageID = int64(binary.LittleEndian.Uint64(data[offset:]))
	offset += 8
	n.Next = int64(binary.LittleEndian.Uint64(data[offset:]))
	offset += 8

	readBytes := func() ([]byte, error) {
		if offset+2 > disk.PageSize {
			return nil, fmt.Errorf("btree: decode: overflow reading length")
		}
		l := int(binary.LittleEndian.Uint16(data[offset:]))
		offset += 2
		if offset+l > disk.PageSize {
			return nil, fmt.Errorf("btree: decode: overflow reading %d bytes", l)
		}
		b := make([]byte, l)
		copy(b, data[offset:offset+l])
		offset += l
		return b, nil
	}

	n.Keys = make([][]byte, n.Size)
	if n.IsLeaf() {
		n.Values = make([][]byte, n.Size)
		for i := 0; i < n.Size; i++ {
			k, err := readBytes()
			if err != nil {
				return nil, err
			}
			v, err := readBytes()
			if err != nil {
				return nil, err
			}
			n.Keys[i] = k
			n.Values[i] = v
		}
	} else {
		n.Children = make([]int64, n.Size)
		for i := 0; i < n.Size; i++ {
			if offset+8 > disk.PageSize {
				return nil, fmt.Errorf("btree: decode: overflow reading child %d", i)
			}
			n.Children[i] = int64(binary.LittleEndian.Uint64(data[offset:]))
			offset += 8
			k, err := readBytes()
			if err != nil {
				return nil, err
			}
			n.Keys[i] = k
		}
	}

	return n, nil
}
