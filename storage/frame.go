// Package storage defines the Frame: the fixed-size in-memory slot a buffer
// pool cycles pages through, carrying page bytes plus the pin/dirty/latch
// metadata the pool and the tree rely on for correctness.
package storage

import "sync"

// Frame is a resident page slot: raw bytes plus the bookkeeping the buffer
// pool manager and the B+ tree need. At most one page is ever mapped to a
// given Frame at a time.
//
// The reader/writer latch is embedded the way the teacher embeds one on its
// Page type — callers reach through Frame.RLock/Lock directly rather than
// threading a separate latch object around.
type Frame struct {
	mu sync.RWMutex

	Bytes    []byte
	PageID   int64
	PinCount int32
	IsDirty  bool
}

// NewFrame allocates a frame with a zeroed page-sized byte buffer.
func NewFrame(pageSize int) *Frame {
	return &Frame{Bytes: make([]byte, pageSize)}
}

// Lock/Unlock/RLock/RUnlock expose the frame's own latch so callers can
// write-latch or read-latch a page without separately tracking a lock.
func (f *Frame) Lock()    { f.mu.Lock() }
func (f *Frame) Unlock()  { f.mu.Unlock() }
func (f *Frame) RLock()   { f.mu.RLock() }
func (f *Frame) RUnlock() { f.mu.RUnlock() }

// RawBytes exposes the frame's backing buffer for page-layout encode/decode.
// Callers must hold the frame's latch (R or W, matching their access) first.
func (f *Frame) RawBytes() []byte { return f.Bytes }

// Reset clears a frame for reuse by InitNewFrame: new page-id, clean, and
// zeroed bytes. The buffer pool calls it under its own mutex, on a frame
// with pin count zero, without taking the frame's latch.
func (f *Frame) Reset(pageID int64) {
	for i := range f.Bytes {
		f.Bytes[i] = 0
	}
	f.PageID = pageID
	f.IsDirty = false
	f.PinCount = 0
}
