package buffer

import (
	"fmt"
	"log"
	"sync"

	"bptreeindex/disk"
	"bptreeindex/storage"
)

// DiskManager is the contract the pool needs from its external collaborator:
// fixed-size block I/O plus page-id allocation.
type DiskManager interface {
	ReadPage(pid int64) ([]byte, error)
	WritePage(pid int64, data []byte) error
	AllocatePage() (int64, error)
	DeallocatePage(pid int64) error
}

// PoolManager maps page-id to frame and coordinates fetch/new/unpin/flush/
// delete against the disk manager and the LRU replacer. One mutex guards
// the page table, free list, replacer, and frame metadata; page bytes
// beyond that are protected by each frame's own latch.
type PoolManager struct {
	mu sync.Mutex

	frames    []*storage.Frame
	pageTable map[int64]int // page-id -> frame index
	freeList  []int         // indices into frames not currently resident

	replacer *LRUReplacer
	disk     DiskManager

	hits   int64
	misses int64

	// Verbose gates the [BufferPool] trace lines at hit/miss/evict/flush,
	// mirroring the teacher's fmt.Printf instrumentation without forcing
	// it on every test run.
	Verbose bool
}

// Stats is a point-in-time snapshot of pool occupancy and access counters,
// the way the teacher's BufferPoolStats reports pool health — extended here
// with cumulative hit/miss counts so a workload sweep can chart hit rate.
type Stats struct {
	TotalPages  int
	Capacity    int
	PinnedPages int
	DirtyPages  int
	Hits        int64
	Misses      int64
}

// HitRate returns Hits/(Hits+Misses), or 0 if the pool has never been
// accessed.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// GetStats reports the pool's current occupancy and cumulative hit/miss
// counters.
func (p *PoolManager) GetStats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := Stats{
		TotalPages: len(p.pageTable),
		Capacity:   len(p.frames),
		Hits:       p.hits,
		Misses:     p.misses,
	}
	for _, idx := range p.pageTable {
		f := p.frames[idx]
		if f.PinCount > 0 {
			stats.PinnedPages++
		}
		if f.IsDirty {
			stats.DirtyPages++
		}
	}
	return stats
}

// NewPoolManager builds a pool with poolSize frames backed by dm.
func NewPoolManager(poolSize int, dm DiskManager) *PoolManager {
	frames := make([]*storage.Frame, poolSize)
	free := make([]int, poolSize)
	for i := 0; i < poolSize; i++ {
		frames[i] = storage.NewFrame(disk.PageSize)
		free[i] = i
	}
	return &PoolManager{
		frames:    frames,
		pageTable: make(map[int64]int),
		freeList:  free,
		replacer:  NewLRUReplacer(),
		disk:      dm,
	}
}

func (p *PoolManager) logf(format string, args ...interface{}) {
	if p.Verbose {
		log.Printf("[BufferPool] "+format, args...)
	}
}

// FetchPage returns the frame holding pid, pinning it, loading it from disk
// first if it is not already resident. Returns an error if no frame can be
// made available (every frame is pinned).
func (p *PoolManager) FetchPage(pid int64) (*storage.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if idx, ok := p.pageTable[pid]; ok {
		f := p.frames[idx]
		if f.PinCount == 0 {
			p.replacer.Pin(int64(idx))
		}
		f.PinCount++
		p.hits++
		p.logf("HIT  pageID=%d pinCount=%d", pid, f.PinCount)
		return f, nil
	}

	p.misses++
	p.logf("MISS pageID=%d — loading from disk", pid)
	idx, err := p.initNewFrame(pid)
	if err != nil {
		return nil, fmt.Errorf("buffer: fetch page %d: %w", pid, err)
	}

	f := p.frames[idx]
	data, err := p.disk.ReadPage(pid)
	if err != nil {
		return nil, fmt.Errorf("buffer: fetch page %d: %w", pid, err)
	}
	copy(f.Bytes, data)
	return f, nil
}

// NewPage allocates a fresh page-id from disk, pins a frame for it, and
// returns the (pid, frame) pair. The frame starts dirty so it is written
// back even if the caller never mutates it beyond the allocation.
func (p *PoolManager) NewPage() (int64, *storage.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pid, err := p.disk.AllocatePage()
	if err != nil {
		return disk.InvalidPageID, nil, fmt.Errorf("buffer: new page: %w", err)
	}

	idx, err := p.initNewFrame(pid)
	if err != nil {
		return disk.InvalidPageID, nil, fmt.Errorf("buffer: new page %d: %w", pid, err)
	}
	f := p.frames[idx]
	f.IsDirty = true
	p.logf("NEW  pageID=%d", pid)
	return pid, f, nil
}

// UnpinPage decrements pid's pin count, OR-ing dirty into the frame's dirty
// flag. Once the pin count reaches zero the frame becomes evictable again.
// Returns an error if pid is not resident or was already unpinned to zero.
func (p *PoolManager) UnpinPage(pid int64, dirty bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.pageTable[pid]
	if !ok {
		return fmt.Errorf("buffer: unpin page %d: not resident", pid)
	}
	f := p.frames[idx]
	if dirty {
		f.IsDirty = true
	}
	if f.PinCount <= 0 {
		return fmt.Errorf("buffer: unpin page %d: pin count already zero", pid)
	}
	f.PinCount--
	if f.PinCount == 0 {
		p.replacer.Unpin(int64(idx))
	}
	return nil
}

// FlushPage writes pid to disk if it is resident and dirty.
func (p *PoolManager) FlushPage(pid int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushLocked(pid)
}

func (p *PoolManager) flushLocked(pid int64) error {
	idx, ok := p.pageTable[pid]
	if !ok {
		return fmt.Errorf("buffer: flush page %d: not resident", pid)
	}
	f := p.frames[idx]
	if !f.IsDirty {
		return nil
	}
	if err := p.disk.WritePage(pid, f.Bytes); err != nil {
		return fmt.Errorf("buffer: flush page %d: %w", pid, err)
	}
	f.IsDirty = false
	p.logf("FLUSH pageID=%d", pid)
	return nil
}

// FlushAllPages writes every resident dirty page to disk.
func (p *PoolManager) FlushAllPages() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for pid := range p.pageTable {
		if err := p.flushLocked(pid); err != nil {
			return err
		}
	}
	return nil
}

// DeletePage removes pid from the pool and tells disk to deallocate it.
// Fails if pid is still pinned. Deleting an id that is not resident is not
// an error (matches the spec's "unknown -> true" convention).
func (p *PoolManager) DeletePage(pid int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.pageTable[pid]
	if !ok {
		return nil
	}
	f := p.frames[idx]
	if f.PinCount > 0 {
		return fmt.Errorf("buffer: delete page %d: still pinned (pinCount=%d)", pid, f.PinCount)
	}

	p.replacer.Pin(int64(idx)) // remove from replacer before reset, per spec
	delete(p.pageTable, pid)
	f.Reset(disk.InvalidPageID)
	p.freeList = append(p.freeList, idx)

	if err := p.disk.DeallocatePage(pid); err != nil {
		return fmt.Errorf("buffer: delete page %d: %w", pid, err)
	}
	p.logf("DELETE pageID=%d", pid)
	return nil
}

// initNewFrame obtains a frame for pid — from the free list first, else by
// evicting the replacer's victim — and installs it in the page table pinned
// once. Must be called with p.mu held.
func (p *PoolManager) initNewFrame(pid int64) (int, error) {
	var idx int
	if n := len(p.freeList); n > 0 {
		idx = p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
	} else {
		victim, ok := p.replacer.Victim()
		if !ok {
			return 0, fmt.Errorf("no frame available: all pages pinned")
		}
		idx = int(victim)
		evicted := p.frames[idx]
		if evicted.IsDirty {
			if err := p.disk.WritePage(evicted.PageID, evicted.Bytes); err != nil {
				return 0, fmt.Errorf("flush evicted page %d: %w", evicted.PageID, err)
			}
			p.logf("EVICT pageID=%d dirty=true", evicted.PageID)
		} else {
			p.logf("EVICT pageID=%d dirty=false", evicted.PageID)
		}
		delete(p.pageTable, evicted.PageID)
	}

	f := p.frames[idx]
	f.Reset(pid)
	f.PinCount = 1
	p.pageTable[pid] = idx
	return idx, nil
}
