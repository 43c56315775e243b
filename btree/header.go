package btree

import (
	"encoding/binary"
	"fmt"

	"bptreeindex/disk"
	"bptreeindex/storage"
)

// headerPool is the narrow slice of the buffer pool the convenience
// header-page helpers need: fetch/unpin page 0 under its own latch.
type headerPool interface {
	FetchPage(pid int64) (*storage.Frame, error)
	UnpinPage(pid int64, dirty bool) error
}

// decodeHeaderRecords parses page 0's body: count, then repeated
// (nameLen uint16, name bytes, rootPageID int64).
func decodeHeaderRecords(data []byte) map[string]int64 {
	records := make(map[string]int64)
	offset := 0
	if len(data) < 2 {
		return records
	}
	count := binary.LittleEndian.Uint16(data[offset:])
	offset += 2
	for i := uint16(0); i < count; i++ {
		if offset+2 > len(data) {
			break
		}
		nameLen := int(binary.LittleEndian.Uint16(data[offset:]))
		offset += 2
		if offset+nameLen+8 > len(data) {
			break
		}
		name := string(data[offset : offset+nameLen])
		offset += nameLen
		pid := int64(binary.LittleEndian.Uint64(data[offset:]))
		offset += 8
		records[name] = pid
	}
	return records
}

func encodeHeaderRecords(records map[string]int64, out []byte) error {
	for i := range out {
		out[i] = 0
	}
	offset := 2
	count := 0
	for name, pid := range records {
		need := offset + 2 + len(name) + 8
		if need > len(out) {
			return fmt.Errorf("btree: header page overflow with %d index records", len(records))
		}
		binary.LittleEndian.PutUint16(out[offset:], uint16(len(name)))
		offset += 2
		copy(out[offset:], name)
		offset += len(name)
		binary.LittleEndian.PutUint64(out[offset:], uint64(pid))
		offset += 8
		count++
	}
	binary.LittleEndian.PutUint16(out[0:], uint16(count))
	return nil
}

// GetRootIDLocked reads name's root page-id out of an already-latched
// header frame (R or W latch, caller's choice).
func GetRootIDLocked(f *storage.Frame, name string) (int64, bool, error) {
	records := decodeHeaderRecords(f.RawBytes())
	pid, ok := records[name]
	return pid, ok, nil
}

// setRecordLocked rewrites name's root mapping on an already write-latched
// header frame and marks it dirty. InsertRecordLocked and UpdateRecordLocked
// both call it, so both simply overwrite the map entry.
func setRecordLocked(f *storage.Frame, name string, rootPageID int64) error {
	records := decodeHeaderRecords(f.RawBytes())
	records[name] = rootPageID
	if err := encodeHeaderRecords(records, f.RawBytes()); err != nil {
		return err
	}
	f.IsDirty = true
	return nil
}

// InsertRecordLocked adds a brand-new index-name -> root mapping. Used
// whenever startNewTree installs the first root of an empty index, including
// one that was drained back to empty (the source's nonzero
// UpdateRootPageId(insert_record) call).
func InsertRecordLocked(f *storage.Frame, name string, rootPageID int64) error {
	return setRecordLocked(f, name, rootPageID)
}

// UpdateRecordLocked rewrites an existing mapping — used whenever the root
// of an already-initialized index changes.
func UpdateRecordLocked(f *storage.Frame, name string, rootPageID int64) error {
	return setRecordLocked(f, name, rootPageID)
}

// GetRootID is a standalone convenience for callers that are not already
// holding the header page latched as part of a larger operation.
func GetRootID(pool headerPool, name string) (int64, bool, error) {
	f, err := pool.FetchPage(disk.HeaderPageID)
	if err != nil {
		return disk.InvalidPageID, false, fmt.Errorf("btree: read header page: %w", err)
	}
	f.RLock()
	pid, ok, _ := GetRootIDLocked(f, name)
	f.RUnlock()
	if err := pool.UnpinPage(disk.HeaderPageID, false); err != nil {
		return disk.InvalidPageID, false, fmt.Errorf("btree: unpin header page: %w", err)
	}
	return pid, ok, nil
}
