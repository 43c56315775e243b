package btree

// Comparator orders two keys the way bytes.Compare does: negative if a<b,
// zero if equal, positive if a>b. The tree only ever sees keys through this.
type Comparator func(a, b []byte) int

// Lookup returns the value stored for key, if present.
func (n *Node) Lookup(key []byte, cmp Comparator) ([]byte, bool) {
	i, found := n.search(key, cmp)
	if !found {
		return nil, false
	}
	return n.Values[i], true
}

// search returns the index of key if present (found=true), else the
// insertion point that keeps Keys sorted.
func (n *Node) search(key []byte, cmp Comparator) (int, bool) {
	lo, hi := 0, n.Size
	for lo < hi {
		mid := (lo + hi) / 2
		c := cmp(n.Keys[mid], key)
		if c == 0 {
			return mid, true
		} else if c < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, false
}

// Insert adds (key, val) in sorted position. Caller must have already
// verified key is absent — duplicate keys are not supported.
func (n *Node) Insert(key, val []byte, cmp Comparator) {
	idx, _ := n.search(key, cmp)
	n.Keys = append(n.Keys, nil)
	n.Values = append(n.Values, nil)
	copy(n.Keys[idx+1:], n.Keys[idx:])
	copy(n.Values[idx+1:], n.Values[idx:])
	n.Keys[idx] = key
	n.Values[idx] = val
	n.Size++
	n.dirty = true
}

// RemoveAndDelete deletes key if present and returns the resulting size.
// If key is absent, size is unchanged.
func (n *Node) RemoveAndDelete(key []byte, cmp Comparator) int {
	idx, found := n.search(key, cmp)
	if !found {
		return n.Size
	}
	n.Keys = append(n.Keys[:idx], n.Keys[idx+1:]...)
	n.Values = append(n.Values[:idx], n.Values[idx+1:]...)
	n.Size--
	n.dirty = true
	return n.Size
}

// KeyIndex returns the first index whose key is >= target, i.e. where an
// iterator seeking target should land.
func (n *Node) KeyIndex(key []byte, cmp Comparator) int {
	idx, _ := n.search(key, cmp)
	return idx
}

func (n *Node) KeyAt(i int) []byte { return n.Keys[i] }

func (n *Node) GetItem(i int) ([]byte, []byte) { return n.Keys[i], n.Values[i] }

// MoveHalfTo moves the upper half of n's entries to dst, used when n
// (a leaf) splits after filling to MaxSize.
func (n *Node) MoveHalfTo(dst *Node) {
	mid := n.Size / 2
	dst.Keys = append(dst.Keys, n.Keys[mid:]...)
	dst.Values = append(dst.Values, n.Values[mid:]...)
	dst.Size = len(dst.Keys)
	n.Keys = n.Keys[:mid]
	n.Values = n.Values[:mid]
	n.Size = mid
	n.dirty = true
	dst.dirty = true
}

// MoveAllTo appends all of n's entries onto dst, used when n coalesces into
// a sibling during delete.
func (n *Node) MoveAllTo(dst *Node) {
	dst.Keys = append(dst.Keys, n.Keys...)
	dst.Values = append(dst.Values, n.Values...)
	dst.Size = len(dst.Keys)
	n.Keys, n.Values, n.Size = nil, nil, 0
	n.dirty = true
	dst.dirty = true
}

// MoveFirstToEndOf steals n's first entry onto the end of dst — used when
// redistributing from a right sibling into a left-of-it receiver.
func (n *Node) MoveFirstToEndOf(dst *Node) {
	dst.Keys = append(dst.Keys, n.Keys[0])
	dst.Values = append(dst.Values, n.Values[0])
	dst.Size++
	n.Keys = n.Keys[1:]
	n.Values = n.Values[1:]
	n.Size--
	n.dirty = true
	dst.dirty = true
}

// MoveLastToFrontOf steals n's last entry onto the front of dst — used when
// redistributing from a left sibling into a right-of-it receiver.
func (n *Node) MoveLastToFrontOf(dst *Node) {
	last := n.Size - 1
	dst.Keys = append([][]byte{n.Keys[last]}, dst.Keys...)
	dst.Values = append([][]byte{n.Values[last]}, dst.Values...)
	dst.Size++
	n.Keys = n.Keys[:last]
	n.Values = n.Values[:last]
	n.Size--
	n.dirty = true
	dst.dirty = true
}
