package rangedb

import "sort"

// Lookup finds the record owning the address: the greatest start that
// is <= addr, accepted only if addr also fits under its end. Bounds
// are inclusive; addresses in gaps between records match nothing.
//
// The stride index narrows the search to one block of indexStride
// records before the binary search proper, so a ten-million-record
// table costs a handful of comparisons more than a ten-thousand one.
func (t *LoadedTable) Lookup(addr Uint128) (Payload, bool) {
	if len(t.starts) == 0 {
		return nil, false
	}

	// First block whose base is beyond addr; the owning record, if
	// any, lives in the block before it.
	block := sort.Search(len(t.idxStarts), func(i int) bool {
		return addr.Less(t.idxStarts[i])
	})

	if block == 0 {
		return nil, false
	}

	lo := (block - 1) * indexStride

	hi := lo + indexStride
	if hi > len(t.starts) {
		hi = len(t.starts)
	}

	// First record in the block with start > addr.
	n := sort.Search(hi-lo, func(i int) bool {
		return addr.Less(t.starts[lo+i])
	})

	idx := lo + n - 1
	if n == 0 || t.ends[idx].Less(addr) {
		return nil, false
	}

	return t.payloads[idx], true
}
