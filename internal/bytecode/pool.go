package bytecode

import "sort"

// Pool is the flat, suffix-shared byte array every compiled program's
// bytes are interned into, plus the per-sequence offset each caller
// receives instead of its own copy.
type Pool struct {
	Flat []byte
}

// Intern merges programs sorted by descending length so any sequence that
// is a suffix of an already-interned one shares its storage, returning the
// flat pool and each input program's offset into it, in input order.
func Intern(sequences [][]byte) (Pool, []int) {
	order := make([]int, len(sequences))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return len(sequences[order[a]]) > len(sequences[order[b]])
	})

	var flat []byte
	offsets := make([]int, len(sequences))
	for i := range offsets {
		offsets[i] = -1
	}

	for _, idx := range order {
		seq := sequences[idx]
		if off, ok := findSuffix(flat, seq); ok {
			offsets[idx] = off
			continue
		}
		off := len(flat)
		flat = append(flat, seq...)
		offsets[idx] = off
	}

	return Pool{Flat: flat}, offsets
}

// findSuffix reports whether seq already appears as a contiguous run
// anywhere within flat (the tail of an interned sequence or any other
// stretch of its bytes), returning the offset of the first such run.
func findSuffix(flat, seq []byte) (int, bool) {
	if len(seq) == 0 {
		return 0, len(flat) == 0
	}
	for start := 0; start+len(seq) <= len(flat); start++ {
		if bytesEqual(flat[start:start+len(seq)], seq) {
			return start, true
		}
	}
	return 0, false
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
