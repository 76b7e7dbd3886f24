// Package dictionary implements the front-coded, block-based sorted
// string dictionary described in spec.md §4.A: a bijection between a
// set of strings and the contiguous id range [1,N], sorted
// lexicographically and stored in fixed-size blocks where every
// non-head entry records only the prefix length it shares with its
// block's first entry plus its suffix.
package dictionary

import "sort"

// DefaultBlockSize is used when a store does not configure one
// explicitly.
const DefaultBlockSize = 8

type entry struct {
	prefixLen int
	suffix    string
}

// Dictionary is an immutable id<->string bijection for the strings
// first introduced by a single layer, in a single id space (nodes,
// predicates, or values).
type Dictionary struct {
	blockSize  int
	blockHeads []string  // first full string of each block, ascending
	blocks     [][]entry // blocks[i][0] is always {len(blockHeads[i]), ""}
	size       int
}

// Build constructs a Dictionary over the given strings. Duplicates are
// collapsed; ids are assigned 1-based in sorted order, so the same
// multiset of strings always yields the same dictionary regardless of
// input order (§8 property 4, commit idempotence).
func Build(strs []string, blockSize int) *Dictionary {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	sorted := append([]string(nil), strs...)
	sort.Strings(sorted)
	sorted = dedupe(sorted)

	d := &Dictionary{blockSize: blockSize, size: len(sorted)}
	for i := 0; i < len(sorted); i += blockSize {
		end := i + blockSize
		if end > len(sorted) {
			end = len(sorted)
		}
		block := sorted[i:end]
		head := block[0]
		entries := make([]entry, len(block))
		entries[0] = entry{prefixLen: len(head), suffix: ""}
		for j := 1; j < len(block); j++ {
			entries[j] = entry{prefixLen: sharedPrefixLen(head, block[j]), suffix: suffixAfter(head, block[j])}
		}
		d.blockHeads = append(d.blockHeads, head)
		d.blocks = append(d.blocks, entries)
	}
	return d
}

func dedupe(sorted []string) []string {
	if len(sorted) == 0 {
		return sorted
	}
	out := sorted[:1]
	for _, s := range sorted[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}

func sharedPrefixLen(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func suffixAfter(head, s string) string {
	n := sharedPrefixLen(head, s)
	return s[n:]
}

func decode(head string, e entry) string {
	return head[:e.prefixLen] + e.suffix
}

// Size returns the number of strings held by this dictionary alone
// (not counting any parent chain).
func (d *Dictionary) Size() int { return d.size }

// IDOf returns the 1-based id of s within this dictionary, or false if
// s is not present.
func (d *Dictionary) IDOf(s string) (uint64, bool) {
	if len(d.blockHeads) == 0 {
		return 0, false
	}
	blockIdx := sort.Search(len(d.blockHeads), func(i int) bool { return d.blockHeads[i] > s }) - 1
	if blockIdx < 0 {
		return 0, false
	}
	head := d.blockHeads[blockIdx]
	block := d.blocks[blockIdx]
	for j, e := range block {
		if decode(head, e) == s {
			return uint64(blockIdx*d.blockSize + j + 1), true
		}
	}
	return 0, false
}

// Strings returns every string held by this dictionary, in id order
// (so index 0 is id 1, and so on). Used by storage backends that need
// to persist or rebuild a dictionary from scratch.
func (d *Dictionary) Strings() []string {
	out := make([]string, 0, d.size)
	for i, block := range d.blocks {
		head := d.blockHeads[i]
		for _, e := range block {
			out = append(out, decode(head, e))
		}
	}
	return out
}

// StringOf returns the string assigned to the 1-based id within this
// dictionary, or false if out of range.
func (d *Dictionary) StringOf(id uint64) (string, bool) {
	if id < 1 || int(id) > d.size {
		return "", false
	}
	pos := int(id) - 1
	blockIdx := pos / d.blockSize
	offset := pos % d.blockSize
	return decode(d.blockHeads[blockIdx], d.blocks[blockIdx][offset]), true
}
