// Package heap implements the kernel's power-of-two buddy-style byte
// arena (spec §4.4). It backs the kmalloc/kmfree primitive. Message
// envelopes are not allocated from this arena: send appends them to the
// box's own FIFO in internal/mbox, so send never fails for lack of heap.
//
// A real buddy allocator embeds the block header inline in the arena and
// recovers it from the payload pointer via address arithmetic; Go has no
// portable way to do that over a byte slice, so headers are tracked in a
// side table keyed by arena offset instead. This is the one place in the
// port where an ecosystem library genuinely has nothing to offer: no
// pack dependency implements a buddy allocator, so this stays stdlib.
package heap

import "sort"

// Heap is a single contiguous arena partitioned into free lists keyed by
// power-of-two size class.
type Heap struct {
	arena   []byte
	classes []int // ascending size classes, in bytes, payload-only

	freeList map[int][]int // class size -> stack of arena offsets
	owner    map[int]int   // arena offset -> class size, for allocated blocks

	bytesInUse int
}

// New creates a heap over an arena of arenaSize bytes, with size classes
// doubling from minBlock to maxBlock inclusive. arenaSize must be a
// multiple of maxBlock.
func New(arenaSize, minBlock, maxBlock int) *Heap {
	var classes []int
	for c := minBlock; c <= maxBlock; c *= 2 {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	h := &Heap{
		arena:    make([]byte, arenaSize),
		classes:  classes,
		freeList: make(map[int][]int),
		owner:    make(map[int]int),
	}

	top := classes[len(classes)-1]
	for off := 0; off+top <= arenaSize; off += top {
		h.freeList[top] = append(h.freeList[top], off)
	}
	return h
}

// classFor returns the smallest declared class whose payload can hold n
// bytes, or 0 if none fits.
func (h *Heap) classFor(n int) int {
	for _, c := range h.classes {
		if c >= n {
			return c
		}
	}
	return 0
}

// Alloc returns a payload slice of at least n bytes, or (nil, false) if
// the arena has no free block large enough (spec §4.4: "out-of-memory
// returns null").
func (h *Heap) Alloc(n int) ([]byte, bool) {
	class := h.classFor(n)
	if class == 0 {
		return nil, false
	}

	off, ok := h.take(class)
	if !ok {
		return nil, false
	}

	h.owner[off] = class
	h.bytesInUse += class
	return h.arena[off : off+n : off+class], true
}

// take pops a free block of exactly class size, splitting the next
// larger available class recursively and pushing buddy halves down the
// hierarchy if the exact class has nothing free (spec §4.4 step 2).
func (h *Heap) take(class int) (int, bool) {
	if list := h.freeList[class]; len(list) > 0 {
		off := list[len(list)-1]
		h.freeList[class] = list[:len(list)-1]
		return off, true
	}

	idx := h.classIndex(class)
	if idx == -1 || idx == len(h.classes)-1 {
		return -1, false
	}
	larger := h.classes[idx+1]
	parent, ok := h.take(larger)
	if !ok {
		return -1, false
	}

	buddy := parent + class
	h.freeList[class] = append(h.freeList[class], buddy)
	return parent, true
}

func (h *Heap) classIndex(class int) int {
	for i, c := range h.classes {
		if c == class {
			return i
		}
	}
	return -1
}

// Free returns a previously allocated payload slice to its size class's
// free list. Buddy coalescing is not performed — spec §4.4 does not
// require it and the message layer never relies on it.
func (h *Heap) Free(p []byte) bool {
	if len(p) == 0 {
		return false
	}
	off := h.offsetOf(p)
	class, ok := h.owner[off]
	if !ok {
		return false
	}
	delete(h.owner, off)
	h.freeList[class] = append(h.freeList[class], off)
	h.bytesInUse -= class
	return true
}

// offsetOf returns the offset of p's first byte within the arena. Both
// slices share the same underlying array by construction (every payload
// slice handed out by Alloc is a sub-slice of h.arena), so this recovers
// the header bookkeeping Free needs without inline headers.
func (h *Heap) offsetOf(p []byte) int {
	if len(p) == 0 || len(h.arena) == 0 {
		return -1
	}
	for i := range h.arena {
		if &h.arena[i] == &p[0] {
			return i
		}
	}
	return -1
}

// BytesInUse reports the total payload bytes currently allocated,
// summed by size class (not including header bookkeeping, since none is
// stored inline).
func (h *Heap) BytesInUse() int {
	return h.bytesInUse
}

// FreeBytesTotal sums the payload capacity of every free block across all
// classes; used by the free-byte round-trip property in spec §8.
func (h *Heap) FreeBytesTotal() int {
	total := 0
	for class, list := range h.freeList {
		total += class * len(list)
	}
	return total
}
