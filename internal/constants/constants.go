// Package constants holds the compile-time sizing knobs of the kernel.
package constants

// Thread pool and priority space sizing (spec §3: "THREAD_NUM >= 6").
const (
	// ThreadNum is the number of statically-declared TCB slots.
	ThreadNum = 16

	// PriorityNum is the number of distinct priority levels, 0 (highest,
	// interrupt-masked) through PriorityNum-1 (lowest, idle convention).
	PriorityNum = 16

	// ThreadNameMax is the printable-name buffer size, including the
	// NUL terminator (spec §3: "name: short printable identifier <= 15
	// chars + terminator").
	ThreadNameMax = 16
)

// Stack arena sizing. The arena is carved by a bump pointer that never
// reclaims on exit (spec §9 Open Questions: intentional).
const (
	// DefaultStackArenaSize is the total byte size of the per-thread
	// stack arena.
	DefaultStackArenaSize = 64 * 1024

	// DefaultStackSize is the stack size handed to a thread created
	// without an explicit size.
	DefaultStackSize = 4 * 1024
)

// Kernel heap sizing (spec §4.4: power-of-two buddy-style allocator).
const (
	// DefaultHeapArenaSize is the total byte size of the kernel heap
	// arena.
	DefaultHeapArenaSize = 128 * 1024

	// MinBlockSize is the smallest size class the heap will allocate
	// (payload only; block headers are kept in a side table, not inline).
	MinBlockSize = 16

	// MaxBlockSize is the largest size class; it must evenly divide
	// the heap arena.
	MaxBlockSize = 16 * 1024
)

// Message box sizing (spec §3/§4.5: "Fixed static array indexed by an
// enum of compile-time IDs").
const (
	// MsgBoxNum is the number of compile-time message-box slots.
	MsgBoxNum = 8
)
