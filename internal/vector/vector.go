// Package vector implements the soft-vector façade consumed by the kernel
// core: a handler registry indexed by vector type, with two kernel-
// reserved vectors (spec §4.6). The low-level assembly entry this façade
// would sit behind in a real port ("softvec_setintr", "the common entry")
// is out of scope (spec §1) — this package is only the registry and the
// dispatch-by-vector-type step the kernel's interrupt path performs.
package vector

import "github.com/kozos-go/kozos/internal/syscall"

// Reserved vector types. SYSCALL is always handled by the trap dispatcher
// itself; SOFTERR's default handler prints "<name> DOWN." and destroys
// the current thread (spec §4.6).
const (
	Syscall = 0
	SoftErr = 1

	// NumReserved is the count of kernel-reserved vector slots; user
	// vectors are numbered starting here.
	NumReserved = 2
)

// Registry maps vector type to the handler registered via set_interrupt.
// A nil entry means no handler is installed for that vector.
type Registry struct {
	handlers []syscall.HandlerFunc
}

// NewRegistry creates a registry with n vector slots (spec §3:
// "handlers[SOFTVEC_TYPE_NUM]").
func NewRegistry(n int) *Registry {
	return &Registry{handlers: make([]syscall.HandlerFunc, n)}
}

// Set installs handler as the common entry's target for vectorType, per
// set_interrupt's two-step contract: register with the (out-of-scope)
// low-level façade, then store the handler here. Returns false if
// vectorType is out of range.
func (r *Registry) Set(vectorType int, handler syscall.HandlerFunc) bool {
	if vectorType < 0 || vectorType >= len(r.handlers) {
		return false
	}
	r.handlers[vectorType] = handler
	return true
}

// Get returns the handler registered for vectorType, if any.
func (r *Registry) Get(vectorType int) (syscall.HandlerFunc, bool) {
	if vectorType < 0 || vectorType >= len(r.handlers) {
		return nil, false
	}
	h := r.handlers[vectorType]
	return h, h != nil
}

// Len returns the number of vector slots.
func (r *Registry) Len() int {
	return len(r.handlers)
}
