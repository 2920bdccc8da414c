package kozos

import "github.com/kozos-go/kozos/internal/tcb"

// ThreadInfo reports a snapshot of one thread's bookkeeping, the kozos
// equivalent of the teacher's Device.Info() — debugging introspection,
// not part of the primitive set a thread calls on itself.
type ThreadInfo struct {
	Handle   int
	Name     string
	Priority int
	Ready    bool
	State    string
	Box      int
}

func stateName(s tcb.State) string {
	switch s {
	case tcb.StateFree:
		return "free"
	case tcb.StateRunnable:
		return "runnable"
	case tcb.StateRunning:
		return "running"
	case tcb.StateBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// ThreadInfo returns a point-in-time snapshot of the named thread, or
// ok == false if handle is out of range or the slot is free.
func (k *Kernel) ThreadInfo(handle int) (info ThreadInfo, ok bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if handle < 0 || handle >= len(k.pool.Threads) {
		return ThreadInfo{}, false
	}
	t := &k.pool.Threads[handle]
	if t.State == tcb.StateFree {
		return ThreadInfo{}, false
	}

	state := t.State
	if handle == k.current {
		state = tcb.StateRunning
	}

	return ThreadInfo{
		Handle:   handle,
		Name:     t.Name,
		Priority: t.Priority,
		Ready:    t.IsReady(),
		State:    stateName(state),
		Box:      t.Box,
	}, true
}

// Snapshot reports every live thread's ThreadInfo, in TCB-index order.
func (k *Kernel) Snapshot() []ThreadInfo {
	k.mu.Lock()
	defer k.mu.Unlock()

	var infos []ThreadInfo
	for idx := range k.pool.Threads {
		t := &k.pool.Threads[idx]
		if t.State == tcb.StateFree {
			continue
		}
		state := t.State
		if idx == k.current {
			state = tcb.StateRunning
		}
		infos = append(infos, ThreadInfo{
			Handle:   idx,
			Name:     t.Name,
			Priority: t.Priority,
			Ready:    t.IsReady(),
			State:    stateName(state),
			Box:      t.Box,
		})
	}
	return infos
}
