package kozos

import "github.com/kozos-go/kozos/internal/constants"

// Config carries the kernel's compile-time sizing knobs, mirroring the
// teacher's DeviceParams/DefaultParams pattern.
type Config struct {
	ThreadNum      int
	PriorityNum    int
	StackArenaSize int
	HeapArenaSize  int
	HeapMinBlock   int
	HeapMaxBlock   int
	MsgBoxNum      int
}

// DefaultConfig returns the sizing used throughout internal/constants.
func DefaultConfig() *Config {
	return &Config{
		ThreadNum:      constants.ThreadNum,
		PriorityNum:    constants.PriorityNum,
		StackArenaSize: constants.DefaultStackArenaSize,
		HeapArenaSize:  constants.DefaultHeapArenaSize,
		HeapMinBlock:   constants.MinBlockSize,
		HeapMaxBlock:   constants.MaxBlockSize,
		MsgBoxNum:      constants.MsgBoxNum,
	}
}
