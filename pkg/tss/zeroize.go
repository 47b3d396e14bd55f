package tss

import "runtime"

// ZeroizeBytes overwrites buf with zeros and prevents compiler dead-store
// elimination via runtime.KeepAlive. This cannot guarantee the Go runtime
// never made an earlier copy of buf (GC moves, crypto library internals),
// but it is current best practice in the Go ecosystem for sensitive
// memory, following golang/go#33325.
//
// It is the default behind Context.Zeroize, which the backup subsystem
// applies to its DEK and abi.BufFree applies to released buffers.
// In-memory shares and Paillier private keys are not passed through it.
func ZeroizeBytes(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	runtime.KeepAlive(buf)
}
