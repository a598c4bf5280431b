package engine

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// AtomicAddFloat64 adds delta to *addr with a compare-and-swap loop over the
// IEEE-754 bit pattern. addr must be 8-byte aligned, which holds for
// elements of a []float64.
func AtomicAddFloat64(addr *float64, delta float64) {
	bits := (*uint64)(unsafe.Pointer(addr))
	for {
		old := atomic.LoadUint64(bits)
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if atomic.CompareAndSwapUint64(bits, old, next) {
			return
		}
	}
}

// LoadFloat64 atomically reads *addr.
func LoadFloat64(addr *float64) float64 {
	return math.Float64frombits(atomic.LoadUint64((*uint64)(unsafe.Pointer(addr))))
}
