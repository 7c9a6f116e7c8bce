// Package utils provides small allocation and overflow-checking helpers
// shared by the archive engine.
package utils

import "sync"

var bufferPool = sync.Pool{
	New: func() interface{} {
		return make([]byte, 0, 4096)
	},
}

// getBuffer returns a byte slice of exactly size bytes, reusing pooled
// capacity where possible.
func getBuffer(size int) []byte {
	buf := bufferPool.Get().([]byte)
	if cap(buf) < size {
		return make([]byte, size) //nolint:staticcheck // SA6002 n/a here, no pooled slice to wrap
	}
	buf = buf[:size]
	clear(buf)
	return buf
}

// ReleaseBuffer returns a buffer obtained from AllocateBuffer to the pool.
func ReleaseBuffer(buf []byte) {
	//nolint:staticcheck // SA6002: slice descriptor copy is acceptable for sync.Pool
	bufferPool.Put(buf[:0])
}

// AllocateBuffer returns a zeroed buffer of exactly size bytes, recovering
// from an allocation failure (Go turns an impossible make() into a runtime
// panic rather than an error) and reporting it as an ordinary error instead
// of letting the panic reach the caller.
func AllocateBuffer(size int) (buf []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf = nil
			err = errOutOfMemory(size, r)
		}
	}()
	return getBuffer(size), nil
}
