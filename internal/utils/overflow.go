package utils

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutOfMemory is wrapped by every error AllocateBuffer returns.
var ErrOutOfMemory = errors.New("buffer allocation failed")

func errOutOfMemory(size int, recovered any) error {
	return fmt.Errorf("%w: requested %d bytes: %v", ErrOutOfMemory, size, recovered)
}

// CheckMultiplyOverflow reports an error if a*b would overflow uint64.
func CheckMultiplyOverflow(a, b uint64) error {
	if a == 0 || b == 0 {
		return nil
	}
	if a > math.MaxUint64/b {
		return fmt.Errorf("multiplication overflow: %d * %d exceeds uint64 max", a, b)
	}
	return nil
}

// SafeMultiply multiplies a and b, failing instead of wrapping on overflow.
func SafeMultiply(a, b uint64) (uint64, error) {
	if err := CheckMultiplyOverflow(a, b); err != nil {
		return 0, err
	}
	return a * b, nil
}
