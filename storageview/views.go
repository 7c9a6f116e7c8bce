package storageview

import (
	"encoding/binary"
	"math"

	"github.com/fieldforge/binaryarchive/internal/utils"
)

// ContiguousView adapts a flat byte slice into a StorageView whose elements
// are elemSize-byte chunks, for callers without their own strided array
// type: a thin, in-memory stand-in for the real external contract.
type ContiguousView struct {
	data     []byte
	elemSize int
}

// NewContiguousView wraps data as a StorageView with the given element
// size. len(data) must be a multiple of elemSize.
func NewContiguousView(elemSize int, data []byte) *ContiguousView {
	return &ContiguousView{data: data, elemSize: elemSize}
}

// SizeInBytes implements StorageView.
func (v *ContiguousView) SizeInBytes() int { return len(v.data) }

// BytesPerElement implements StorageView.
func (v *ContiguousView) BytesPerElement() int { return v.elemSize }

// Elements implements StorageView.
func (v *ContiguousView) Elements() ElementIterator {
	return &contiguousIterator{view: v, index: -1}
}

type contiguousIterator struct {
	view  *ContiguousView
	index int
}

func (it *contiguousIterator) Next() bool {
	it.index++
	return (it.index+1)*it.view.elemSize <= len(it.view.data)
}

func (it *contiguousIterator) Element() ElementHandle {
	start := it.index * it.view.elemSize
	return &byteElement{data: it.view.data[start : start+it.view.elemSize]}
}

func (it *contiguousIterator) Err() error { return nil }

type byteElement struct {
	data []byte
}

func (e *byteElement) Get() []byte { return e.data }

func (e *byteElement) Set(data []byte) { copy(e.data, data) }

// Float64View adapts a []float64 into a StorageView of 8-byte
// little-endian elements, for numeric callers that don't want to hand-roll
// an iterator over their own slice type.
type Float64View struct {
	data []float64
}

// NewFloat64View wraps data as a StorageView.
func NewFloat64View(data []float64) *Float64View {
	return &Float64View{data: data}
}

// SizeInBytes implements StorageView. The element-count-to-byte-count
// multiplication is overflow-checked; a view too large to express as an int
// reports a sentinel size that AllocateBuffer will refuse to honor, rather
// than silently wrapping.
func (v *Float64View) SizeInBytes() int {
	n, err := utils.SafeMultiply(uint64(len(v.data)), 8)
	if err != nil || n > math.MaxInt {
		return -1
	}
	return int(n)
}

// BytesPerElement implements StorageView.
func (v *Float64View) BytesPerElement() int { return 8 }

// Elements implements StorageView.
func (v *Float64View) Elements() ElementIterator {
	return &float64Iterator{view: v, index: -1}
}

type float64Iterator struct {
	view  *Float64View
	index int
}

func (it *float64Iterator) Next() bool {
	it.index++
	return it.index < len(it.view.data)
}

func (it *float64Iterator) Element() ElementHandle {
	return &float64Element{view: it.view, index: it.index}
}

func (it *float64Iterator) Err() error { return nil }

type float64Element struct {
	view  *Float64View
	index int
}

func (e *float64Element) Get() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(e.view.data[e.index]))
	return buf
}

func (e *float64Element) Set(data []byte) {
	e.view.data[e.index] = math.Float64frombits(binary.LittleEndian.Uint64(data))
}
