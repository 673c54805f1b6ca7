package unsafer

import (
	"unsafe"
)

// SliceToBytes interprets an arbitrary input slice as a byte slice.
//
// Note that the returned slice points to the same underlying data in memory. It
// does not make a copy.
func SliceToBytes[T any](input []T) []byte {
	if len(input) == 0 {
		return nil
	}
	size := int(unsafe.Sizeof(input[0])) * len(input)
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(input))), size)
}

// StructToBytes interprets the memory of the value pointed to by s as a byte
// slice. The returned slice aliases *s.
func StructToBytes[T any](s *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(s)), unsafe.Sizeof(*s))
}

// SliceBytesToUint32 copies data into a freshly allocated slice of uint32 words
// in host byte order. Trailing bytes which do not fill a whole word are dropped.
func SliceBytesToUint32(data []byte) []uint32 {
	words := make([]uint32, len(data)/4)
	if len(words) == 0 {
		return words
	}
	copy(SliceToBytes(words), data)
	return words
}

// BytesFrom returns a byte slice of the given length backed by the memory at
// ptr. It is used for reading mapped device memory and does not copy.
func BytesFrom(ptr unsafe.Pointer, length int) []byte {
	if ptr == nil || length == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(ptr), length)
}
