package interp

import (
	"encoding/binary"
	"fmt"
)

// The byte heap is append-only within a session. It starts with one
// reserved byte so address 0 reliably means null; Free is a no-op.

func (v *Vm) heapAlloc(size int, zeroed bool) int64 {
	if size == 0 {
		return 0
	}
	_ = zeroed // the heap grows zero-filled either way
	addr := int64(len(v.heap))
	v.heap = append(v.heap, make([]byte, size)...)
	return addr
}

func (v *Vm) heapCheckRange(addr int64, length int) (int, error) {
	if length == 0 {
		if addr < 0 {
			return 0, nil
		}
		return int(addr), nil
	}
	if addr <= 0 {
		return 0, fmt.Errorf("null pointer")
	}
	end := addr + int64(length)
	if end < addr || end > int64(len(v.heap)) {
		return 0, fmt.Errorf("pointer out of range")
	}
	return int(addr), nil
}

func (v *Vm) heapSlice(addr int64, length int) ([]byte, error) {
	start, err := v.heapCheckRange(addr, length)
	if err != nil {
		return nil, err
	}
	return v.heap[start : start+length], nil
}

func (v *Vm) heapTail(addr int64) ([]byte, error) {
	if addr <= 0 {
		return nil, fmt.Errorf("null pointer")
	}
	if addr >= int64(len(v.heap)) {
		return nil, fmt.Errorf("pointer out of range")
	}
	return v.heap[addr:], nil
}

func (v *Vm) heapWriteBytes(addr int64, bs []byte) error {
	if len(bs) == 0 {
		return nil
	}
	start, err := v.heapCheckRange(addr, len(bs))
	if err != nil {
		return err
	}
	copy(v.heap[start:], bs)
	return nil
}

func (v *Vm) heapReadU8(addr int64) (byte, error) {
	s, err := v.heapSlice(addr, 1)
	if err != nil {
		return 0, err
	}
	return s[0], nil
}

func (v *Vm) heapWriteU8(addr int64, val byte) error {
	start, err := v.heapCheckRange(addr, 1)
	if err != nil {
		return err
	}
	v.heap[start] = val
	return nil
}

func (v *Vm) heapReadIntLE(addr int64, bytes int) (int64, error) {
	if bytes <= 0 || bytes > 8 {
		return 0, fmt.Errorf("heap read: unsupported integer width")
	}
	s, err := v.heapSlice(addr, bytes)
	if err != nil {
		return 0, err
	}
	var buf [8]byte
	copy(buf[:], s)
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

func (v *Vm) heapWriteIntLE(addr int64, bytes int, val int64) error {
	if bytes <= 0 || bytes > 8 {
		return fmt.Errorf("heap write: unsupported integer width")
	}
	start, err := v.heapCheckRange(addr, bytes)
	if err != nil {
		return err
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(val))
	copy(v.heap[start:start+bytes], buf[:bytes])
	return nil
}

// allocString copies a Go string into the heap with a trailing NUL.
func (v *Vm) allocString(s string) (int64, error) {
	bs := []byte(s)
	addr := v.heapAlloc(len(bs)+1, true)
	if err := v.heapWriteBytes(addr, bs); err != nil {
		return 0, err
	}
	return addr, nil
}

// readCStr reads a NUL-terminated string from the heap. Address 0
// yields the empty string.
func (v *Vm) readCStr(addr int64) (string, error) {
	if addr == 0 {
		return "", nil
	}
	var bs []byte
	for i := int64(0); i < 1<<20; i++ {
		b, err := v.heapReadU8(addr + i)
		if err != nil {
			return "", err
		}
		if b == 0 {
			break
		}
		bs = append(bs, b)
	}
	return string(bs), nil
}

// allocClassValue instantiates an object from a class definition,
// populating fields with defaults and array extents.
func (v *Vm) allocClassValue(name string) (Value, error) {
	def, ok := v.program.Classes[name]
	if !ok {
		return Value{}, fmt.Errorf("unknown class: %s", name)
	}
	obj := NewObject()
	for _, field := range def.Fields {
		var val Value
		var err error
		if len(field.ArrayLens) > 0 {
			val, err = v.evalArrayValue(field.Ty, field.Pointer, field.ArrayLens, field.Init)
		} else {
			val, err = v.defaultValueForType(field.Ty, field.Pointer)
		}
		if err != nil {
			return Value{}, fmt.Errorf("%s.%s: %w", name, field.Name, err)
		}
		obj.Fields[field.Name] = val
	}
	return ObjV(obj), nil
}

// loadDolDocBin maps a bin number of a source file into the heap and
// caches the pointer. A missing number falls back to the nearest
// available bin rather than failing, since some vendored exports carry
// truncated tails.
func (v *Vm) loadDolDocBin(file string, binNum uint32) (int64, int, error) {
	key := binKey{file: file, num: binNum}
	if addr, ok := v.binPtrCache[key]; ok {
		return addr, v.binLenByPtr[addr], nil
	}

	bins, ok := v.program.BinsByFile[file]
	if !ok {
		return 0, 0, fmt.Errorf("DolDoc bin: file not found in preprocessor output: %s", file)
	}

	bytesVal, ok := bins[binNum]
	if !ok {
		fallback, found := nearestBinNum(bins, binNum)
		if found {
			addr, length, err := v.loadDolDocBin(file, fallback)
			if err != nil {
				return 0, 0, err
			}
			v.binPtrCache[key] = addr
			return addr, length, nil
		}
		bytesVal = nil
	}

	if len(bytesVal) == 0 {
		addr := v.heapAlloc(1, true)
		v.binPtrCache[key] = addr
		v.binLenByPtr[addr] = 0
		return addr, 0, nil
	}
	addr := v.heapAlloc(len(bytesVal)+1, true)
	if err := v.heapWriteBytes(addr, bytesVal); err != nil {
		return 0, 0, err
	}
	v.binPtrCache[key] = addr
	v.binLenByPtr[addr] = len(bytesVal)
	return addr, len(bytesVal), nil
}

// nearestBinNum picks the closest non-zero bin at or below num, then
// any non-zero bin, then bin 0.
func nearestBinNum(bins map[uint32][]byte, num uint32) (uint32, bool) {
	var best uint32
	found := false
	for n := range bins {
		if n == 0 || n > num {
			continue
		}
		if !found || n > best {
			best = n
			found = true
		}
	}
	if found {
		return best, true
	}
	for n := range bins {
		if n != 0 {
			return n, true
		}
	}
	if _, ok := bins[0]; ok {
		return 0, true
	}
	return 0, false
}
