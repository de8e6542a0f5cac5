package bridge

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf16"
)

// Pointer is a typed, chainable handle onto a raw address in a Region. It is
// an immutable value: Offset, OffsetCE and ReadPointer all produce a new
// Pointer. A Pointer denotes a location, never a resource.
type Pointer struct {
	region Region
	addr   Address
}

// NewPointer builds a pointer onto addr inside r.
func NewPointer(r Region, addr Address) Pointer {
	return Pointer{region: r, addr: addr}
}

// Address returns the raw address the pointer denotes.
func (p Pointer) Address() Address {
	return p.addr
}

// IsNull reports whether the pointer denotes address 0.
func (p Pointer) IsNull() bool {
	return p.addr == 0
}

// Add returns a new pointer displaced by a signed byte offset, without any
// dereference.
func (p Pointer) Add(offset int64) Pointer {
	return Pointer{region: p.region, addr: p.addr.Add(offset)}
}

// Offset walks a pointer chain. Every step except the last adds the step to
// the current address and dereferences the pointer-sized value there; the
// final step only adds, yielding the address of the field itself rather than
// its contents. With no steps the pointer is returned unchanged.
func (p Pointer) Offset(steps ...int64) (Pointer, error) {
	cur := p.addr
	for i, step := range steps {
		cur = cur.Add(step)
		if i == len(steps)-1 {
			break
		}
		next, err := readPointerAt(p.region, cur)
		if err != nil {
			return Pointer{}, fmt.Errorf("offset step %d: deref at %s: %w", i, cur, err)
		}
		if next.IsNull() {
			return Pointer{}, fmt.Errorf("offset step %d at %s: %w", i, cur, ErrNullPointer)
		}
		cur = next
	}
	return Pointer{region: p.region, addr: cur}, nil
}

// OffsetCE walks a pointer chain the way pointer-scanner tools express them:
// the base pointer is dereferenced first, then each step adds its offset to
// the dereferenced value. The starting symbol is itself an indirection.
func (p Pointer) OffsetCE(steps ...int64) (Pointer, error) {
	if p.IsNull() {
		return Pointer{}, fmt.Errorf("offset_ce base: %w", ErrNullPointer)
	}
	cur := p.addr
	for i, step := range steps {
		val, err := readPointerAt(p.region, cur)
		if err != nil {
			return Pointer{}, fmt.Errorf("offset_ce step %d: deref at %s: %w", i, cur, err)
		}
		if val.IsNull() {
			return Pointer{}, fmt.Errorf("offset_ce step %d at %s: %w", i, cur, ErrNullPointer)
		}
		cur = val.Add(step)
	}
	return Pointer{region: p.region, addr: cur}, nil
}

// ReadPointer dereferences once and returns a new Pointer onto the loaded
// address.
func (p Pointer) ReadPointer() (Pointer, error) {
	addr, err := readPointerAt(p.region, p.addr)
	if err != nil {
		return Pointer{}, err
	}
	return Pointer{region: p.region, addr: addr}, nil
}

func readPointerAt(r Region, addr Address) (Address, error) {
	data, err := r.ReadMemory(addr, PointerSize)
	if err != nil {
		return 0, err
	}
	return Address(binary.LittleEndian.Uint64(data)), nil
}

// ReadBytes reads size raw bytes at the pointer.
func (p Pointer) ReadBytes(size Size) ([]byte, error) {
	return p.region.ReadMemory(p.addr, size)
}

// WriteBytes writes raw bytes at the pointer.
func (p Pointer) WriteBytes(data []byte) error {
	return p.region.WriteMemory(p.addr, data)
}

// Typed loads. Each moves exactly sizeof(T) bytes at the current address in
// the host's native (little-endian) order.

func (p Pointer) ReadU8() (uint8, error) {
	data, err := p.region.ReadMemory(p.addr, 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

func (p Pointer) ReadU16() (uint16, error) {
	data, err := p.region.ReadMemory(p.addr, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(data), nil
}

func (p Pointer) ReadU32() (uint32, error) {
	data, err := p.region.ReadMemory(p.addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data), nil
}

func (p Pointer) ReadU64() (uint64, error) {
	data, err := p.region.ReadMemory(p.addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(data), nil
}

func (p Pointer) ReadI8() (int8, error) {
	v, err := p.ReadU8()
	return int8(v), err
}

func (p Pointer) ReadI16() (int16, error) {
	v, err := p.ReadU16()
	return int16(v), err
}

func (p Pointer) ReadI32() (int32, error) {
	v, err := p.ReadU32()
	return int32(v), err
}

func (p Pointer) ReadI64() (int64, error) {
	v, err := p.ReadU64()
	return int64(v), err
}

func (p Pointer) ReadF32() (float32, error) {
	v, err := p.ReadU32()
	return math.Float32frombits(v), err
}

func (p Pointer) ReadF64() (float64, error) {
	v, err := p.ReadU64()
	return math.Float64frombits(v), err
}

// Typed stores. There is intentionally no WritePointer: pointer slots are
// read-only to callers (see ErrPointerFieldReadOnly).

func (p Pointer) WriteU8(v uint8) error {
	return p.region.WriteMemory(p.addr, []byte{v})
}

func (p Pointer) WriteU16(v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	return p.region.WriteMemory(p.addr, buf[:])
}

func (p Pointer) WriteU32(v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return p.region.WriteMemory(p.addr, buf[:])
}

func (p Pointer) WriteU64(v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return p.region.WriteMemory(p.addr, buf[:])
}

func (p Pointer) WriteI8(v int8) error   { return p.WriteU8(uint8(v)) }
func (p Pointer) WriteI16(v int16) error { return p.WriteU16(uint16(v)) }
func (p Pointer) WriteI32(v int32) error { return p.WriteU32(uint32(v)) }
func (p Pointer) WriteI64(v int64) error { return p.WriteU64(uint64(v)) }

func (p Pointer) WriteF32(v float32) error { return p.WriteU32(math.Float32bits(v)) }
func (p Pointer) WriteF64(v float64) error { return p.WriteU64(math.Float64bits(v)) }

// stringChunk is the granularity for NUL-terminator scanning so a terminator
// near a page boundary doesn't force reading past it.
const stringChunk = Size(0x10)

// ReadStringUTF8 follows one pointer indirection to a NUL-terminated UTF-8
// buffer and reads at most max bytes of it.
func (p Pointer) ReadStringUTF8(max Size) (string, error) {
	buf, err := p.ReadPointer()
	if err != nil {
		return "", fmt.Errorf("string buffer pointer at %s: %w", p.addr, err)
	}
	if buf.IsNull() {
		return "", fmt.Errorf("string buffer at %s: %w", p.addr, ErrNullPointer)
	}

	var out []byte
	for total := Size(0); total < max; {
		n := stringChunk
		if total+n > max {
			n = max - total
		}
		chunk, err := buf.region.ReadMemory(buf.addr.Add(int64(total)), n)
		if err != nil {
			return "", fmt.Errorf("read string at %s: %w", buf.addr, err)
		}
		for i, c := range chunk {
			if c == 0 {
				out = append(out, chunk[:i]...)
				return string(out), nil
			}
		}
		out = append(out, chunk...)
		total += n
	}
	return string(out), nil
}

// ReadStringUTF16 follows one pointer indirection to a NUL-terminated UTF-16LE
// buffer and reads at most max code units of it.
func (p Pointer) ReadStringUTF16(max Size) (string, error) {
	buf, err := p.ReadPointer()
	if err != nil {
		return "", fmt.Errorf("string buffer pointer at %s: %w", p.addr, err)
	}
	if buf.IsNull() {
		return "", fmt.Errorf("string buffer at %s: %w", p.addr, ErrNullPointer)
	}

	var units []uint16
	for total := Size(0); total < max; {
		n := stringChunk
		if total+n > max {
			n = max - total
		}
		chunk, err := buf.region.ReadMemory(buf.addr.Add(int64(total)*2), n*2)
		if err != nil {
			return "", fmt.Errorf("read string at %s: %w", buf.addr, err)
		}
		for i := 0; i+1 < len(chunk); i += 2 {
			u := binary.LittleEndian.Uint16(chunk[i:])
			if u == 0 {
				return string(utf16.Decode(units)), nil
			}
			units = append(units, u)
		}
		total += n
	}
	return string(utf16.Decode(units)), nil
}
