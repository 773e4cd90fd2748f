package guestmem

// Memory is the guest's linear memory as provided by the VM.
//
// wazero's api.Memory satisfies this interface. Read may return a slice that
// aliases the guest memory; View never hands such a slice out.
type Memory interface {
	Size() uint32
	Read(offset, byteCount uint32) ([]byte, bool)
	Write(offset uint32, v []byte) bool
}

// View is a per-call window over a guest memory. It snapshots the memory
// length once and validates every range against that snapshot. Reads and
// writes re-check the live length immediately before access, so a memory that
// shrank underneath the view fails closed instead of faulting.
type View struct {
	mem  Memory
	size uint32
}

// NewView snapshots the current length of mem. A nil mem behaves as an empty
// memory.
func NewView(mem Memory) *View {
	if mem == nil {
		mem = NewBuffer(0)
	}
	return &View{mem: mem, size: mem.Size()}
}

// Size returns the length snapshot taken by NewView.
func (v *View) Size() uint32 {
	return v.size
}

// Validate validates (ptr, n) against the view's length snapshot.
func (v *View) Validate(ptr, n uint32) (Range, error) {
	return Validate(Request{Ptr: ptr, Len: n}, v.size)
}

// Read returns a private copy of the bytes in r.
func (v *View) Read(r Range) ([]byte, error) {
	if err := v.check(r); err != nil {
		return nil, err
	}
	out := make([]byte, r.len)
	if r.len == 0 {
		return out, nil
	}
	b, ok := v.mem.Read(r.ptr, r.len)
	if !ok || len(b) != int(r.len) {
		return nil, ErrOutOfBounds
	}
	copy(out, b)
	return out, nil
}

// Write copies data to the start of r. data must not be longer than r.
func (v *View) Write(r Range, data []byte) error {
	if err := v.check(r); err != nil {
		return err
	}
	if uint64(len(data)) > uint64(r.len) {
		return ErrInvalidRange
	}
	if len(data) == 0 {
		return nil
	}
	if !v.mem.Write(r.ptr, data) {
		return ErrOutOfBounds
	}
	return nil
}

func (v *View) check(r Range) error {
	if !r.valid {
		return ErrInvalidRange
	}
	if r.End() > v.size || r.End() > v.mem.Size() {
		return ErrOutOfBounds
	}
	return nil
}

// Buffer is a Memory backed by a byte slice.
type Buffer struct {
	data []byte
}

// NewBuffer returns a zeroed memory of size bytes.
func NewBuffer(size uint32) *Buffer {
	return &Buffer{data: make([]byte, size)}
}

// BufferFrom returns a memory that uses b as its storage.
func BufferFrom(b []byte) *Buffer {
	return &Buffer{data: b}
}

// Bytes returns the backing storage.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Size implements Memory.
func (b *Buffer) Size() uint32 {
	if uint64(len(b.data)) > uint64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(len(b.data))
}

// Read implements Memory. The returned slice aliases the buffer.
func (b *Buffer) Read(offset, byteCount uint32) ([]byte, bool) {
	end := uint64(offset) + uint64(byteCount)
	if end > uint64(b.Size()) {
		return nil, false
	}
	return b.data[offset:end:end], true
}

// Write implements Memory.
func (b *Buffer) Write(offset uint32, v []byte) bool {
	end := uint64(offset) + uint64(len(v))
	if end > uint64(b.Size()) {
		return false
	}
	copy(b.data[offset:end], v)
	return true
}
