package marshal

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
)

type fakeFunc func(ctx context.Context, params []uint64) ([]uint64, error)

func (fn fakeFunc) Call(ctx context.Context, params ...uint64) ([]uint64, error) {
	return fn(ctx, params)
}

// fakeLibrary is an in-memory native library with a bump allocator.
type fakeLibrary struct {
	mem   fakeMemory
	next  uint32
	live  map[uint32]uint32
	frees []uint32
	funcs map[string]fakeFunc
	calls map[string]int

	// failAlloc makes the n-th allocation (1-based) return null.
	failAlloc int
	allocs    int
	allocated []uint32
	freeErr   error
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{
		mem:   make(fakeMemory, 64*1024),
		next:  1024,
		live:  map[uint32]uint32{},
		funcs: map[string]fakeFunc{},
		calls: map[string]int{},
	}
}

func (l *fakeLibrary) fn(name string, f fakeFunc) {
	l.funcs[name] = f
}

func (l *fakeLibrary) Function(name string) Function {
	f, ok := l.funcs[name]
	if !ok {
		return nil
	}
	return fakeFunc(func(ctx context.Context, params []uint64) ([]uint64, error) {
		l.calls[name]++
		return f(ctx, params)
	})
}

func (l *fakeLibrary) Memory() Memory {
	return l.mem
}

func (l *fakeLibrary) Allocate(_ context.Context, size uint32) (uint32, error) {
	l.allocs++
	if l.allocs == l.failAlloc {
		return 0, nil
	}
	ptr := l.next
	l.next += (size + 7) &^ 7
	l.live[ptr] = size
	l.allocated = append(l.allocated, ptr)
	return ptr, nil
}

func (l *fakeLibrary) Free(_ context.Context, ptr uint32) error {
	l.frees = append(l.frees, ptr)
	if _, ok := l.live[ptr]; !ok {
		return fmt.Errorf("double free of %d", ptr)
	}
	delete(l.live, ptr)
	return l.freeErr
}

// cstring stores s with a terminator and returns its address.
func (l *fakeLibrary) cstring(s string) uint32 {
	ptr := l.next
	l.next += uint32(len(s)+8) &^ 7
	copy(l.mem[ptr:], s)
	l.mem[ptr+uint32(len(s))] = 0
	return ptr
}

func (l *fakeLibrary) readCString(ptr uint32) string {
	end := bytes.IndexByte(l.mem[ptr:], 0)
	return string(l.mem[ptr : ptr+uint32(end)])
}

func (l *fakeLibrary) putUint64(ptr uint32, v uint64) {
	binary.LittleEndian.PutUint64(l.mem[ptr:], v)
}

func (l *fakeLibrary) uint64At(ptr uint32) uint64 {
	return binary.LittleEndian.Uint64(l.mem[ptr:])
}

type fakeMemory []byte

func (m fakeMemory) Read(offset, size uint32) ([]byte, bool) {
	if uint64(offset)+uint64(size) > uint64(len(m)) {
		return nil, false
	}
	return m[offset : offset+size], true
}

func (m fakeMemory) Write(offset uint32, data []byte) bool {
	if uint64(offset)+uint64(len(data)) > uint64(len(m)) {
		return false
	}
	copy(m[offset:], data)
	return true
}

func (m fakeMemory) Size() uint32 {
	return uint32(len(m))
}

// recorder tracks acquisitions and releases made through recordingStrategy.
type recorder struct {
	failAt   int
	acquired []int
	released []int
	counts   map[int]int
}

func newRecorder(failAt int) *recorder {
	return &recorder{failAt: failAt, counts: map[int]int{}}
}

type recordingStrategy struct {
	r *recorder
}

func (s recordingStrategy) Acquire(_ *Frame, spec ParamSpec, _ any) (Acquired, error) {
	pos := spec.Position
	if pos == s.r.failAt {
		return Acquired{}, fmt.Errorf("forced failure: %w", ErrAllocationFailure)
	}
	s.r.acquired = append(s.r.acquired, pos)
	return Acquired{
		Native: uint64(pos * 10),
		Release: func(context.Context) error {
			s.r.released = append(s.r.released, pos)
			s.r.counts[pos]++
			return nil
		},
	}, nil
}

// eventObserver records call events as strings.
type eventObserver struct {
	events   []string
	released []int
	finished []error
}

func (o *eventObserver) Begin(context.Context, *Descriptor) CallObserver { return o }

func (o *eventObserver) Acquired(pos int) { o.events = append(o.events, fmt.Sprintf("acquired %d", pos)) }

func (o *eventObserver) AcquireFailed(pos int, _ error) {
	o.events = append(o.events, fmt.Sprintf("failed %d", pos))
}

func (o *eventObserver) Invoked() { o.events = append(o.events, "invoked") }

func (o *eventObserver) Released(pos int) {
	o.events = append(o.events, fmt.Sprintf("released %d", pos))
	o.released = append(o.released, pos)
}

func (o *eventObserver) Finished(err error) { o.finished = append(o.finished, err) }

// stubErrorContext answers error queries from fixed values.
type stubErrorContext struct {
	code    int32
	codeErr error
	msgs    map[int32]string
	asked   []int32
}

func (c *stubErrorContext) Code(context.Context) (int32, error) {
	return c.code, c.codeErr
}

func (c *stubErrorContext) Message(_ context.Context, code int32) (string, error) {
	c.asked = append(c.asked, code)
	msg, ok := c.msgs[code]
	if !ok {
		return "", errors.New("no message")
	}
	return msg, nil
}

func mustDescriptor(name string, ret ReturnStrategy, params []ParamSpec, opts ...DescriptorOption) *Descriptor {
	d, err := NewDescriptor(name, ret, params, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

func handles(n int) []ParamSpec {
	ps := make([]ParamSpec, n)
	for i := range ps {
		ps[i] = HandleParam()
	}
	return ps
}
