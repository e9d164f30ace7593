package marshal

import (
	"context"
	"encoding/binary"
	"fmt"
)

var builtinStrategies = [...]Strategy{
	KindValue:       valueStrategy{},
	KindHandle:      handleStrategy{},
	KindHandleOut:   handleOutStrategy{},
	KindString:      stringStrategy{},
	KindArray:       arrayStrategy{},
	KindHandleArray: handleArrayStrategy{},
}

type valueStrategy struct{}

func (valueStrategy) Acquire(f *Frame, spec ParamSpec, arg any) (Acquired, error) {
	slot, ok := encodeValue(spec.Type, arg)
	if !ok {
		return Acquired{}, argError(f.desc.Name, spec.Position, ErrPreconditionViolation,
			"cannot use %T as %s", arg, spec.Type)
	}
	return Acquired{Native: slot}, nil
}

type handleStrategy struct{}

func (handleStrategy) Acquire(f *Frame, spec ParamSpec, arg any) (Acquired, error) {
	switch h := arg.(type) {
	case nil:
	case Handle:
		if h != Null {
			return Acquired{Native: uint64(h)}, nil
		}
	default:
		return Acquired{}, argError(f.desc.Name, spec.Position, ErrPreconditionViolation,
			"cannot use %T as handle", arg)
	}
	return Acquired{}, argError(f.desc.Name, spec.Position, ErrNullHandle, "handle is null")
}

type handleOutStrategy struct{}

func (handleOutStrategy) Acquire(f *Frame, spec ParamSpec, arg any) (Acquired, error) {
	ref, ok := arg.(*HandleRef)
	if !ok || ref == nil {
		return Acquired{}, argError(f.desc.Name, spec.Position, ErrPreconditionViolation,
			"output handle needs a non-nil *HandleRef, got %T", arg)
	}
	cell, err := f.Scratch()
	if err != nil {
		return Acquired{}, asError(f.desc.Name, spec.Position, err)
	}
	mem := f.lib.Memory()
	return Acquired{
		Native: uint64(cell),
		Writeback: func() {
			b, ok := mem.Read(cell, handleWidth)
			if !ok {
				panic(fmt.Sprintf("output handle cell %d out of range", cell))
			}
			ref.Handle = Handle(binary.LittleEndian.Uint64(b))
		},
	}, nil
}

type stringStrategy struct{}

func (stringStrategy) Acquire(f *Frame, spec ParamSpec, arg any) (Acquired, error) {
	var data []byte
	switch s := arg.(type) {
	case string:
		data = []byte(s)
	case []byte:
		if s == nil {
			return Acquired{}, argError(f.desc.Name, spec.Position, ErrPreconditionViolation, "string is nil")
		}
		data = s
	default:
		return Acquired{}, argError(f.desc.Name, spec.Position, ErrPreconditionViolation,
			"cannot use %T as string", arg)
	}

	buf := make([]byte, len(data)+1)
	copy(buf, data)
	ptr, err := f.allocate(uint32(len(buf)))
	if err != nil {
		return Acquired{}, argError(f.desc.Name, spec.Position, ErrAllocationFailure,
			"string buffer of %d bytes: %v", len(buf), err)
	}
	if !f.lib.Memory().Write(ptr, buf) {
		f.freeNow(ptr)
		return Acquired{}, argError(f.desc.Name, spec.Position, ErrAllocationFailure,
			"string buffer at %d out of range", ptr)
	}
	return Acquired{Native: uint64(ptr), Release: freeFunc(f, ptr)}, nil
}

type arrayStrategy struct{}

func (arrayStrategy) Acquire(f *Frame, spec ParamSpec, arg any) (Acquired, error) {
	switch s := arg.(type) {
	case []int32:
		return acquireArray(f, spec, s)
	case []uint32:
		return acquireArray(f, spec, s)
	case []int64:
		return acquireArray(f, spec, s)
	case []uint64:
		return acquireArray(f, spec, s)
	case []float32:
		return acquireArray(f, spec, s)
	case []float64:
		return acquireArray(f, spec, s)
	}
	return Acquired{}, argError(f.desc.Name, spec.Position, ErrPreconditionViolation,
		"cannot use %T as %s array", arg, spec.Type)
}

func acquireArray[T number](f *Frame, spec ParamSpec, src []T) (Acquired, error) {
	if src == nil {
		return Acquired{}, argError(f.desc.Name, spec.Position, ErrPreconditionViolation, "array is nil")
	}
	if len(src) == 0 {
		return Acquired{}, nil
	}

	buf := make([]byte, len(src)*int(spec.Type.Width()))
	if spec.Direction != Out {
		encodeElems(spec.Type, src, buf)
	}
	ptr, err := f.allocate(uint32(len(buf)))
	if err != nil {
		return Acquired{}, argError(f.desc.Name, spec.Position, ErrAllocationFailure,
			"array of %d elements: %v", len(src), err)
	}
	if !f.lib.Memory().Write(ptr, buf) {
		f.freeNow(ptr)
		return Acquired{}, argError(f.desc.Name, spec.Position, ErrAllocationFailure,
			"array buffer at %d out of range", ptr)
	}

	acq := Acquired{Native: uint64(ptr), Release: freeFunc(f, ptr)}
	if spec.Direction.writesBack() {
		acq.Writeback = arrayWriteback(f.lib.Memory(), spec.Type, ptr, src)
	}
	return acq, nil
}

type handleArrayStrategy struct{}

func (handleArrayStrategy) Acquire(f *Frame, spec ParamSpec, arg any) (Acquired, error) {
	handles, ok := arg.([]Handle)
	if !ok || handles == nil {
		return Acquired{}, argError(f.desc.Name, spec.Position, ErrPreconditionViolation,
			"cannot use %T as handle array", arg)
	}
	if len(handles) == 0 {
		return Acquired{}, nil
	}

	ptr, err := f.allocate(uint32(len(handles) * handleWidth))
	if err != nil {
		return Acquired{}, argError(f.desc.Name, spec.Position, ErrAllocationFailure,
			"handle array of %d elements: %v", len(handles), err)
	}
	buf := make([]byte, len(handles)*handleWidth)
	for i, h := range handles {
		if h == Null {
			// The array is owned by nobody yet.
			f.freeNow(ptr)
			return Acquired{}, argError(f.desc.Name, spec.Position, ErrNullHandle,
				"element %d is null", i)
		}
		binary.LittleEndian.PutUint64(buf[i*handleWidth:], uint64(h))
	}
	if !f.lib.Memory().Write(ptr, buf) {
		f.freeNow(ptr)
		return Acquired{}, argError(f.desc.Name, spec.Position, ErrAllocationFailure,
			"handle array at %d out of range", ptr)
	}
	return Acquired{Native: uint64(ptr), Release: freeFunc(f, ptr)}, nil
}

func freeFunc(f *Frame, ptr uint32) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return f.lib.Free(ctx, ptr)
	}
}
