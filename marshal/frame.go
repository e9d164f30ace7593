package marshal

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// frameKey is the context key under which the current call's Frame is stored
// while the native function runs.
type frameKey struct{}

// Frame holds the state of one call. It is created per call and never shared.
type Frame struct {
	ctx      context.Context
	lib      Library
	desc     *Descriptor
	logger   *zap.Logger
	observer CallObserver
	arena    *arena
	pending  error
}

func newFrame(ctx context.Context, lib Library, d *Descriptor, logger *zap.Logger, obs CallObserver) *Frame {
	return &Frame{
		ctx:      ctx,
		lib:      lib,
		desc:     d,
		logger:   logger,
		observer: obs,
		arena:    &arena{},
	}
}

// Context returns the context of the call.
func (f *Frame) Context() context.Context {
	return f.ctx
}

// Library returns the native library the call is issued against.
func (f *Frame) Library() Library {
	return f.lib
}

// Descriptor returns the descriptor being called.
func (f *Frame) Descriptor() *Descriptor {
	return f.desc
}

// Allocate returns size bytes of native memory. A null pointer from the
// allocator is reported as an error wrapping ErrAllocationFailure.
func (f *Frame) Allocate(size uint32) (uint32, error) {
	ptr, err := f.allocate(size)
	if err != nil {
		return 0, fmt.Errorf("allocating %d bytes: %w: %w", size, ErrAllocationFailure, err)
	}
	return ptr, nil
}

func (f *Frame) allocate(size uint32) (uint32, error) {
	ptr, err := f.lib.Allocate(f.ctx, size)
	if err != nil {
		return 0, err
	}
	if ptr == 0 {
		return 0, errors.New("allocator returned null")
	}
	return ptr, nil
}

// Free returns a buffer obtained from Allocate.
func (f *Frame) Free(ctx context.Context, ptr uint32) error {
	return f.lib.Free(ctx, ptr)
}

// freeNow returns a buffer that never made it into an Acquired argument.
func (f *Frame) freeNow(ptr uint32) {
	if err := f.lib.Free(context.WithoutCancel(f.ctx), ptr); err != nil {
		f.logger.Warn("failed to free native buffer",
			zap.String("function", f.desc.Name),
			zap.Uint32("ptr", ptr),
			zap.Error(err))
	}
}

// Scratch returns the address of a zeroed 8-byte cell owned by the call's
// arena. Cells are only valid until the call returns.
func (f *Frame) Scratch() (uint32, error) {
	ptr, ok := f.arena.cell()
	if !ok {
		return 0, fmt.Errorf("%w: scratch arena exhausted", ErrPreconditionViolation)
	}
	if !f.lib.Memory().Write(ptr, make([]byte, cellSize)) {
		return 0, fmt.Errorf("%w: scratch cell %d out of range", ErrAllocationFailure, ptr)
	}
	return ptr, nil
}

// Raise records a pending failure for the call. The first one wins; it takes
// priority over whatever the native function returns.
func (f *Frame) Raise(err error) {
	if f.pending == nil {
		f.pending = err
	}
}

// Pending returns the failure recorded with Raise, if any.
func (f *Frame) Pending() error {
	return f.pending
}

func withFrame(ctx context.Context, f *Frame) context.Context {
	return context.WithValue(ctx, frameKey{}, f)
}

// FrameFromContext returns the Frame of the call currently executing native
// code. Host functions invoked by the native library use it to reach the call.
func FrameFromContext(ctx context.Context) (*Frame, bool) {
	f, ok := ctx.Value(frameKey{}).(*Frame)
	return f, ok
}

// Raise records message as the pending failure of the call running under ctx.
// It returns false when ctx does not belong to a call.
func Raise(ctx context.Context, message string) bool {
	f, ok := FrameFromContext(ctx)
	if !ok {
		return false
	}
	f.Raise(&Error{Function: f.desc.Name, Kind: ErrNativeCallFailure, Message: message})
	return true
}
