package marshal

import "context"

// Observer is notified of every call issued through a Caller.
type Observer interface {
	// Begin is called once per call, before anything is acquired.
	Begin(ctx context.Context, d *Descriptor) CallObserver
}

// CallObserver receives the events of a single call. Positions are 1-based.
type CallObserver interface {
	Acquired(position int)
	AcquireFailed(position int, err error)
	// Invoked is called after the native function returned or trapped.
	Invoked()
	// Released is called once per acquired argument, including arguments
	// without a release step.
	Released(position int)
	// Finished is called with the error returned to the caller, or nil.
	Finished(err error)
}

type nopObserver struct{}

func (nopObserver) Begin(context.Context, *Descriptor) CallObserver { return nopCallObserver{} }

type nopCallObserver struct{}

func (nopCallObserver) Acquired(int)             {}
func (nopCallObserver) AcquireFailed(int, error) {}
func (nopCallObserver) Invoked()                 {}
func (nopCallObserver) Released(int)             {}
func (nopCallObserver) Finished(error)           {}
