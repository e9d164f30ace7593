package marshal

import (
	"context"

	"go.uber.org/zap"
)

// call runs the acquire, invoke, release and translate sequence of one call.
//
// Acquired arguments are guarded as soon as they exist, so every return path
// releases exactly what was acquired, last acquired first. The arena holding
// the output cells is returned after the guards.
func call(ctx context.Context, d *Descriptor, lib Library, logger *zap.Logger, obs CallObserver, args []any) (result any, err error) {
	defer func() {
		obs.Finished(err)
	}()

	if len(args) != len(d.Params) {
		return nil, callError(d.Name, ErrPreconditionViolation, "expected %d arguments, got %d", len(d.Params), len(args))
	}
	fn := lib.Function(d.Native)
	if fn == nil {
		return nil, callError(d.Name, ErrNativeCallFailure, "native function %q not found", d.Native)
	}

	f := newFrame(ctx, lib, d, logger, obs)
	if err := f.arena.reserve(f, d.scratchCells); err != nil {
		return nil, callError(d.Name, ErrAllocationFailure, "reserving %d scratch cells: %v", d.scratchCells, err)
	}
	defer f.arena.release(f)
	guards := &guardStack{frame: f}
	defer guards.unwind()

	slots := make([]uint64, len(args))
	var writebacks []func()
	for i, p := range d.Params {
		acq, err := p.strategy().Acquire(f, p, args[i])
		if err != nil {
			e := asError(d.Name, p.Position, err)
			obs.AcquireFailed(p.Position, e)
			return nil, e
		}
		guards.push(p.Position, acq.Release)
		obs.Acquired(p.Position)
		slots[i] = acq.Native
		if acq.Writeback != nil {
			writebacks = append(writebacks, acq.Writeback)
		}
	}

	logger.Debug("calling native function",
		zap.String("function", d.Name),
		zap.String("native", d.Native),
		zap.Int("args", len(slots)))
	res, callErr := fn.Call(withFrame(ctx, f), slots...)
	obs.Invoked()

	var out Outcome
	switch {
	case callErr != nil:
		out.Pending = f.Pending()
		if out.Pending == nil {
			out.Pending = callError(d.Name, ErrNativeCallFailure, "%v", callErr)
		}
	case len(res) != d.Return.results():
		out.Pending = callError(d.Name, ErrNativeCallFailure, "native function returned %d results, want %d", len(res), d.Return.results())
	default:
		if len(res) == 1 {
			out.Return = res[0]
		}
		// A raised call leaves the caller's arrays and references untouched.
		out.Pending = f.Pending()
		if out.Pending == nil {
			for _, wb := range writebacks {
				wb()
			}
		}
	}

	guards.unwind()
	f.arena.release(f)

	t := Translator{Name: d.Name, Return: d.Return, Memory: lib.Memory()}
	if !d.Errors.IsZero() {
		t.Errors = NewErrorContext(lib, d.Errors, Handle(slots[0]))
	}
	return t.Translate(ctx, out)
}
