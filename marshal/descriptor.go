package marshal

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// ErrInvalidDescriptor is returned when a descriptor cannot be built.
var ErrInvalidDescriptor = errors.New("invalid descriptor")

// Descriptor is the immutable description of one native entry point. It is
// built once and shared read-only by every call.
type Descriptor struct {
	// Name is the fully-qualified logical name, for example "z3.Native.mkContext".
	Name string
	// Entry is the flat entry-point identifier derived from Name.
	Entry string
	// Native is the name of the function exported by the native library.
	Native string
	Params []ParamSpec
	Return ReturnStrategy
	// Errors names the error context accessors. Required by checked returns.
	Errors ErrorAccessors

	scratchCells int
}

type DescriptorOption func(*Descriptor)

// WithNative sets the native function name instead of deriving it from Name.
func WithNative(native string) DescriptorOption {
	return func(d *Descriptor) {
		d.Native = native
	}
}

func WithErrorAccessors(a ErrorAccessors) DescriptorOption {
	return func(d *Descriptor) {
		d.Errors = a
	}
}

// WithScratchCells reserves extra arena cells for custom strategies calling
// Frame.Scratch.
func WithScratchCells(n int) DescriptorOption {
	return func(d *Descriptor) {
		d.scratchCells += n
	}
}

// NewDescriptor validates params and ret and returns the descriptor of name.
// Parameter positions are assigned 1..N in order.
func NewDescriptor(name string, ret ReturnStrategy, params []ParamSpec, opts ...DescriptorOption) (*Descriptor, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidDescriptor)
	}
	d := &Descriptor{
		Name:   name,
		Entry:  EntryPoint(name),
		Native: NativeName("", name),
		Params: slices.Clone(params),
		Return: ret,
	}
	for _, opt := range opts {
		opt(d)
	}

	for i := range d.Params {
		p := &d.Params[i]
		p.Position = i + 1
		if err := validateParam(*p); err != nil {
			return nil, fmt.Errorf("%w: %s: argument %d: %w", ErrInvalidDescriptor, name, p.Position, err)
		}
		if p.Kind == KindHandleOut {
			d.scratchCells++
		}
	}
	if err := d.validateReturn(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidDescriptor, name, err)
	}
	if d.Native == "" {
		return nil, fmt.Errorf("%w: %s: empty native name", ErrInvalidDescriptor, name)
	}
	return d, nil
}

func validateParam(p ParamSpec) error {
	if !p.Kind.valid() {
		return fmt.Errorf("unknown kind %d", p.Kind)
	}
	if !p.Type.valid() {
		return fmt.Errorf("unknown value type %d", p.Type)
	}
	switch p.Kind {
	case KindArray:
		if p.Direction > InOut {
			return fmt.Errorf("unknown direction %d", p.Direction)
		}
	case KindHandleOut:
		if p.Direction != Out {
			return errors.New("output handle must have direction out")
		}
	default:
		if p.Direction != In {
			return fmt.Errorf("%s parameter must have direction in", p.Kind)
		}
	}
	return nil
}

func (d *Descriptor) validateReturn() error {
	r := d.Return
	if int(r.Kind) >= len(returnKindNames) {
		return fmt.Errorf("unknown return kind %d", r.Kind)
	}
	if r.Kind == ReturnValue && !r.Type.valid() {
		return fmt.Errorf("unknown return type %d", r.Type)
	}
	if r.Kind.checked() && (d.Errors.Code == "" || d.Errors.Message == "") {
		return fmt.Errorf("%s return needs error accessors", r.Kind)
	}
	if !d.Errors.IsZero() {
		if d.Errors.Code == "" || d.Errors.Message == "" {
			return errors.New("error accessors need both code and message")
		}
		if len(d.Params) == 0 || d.Params[0].Kind != KindHandle {
			return errors.New("error accessors need a handle as first argument")
		}
	}
	return nil
}

// Arity is the number of caller arguments.
func (d *Descriptor) Arity() int {
	return len(d.Params)
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("%s %v -> %s", d.Name, d.Params, d.Return)
}

// Call issues one call of d against lib without logging or observation.
func (d *Descriptor) Call(ctx context.Context, lib Library, args ...any) (any, error) {
	return call(ctx, d, lib, zap.NewNop(), nopCallObserver{}, args)
}
