package marshal

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Table is the process-wide set of descriptors. It is immutable once built and
// safe for concurrent lookups.
type Table struct {
	ordered []*Descriptor
	byEntry map[string]*Descriptor
	byName  map[string]*Descriptor
}

// NewTable indexes descs by entry point and logical name. Duplicate names or
// entry points are rejected.
func NewTable(descs ...*Descriptor) (*Table, error) {
	t := &Table{
		ordered: make([]*Descriptor, 0, len(descs)),
		byEntry: make(map[string]*Descriptor, len(descs)),
		byName:  make(map[string]*Descriptor, len(descs)),
	}
	for _, d := range descs {
		if d == nil {
			return nil, fmt.Errorf("%w: nil descriptor", ErrInvalidDescriptor)
		}
		if _, dup := t.byName[d.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate function %q", ErrInvalidDescriptor, d.Name)
		}
		if _, dup := t.byEntry[d.Entry]; dup {
			return nil, fmt.Errorf("%w: duplicate entry point %q", ErrInvalidDescriptor, d.Entry)
		}
		t.byName[d.Name] = d
		t.byEntry[d.Entry] = d
		t.ordered = append(t.ordered, d)
	}
	return t, nil
}

// Lookup finds a descriptor by entry point or by logical name.
func (t *Table) Lookup(key string) (*Descriptor, bool) {
	if d, ok := t.byEntry[key]; ok {
		return d, true
	}
	d, ok := t.byName[key]
	return d, ok
}

// Descriptors returns the descriptors in registration order.
func (t *Table) Descriptors() []*Descriptor {
	out := make([]*Descriptor, len(t.ordered))
	copy(out, t.ordered)
	return out
}

func (t *Table) Len() int {
	return len(t.ordered)
}

// Caller issues calls from a Table against one Library.
type Caller struct {
	lib      Library
	table    *Table
	logger   *zap.Logger
	observer Observer
}

type CallerOption func(*Caller)

func WithLogger(logger *zap.Logger) CallerOption {
	return func(c *Caller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithObserver(obs Observer) CallerOption {
	return func(c *Caller) {
		if obs != nil {
			c.observer = obs
		}
	}
}

func NewCaller(lib Library, table *Table, opts ...CallerOption) *Caller {
	c := &Caller{
		lib:      lib,
		table:    table,
		logger:   zap.NewNop(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Caller) Table() *Table {
	return c.table
}

// Call looks up entry and issues the call. The returned error, when not nil,
// is always an *Error.
func (c *Caller) Call(ctx context.Context, entry string, args ...any) (any, error) {
	d, ok := c.table.Lookup(entry)
	if !ok {
		return nil, callError(entry, ErrPreconditionViolation, "unknown entry point")
	}
	return call(ctx, d, c.lib, c.logger, c.observer.Begin(ctx, d), args)
}
