package runtime

import (
	"context"
	"fmt"
)

// ValueType represents WASM value types
type ValueType int

const (
	ValueTypeI32 ValueType = iota
	ValueTypeI64
	ValueTypeF32
	ValueTypeF64
)

func (v ValueType) String() string {
	switch v {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	default:
		return fmt.Sprintf("ValueType(%d)", int(v))
	}
}

// HostFunc is a runtime-agnostic host function. Parameters are read from
// stack and results are written back into it, in the same slot encoding the
// guest uses. mem is the memory of the calling module.
type HostFunc func(ctx context.Context, mem Memory, stack []uint64)

// HostFunctionDefinition defines a host function with its signature and implementation
type HostFunctionDefinition struct {
	FunctionName string
	ParamTypes   []ValueType
	ResultTypes  []ValueType
	Function     HostFunc
}

// HostModule represents a collection of host functions that can be instantiated in any runtime
type HostModule struct {
	Name      string
	functions []HostFunctionDefinition
}

// NewHostModule creates a new host module with the given name
func NewHostModule(name string) *HostModule {
	return &HostModule{Name: name}
}

// AddFunction adds a host function to the module
func (hm *HostModule) AddFunction(name string, paramTypes, resultTypes []ValueType, fn HostFunc) *HostModule {
	hm.functions = append(hm.functions, HostFunctionDefinition{
		FunctionName: name,
		ParamTypes:   paramTypes,
		ResultTypes:  resultTypes,
		Function:     fn,
	})
	return hm
}

// Functions returns all host function definitions
func (hm *HostModule) Functions() []HostFunctionDefinition {
	return hm.functions
}
