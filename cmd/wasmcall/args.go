package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/otelwasm/wasmcall/marshal"
)

// parseArgs converts command line words into the Go values the parameters of
// d accept. Output arrays take their length, other arrays a comma-separated
// list.
func parseArgs(d *marshal.Descriptor, words []string) ([]any, error) {
	if len(words) != d.Arity() {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", d.Name, d.Arity(), len(words))
	}
	args := make([]any, len(words))
	for i, p := range d.Params {
		arg, err := parseArg(p, words[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s): %w", p.Position, p, err)
		}
		args[i] = arg
	}
	return args, nil
}

func parseArg(p marshal.ParamSpec, s string) (any, error) {
	switch p.Kind {
	case marshal.KindValue:
		return parseValue(p.Type, s)
	case marshal.KindHandle:
		return parseHandle(s)
	case marshal.KindHandleOut:
		return new(marshal.HandleRef), nil
	case marshal.KindString:
		return s, nil
	case marshal.KindHandleArray:
		return parseList(s, parseHandle)
	case marshal.KindArray:
		if p.Direction == marshal.Out {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid output array length %q", s)
			}
			return makeArray(p.Type, n), nil
		}
		return parseArray(p.Type, s)
	default:
		return nil, fmt.Errorf("unsupported parameter kind %s", p.Kind)
	}
}

func parseHandle(s string) (marshal.Handle, error) {
	if s == "null" {
		return marshal.Null, nil
	}
	h, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid handle %q", s)
	}
	return marshal.Handle(h), nil
}

func parseValue(t marshal.ValueType, s string) (any, error) {
	switch t {
	case marshal.I32:
		v, err := strconv.ParseInt(s, 0, 32)
		return int32(v), err
	case marshal.U32:
		v, err := strconv.ParseUint(s, 0, 32)
		return uint32(v), err
	case marshal.I64:
		return strconv.ParseInt(s, 0, 64)
	case marshal.F32:
		v, err := strconv.ParseFloat(s, 32)
		return float32(v), err
	case marshal.F64:
		return strconv.ParseFloat(s, 64)
	case marshal.Bool:
		return strconv.ParseBool(s)
	default:
		return nil, fmt.Errorf("unsupported value type %s", t)
	}
}

func parseList[T any](s string, parse func(string) (T, error)) ([]T, error) {
	out := []T{}
	if s == "" {
		return out, nil
	}
	for _, word := range strings.Split(s, ",") {
		v, err := parse(strings.TrimSpace(word))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Booleans travel in int32 slices.
func makeArray(t marshal.ValueType, n int) any {
	switch t {
	case marshal.U32:
		return make([]uint32, n)
	case marshal.I64:
		return make([]int64, n)
	case marshal.F32:
		return make([]float32, n)
	case marshal.F64:
		return make([]float64, n)
	default:
		return make([]int32, n)
	}
}

func parseArray(t marshal.ValueType, s string) (any, error) {
	switch t {
	case marshal.U32:
		return parseList(s, func(w string) (uint32, error) {
			v, err := strconv.ParseUint(w, 0, 32)
			return uint32(v), err
		})
	case marshal.I64:
		return parseList(s, func(w string) (int64, error) { return strconv.ParseInt(w, 0, 64) })
	case marshal.F32:
		return parseList(s, func(w string) (float32, error) {
			v, err := strconv.ParseFloat(w, 32)
			return float32(v), err
		})
	case marshal.F64:
		return parseList(s, func(w string) (float64, error) { return strconv.ParseFloat(w, 64) })
	case marshal.Bool:
		return parseList(s, func(w string) (int32, error) {
			b, err := strconv.ParseBool(w)
			if b {
				return 1, err
			}
			return 0, err
		})
	default:
		return parseList(s, func(w string) (int32, error) {
			v, err := strconv.ParseInt(w, 0, 32)
			return int32(v), err
		})
	}
}

// formatOutputs describes what the native function wrote through output
// parameters.
func formatOutputs(d *marshal.Descriptor, args []any) []string {
	var lines []string
	for i, p := range d.Params {
		switch {
		case p.Kind == marshal.KindHandleOut:
			lines = append(lines, fmt.Sprintf("arg %d: %d", p.Position, args[i].(*marshal.HandleRef).Handle))
		case p.Kind == marshal.KindArray && p.Direction != marshal.In:
			lines = append(lines, fmt.Sprintf("arg %d: %v", p.Position, args[i]))
		}
	}
	return lines
}
