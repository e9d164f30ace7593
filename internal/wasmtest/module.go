// Package wasmtest assembles small WebAssembly modules byte by byte for tests.
package wasmtest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// ValType is a wasm value type.
type ValType byte

const (
	I32 ValType = 0x7f
	I64 ValType = 0x7e
	F32 ValType = 0x7d
	F64 ValType = 0x7c
)

const (
	sectionType     = 0x01
	sectionImport   = 0x02
	sectionFunction = 0x03
	sectionMemory   = 0x05
	sectionGlobal   = 0x06
	sectionExport   = 0x07
	sectionCode     = 0x0a
	sectionData     = 0x0b

	exportKindFunc   = 0x00
	exportKindMemory = 0x02
)

type funcType struct {
	params, results []ValType
}

func (t funcType) encode() []byte {
	out := []byte{0x60}
	out = append(out, vec(len(t.params))...)
	for _, p := range t.params {
		out = append(out, byte(p))
	}
	out = append(out, vec(len(t.results))...)
	for _, r := range t.results {
		out = append(out, byte(r))
	}
	return out
}

type importFunc struct {
	module, name string
	typeIndex    uint32
}

type function struct {
	export    string
	typeIndex uint32
	locals    []ValType
	body      []byte
}

type global struct {
	typ     ValType
	mutable bool
	init    int64
}

type dataSegment struct {
	offset uint32
	data   []byte
}

// Module accumulates the sections of one module.
type Module struct {
	types       [][]byte
	imports     []importFunc
	funcs       []function
	globals     []global
	data        []dataSegment
	memoryPages uint32
	exportMem   bool
}

func NewModule() *Module {
	return &Module{}
}

// Memory declares one memory of pages pages, exported as "memory" if export is set.
func (m *Module) Memory(pages uint32, export bool) *Module {
	m.memoryPages = pages
	m.exportMem = export
	return m
}

func (m *Module) typeIndex(params, results []ValType) uint32 {
	enc := funcType{params: params, results: results}.encode()
	for i, t := range m.types {
		if bytes.Equal(t, enc) {
			return uint32(i)
		}
	}
	m.types = append(m.types, enc)
	return uint32(len(m.types) - 1)
}

// Import declares an imported function and returns its function index.
// Imports must be declared before any function.
func (m *Module) Import(module, name string, params, results []ValType) uint32 {
	if len(m.funcs) > 0 {
		panic("wasmtest: imports must be declared before functions")
	}
	m.imports = append(m.imports, importFunc{module: module, name: name, typeIndex: m.typeIndex(params, results)})
	return uint32(len(m.imports) - 1)
}

// Global declares a global initialized to init and returns its index.
func (m *Module) Global(typ ValType, mutable bool, init int64) uint32 {
	m.globals = append(m.globals, global{typ: typ, mutable: mutable, init: init})
	return uint32(len(m.globals) - 1)
}

// Func declares a function, exported under export unless it is empty, and
// returns its function index. body must not include the final end opcode.
func (m *Module) Func(export string, params, results, locals []ValType, body ...[]byte) uint32 {
	m.funcs = append(m.funcs, function{
		export:    export,
		typeIndex: m.typeIndex(params, results),
		locals:    locals,
		body:      bytes.Join(body, nil),
	})
	return uint32(len(m.imports) + len(m.funcs) - 1)
}

// Data places data at offset in memory 0.
func (m *Module) Data(offset uint32, data []byte) *Module {
	m.data = append(m.data, dataSegment{offset: offset, data: data})
	return m
}

// Bytes encodes the module.
func (m *Module) Bytes() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	section := func(id byte, payload []byte) {
		out = append(out, id)
		out = append(out, ULEB(uint64(len(payload)))...)
		out = append(out, payload...)
	}

	if len(m.types) > 0 {
		p := vec(len(m.types))
		for _, t := range m.types {
			p = append(p, t...)
		}
		section(sectionType, p)
	}

	if len(m.imports) > 0 {
		p := vec(len(m.imports))
		for _, imp := range m.imports {
			p = append(p, name(imp.module)...)
			p = append(p, name(imp.name)...)
			p = append(p, exportKindFunc)
			p = append(p, ULEB(uint64(imp.typeIndex))...)
		}
		section(sectionImport, p)
	}

	if len(m.funcs) > 0 {
		p := vec(len(m.funcs))
		for _, f := range m.funcs {
			p = append(p, ULEB(uint64(f.typeIndex))...)
		}
		section(sectionFunction, p)
	}

	if m.memoryPages > 0 {
		p := vec(1)
		p = append(p, 0x00)
		p = append(p, ULEB(uint64(m.memoryPages))...)
		section(sectionMemory, p)
	}

	if len(m.globals) > 0 {
		p := vec(len(m.globals))
		for _, g := range m.globals {
			p = append(p, byte(g.typ))
			if g.mutable {
				p = append(p, 0x01)
			} else {
				p = append(p, 0x00)
			}
			switch g.typ {
			case I64:
				p = append(p, I64Const(g.init)...)
			default:
				p = append(p, I32Const(int32(g.init))...)
			}
			p = append(p, opEnd)
		}
		section(sectionGlobal, p)
	}

	var exports []byte
	exportCount := 0
	if m.memoryPages > 0 && m.exportMem {
		exports = append(exports, name("memory")...)
		exports = append(exports, exportKindMemory, 0x00)
		exportCount++
	}
	for i, f := range m.funcs {
		if f.export == "" {
			continue
		}
		exports = append(exports, name(f.export)...)
		exports = append(exports, exportKindFunc)
		exports = append(exports, ULEB(uint64(len(m.imports)+i))...)
		exportCount++
	}
	if exportCount > 0 {
		section(sectionExport, append(vec(exportCount), exports...))
	}

	if len(m.funcs) > 0 {
		p := vec(len(m.funcs))
		for _, f := range m.funcs {
			var code []byte
			code = append(code, vec(len(f.locals))...)
			for _, l := range f.locals {
				code = append(code, 0x01, byte(l))
			}
			code = append(code, f.body...)
			code = append(code, opEnd)
			p = append(p, ULEB(uint64(len(code)))...)
			p = append(p, code...)
		}
		section(sectionCode, p)
	}

	if len(m.data) > 0 {
		p := vec(len(m.data))
		for _, d := range m.data {
			p = append(p, 0x00)
			p = append(p, I32Const(int32(d.offset))...)
			p = append(p, opEnd)
			p = append(p, ULEB(uint64(len(d.data)))...)
			p = append(p, d.data...)
		}
		section(sectionData, p)
	}

	return out
}

// WriteFile writes the module into a temporary directory and returns its path.
func (m *Module) WriteFile(t testing.TB) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.wasm")
	if err := os.WriteFile(path, m.Bytes(), 0o600); err != nil {
		t.Fatalf("failed to write test module: %v", err)
	}
	return path
}

func vec(n int) []byte {
	return ULEB(uint64(n))
}

func name(s string) []byte {
	return append(ULEB(uint64(len(s))), s...)
}

// ULEB encodes v as unsigned LEB128.
func ULEB(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

// SLEB encodes v as signed LEB128.
func SLEB(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func (t ValType) String() string {
	switch t {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return fmt.Sprintf("ValType(%#x)", byte(t))
	}
}
