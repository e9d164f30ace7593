package wasmlib

import (
	"context"
	"testing"

	"github.com/otelwasm/wasmcall/marshal"
)

func FuzzStringArgumentBoundary(f *testing.F) {
	f.Add("hello")
	f.Add("")
	f.Add("nul\x00inside")

	d, err := marshal.NewDescriptor("test.Solver.firstByte", marshal.ReturnsValue(marshal.I32),
		[]marshal.ParamSpec{marshal.StringParam()}, marshal.WithNative("first_byte"))
	if err != nil {
		f.Fatal(err)
	}

	f.Fuzz(func(t *testing.T, s string) {
		if len(s) > 1024 {
			s = s[:1024]
		}
		// The bump allocator never reuses memory, so every input gets a fresh
		// instance.
		lib := newTestLibrary(t, solverModule())
		before := freeCount(t, lib)

		got, err := d.Call(context.Background(), lib, s)
		if err != nil {
			t.Fatalf("call returned unexpected error: %v", err)
		}
		want := int32(0)
		if len(s) > 0 {
			want = int32(s[0])
		}
		if got != want {
			t.Fatalf("first byte: got %v, want %d", got, want)
		}
		if after := freeCount(t, lib); after != before+1 {
			t.Fatalf("string buffer freed %d times", after-before)
		}
	})
}
