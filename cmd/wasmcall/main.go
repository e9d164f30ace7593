// Command wasmcall calls the functions of a WebAssembly native library listed
// in a function catalog.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
