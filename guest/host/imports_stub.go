//go:build !wasip1

package host

// Outside WebAssembly the host calls are recorded so guest code can be tested
// natively.

var (
	raised []string
	logged [][]byte
)

func raise(b []byte) {
	raised = append(raised, string(b))
}

func log(b []byte) {
	logged = append(logged, b)
}
