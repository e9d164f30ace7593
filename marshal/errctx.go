package marshal

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// maxMessageLen bounds how far a native C string is scanned for its terminator.
const maxMessageLen = 1 << 20

// ErrorAccessors names the native "last error code" and "message for code"
// functions of a call family. Both take the call's first handle argument.
type ErrorAccessors struct {
	Code    string `mapstructure:"code" yaml:"code,omitempty"`
	Message string `mapstructure:"message" yaml:"message,omitempty"`
}

// IsZero reports whether no accessors are configured.
func (a ErrorAccessors) IsZero() bool {
	return a.Code == "" && a.Message == ""
}

// ErrorContext answers the diagnostic queries of one failed call.
type ErrorContext interface {
	Code(ctx context.Context) (int32, error)
	Message(ctx context.Context, code int32) (string, error)
}

type nativeErrorContext struct {
	lib       Library
	accessors ErrorAccessors
	handle    Handle
}

// NewErrorContext binds accessors to the given handle of lib.
func NewErrorContext(lib Library, accessors ErrorAccessors, h Handle) ErrorContext {
	return &nativeErrorContext{lib: lib, accessors: accessors, handle: h}
}

func (c *nativeErrorContext) Code(ctx context.Context) (int32, error) {
	fn := c.lib.Function(c.accessors.Code)
	if fn == nil {
		return 0, fmt.Errorf("error code accessor %q not found", c.accessors.Code)
	}
	res, err := fn.Call(ctx, uint64(c.handle))
	if err != nil {
		return 0, err
	}
	if len(res) != 1 {
		return 0, fmt.Errorf("error code accessor %q returned %d results", c.accessors.Code, len(res))
	}
	return api.DecodeI32(res[0]), nil
}

func (c *nativeErrorContext) Message(ctx context.Context, code int32) (string, error) {
	fn := c.lib.Function(c.accessors.Message)
	if fn == nil {
		return "", fmt.Errorf("error message accessor %q not found", c.accessors.Message)
	}
	res, err := fn.Call(ctx, uint64(c.handle), api.EncodeI32(code))
	if err != nil {
		return "", err
	}
	if len(res) != 1 || uint32(res[0]) == 0 {
		return "", errors.New("error message accessor returned no message")
	}
	return readCString(c.lib.Memory(), uint32(res[0]))
}

// readCString copies the NUL-terminated string at ptr.
func readCString(mem Memory, ptr uint32) (string, error) {
	size := mem.Size()
	if ptr >= size {
		return "", fmt.Errorf("string pointer %d out of range", ptr)
	}
	n := min(size-ptr, maxMessageLen)
	buf, ok := mem.Read(ptr, n)
	if !ok {
		return "", fmt.Errorf("string pointer %d out of range", ptr)
	}
	end := bytes.IndexByte(buf, 0)
	if end < 0 {
		return "", fmt.Errorf("string at %d is not terminated", ptr)
	}
	return string(buf[:end]), nil
}
