package wasmlib

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/otelwasm/wasmcall/abi"
	"github.com/otelwasm/wasmcall/marshal"
	"github.com/otelwasm/wasmcall/runtime"
)

var ptrLen = []runtime.ValueType{runtime.ValueTypeI32, runtime.ValueTypeI32}

// newHostModule creates the host module imported by guests.
func newHostModule(logger *zap.Logger) *runtime.HostModule {
	return runtime.NewHostModule(abi.HostModule).
		AddFunction(abi.HostRaise, ptrLen, nil, raiseFn(logger)).
		AddFunction(abi.HostLog, ptrLen, nil, logFn(logger))
}

func readGuest(mem runtime.Memory, stack []uint64, what string) []byte {
	buf := uint32(stack[0])
	size := uint32(stack[1])
	if mem == nil {
		panic("guest has no memory reading " + what) // Bug: memory export checked at compile
	}
	b, ok := mem.Read(buf, size)
	if !ok {
		panic("out of memory reading " + what) // Bug: caller passed a length outside memory
	}
	return b
}

func raiseFn(logger *zap.Logger) runtime.HostFunc {
	return func(ctx context.Context, mem runtime.Memory, stack []uint64) {
		msg := string(readGuest(mem, stack, "raised message"))
		if !marshal.Raise(ctx, msg) {
			logger.Warn("guest raised outside of a call", zap.String("message", msg))
		}
	}
}

func logFn(logger *zap.Logger) runtime.HostFunc {
	return func(ctx context.Context, mem runtime.Memory, stack []uint64) {
		raw := readGuest(mem, stack, "log message")

		var msg abi.LogMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			logger.Warn("malformed guest log message", zap.Error(err), zap.ByteString("raw", raw))
			return
		}

		ce := logger.Check(zapLevel(msg.Level), msg.Message)
		if ce == nil {
			return
		}
		fields := make([]zap.Field, 0, len(msg.Fields)+1)
		if f, ok := marshal.FrameFromContext(ctx); ok {
			fields = append(fields, zap.String("function", f.Descriptor().Name))
		}
		keys := make([]string, 0, len(msg.Fields))
		for k := range msg.Fields {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fields = append(fields, zap.Any(k, msg.Fields[k]))
		}
		ce.Write(fields...)
	}
}

// zapLevel maps a slog level onto the closest zap level.
func zapLevel(l slog.Level) zapcore.Level {
	switch {
	case l < slog.LevelInfo:
		return zapcore.DebugLevel
	case l < slog.LevelWarn:
		return zapcore.InfoLevel
	case l < slog.LevelError:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
