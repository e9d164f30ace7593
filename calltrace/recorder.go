// Package calltrace records native calls as OTLP trace spans.
package calltrace

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/collector/pdata/ptrace"

	"github.com/otelwasm/wasmcall/marshal"
)

const scopeName = "github.com/otelwasm/wasmcall/calltrace"

// Span attribute and event names.
const (
	AttrFunction  = "wasmcall.function"
	AttrEntry     = "wasmcall.entry"
	AttrNative    = "wasmcall.native"
	AttrArity     = "wasmcall.arity"
	AttrPosition  = "wasmcall.position"
	AttrErrorKind = "wasmcall.error.kind"

	EventAcquired      = "acquired"
	EventAcquireFailed = "acquire_failed"
	EventInvoked       = "invoked"
	EventReleased      = "released"
)

// Recorder is a marshal.Observer keeping one span per finished call. It is safe
// for concurrent use.
type Recorder struct {
	now func() time.Time

	mu     sync.Mutex
	traces ptrace.Traces
	spans  ptrace.SpanSlice
}

var _ marshal.Observer = (*Recorder)(nil)

type Option func(*Recorder)

// WithClock replaces time.Now for span and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// NewRecorder returns a Recorder whose spans belong to the given service.
func NewRecorder(service string, opts ...Option) *Recorder {
	r := &Recorder{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	r.reset(service)
	return r
}

func (r *Recorder) reset(service string) {
	r.traces = ptrace.NewTraces()
	rs := r.traces.ResourceSpans().AppendEmpty()
	rs.Resource().Attributes().PutStr("service.name", service)
	ss := rs.ScopeSpans().AppendEmpty()
	ss.Scope().SetName(scopeName)
	r.spans = ss.Spans()
}

// Begin starts the span of one call.
func (r *Recorder) Begin(_ context.Context, d *marshal.Descriptor) marshal.CallObserver {
	span := ptrace.NewSpan()
	span.SetName(d.Name)
	span.SetKind(ptrace.SpanKindClient)
	span.SetTraceID(newTraceID())
	span.SetSpanID(newSpanID())
	span.SetStartTimestamp(pcommon.NewTimestampFromTime(r.now()))

	attrs := span.Attributes()
	attrs.PutStr(AttrFunction, d.Name)
	attrs.PutStr(AttrEntry, d.Entry)
	attrs.PutStr(AttrNative, d.Native)
	attrs.PutInt(AttrArity, int64(d.Arity()))
	return &callSpan{recorder: r, span: span}
}

// Len returns the number of recorded spans.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.spans.Len()
}

// Traces returns a copy of everything recorded so far.
func (r *Recorder) Traces() ptrace.Traces {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := ptrace.NewTraces()
	r.traces.CopyTo(out)
	return out
}

// MarshalJSON encodes the recorded traces as OTLP/JSON.
func (r *Recorder) MarshalJSON() ([]byte, error) {
	return (&ptrace.JSONMarshaler{}).MarshalTraces(r.Traces())
}

// MarshalProto encodes the recorded traces as OTLP protobuf.
func (r *Recorder) MarshalProto() ([]byte, error) {
	return (&ptrace.ProtoMarshaler{}).MarshalTraces(r.Traces())
}

// callSpan is owned by a single call until Finished hands it to the recorder.
type callSpan struct {
	recorder *Recorder
	span     ptrace.Span
}

func (c *callSpan) event(name string, position int) ptrace.SpanEvent {
	ev := c.span.Events().AppendEmpty()
	ev.SetName(name)
	ev.SetTimestamp(pcommon.NewTimestampFromTime(c.recorder.now()))
	if position > 0 {
		ev.Attributes().PutInt(AttrPosition, int64(position))
	}
	return ev
}

func (c *callSpan) Acquired(position int) {
	c.event(EventAcquired, position)
}

func (c *callSpan) AcquireFailed(position int, err error) {
	ev := c.event(EventAcquireFailed, position)
	ev.Attributes().PutStr("exception.message", err.Error())
}

func (c *callSpan) Invoked() {
	c.event(EventInvoked, 0)
}

func (c *callSpan) Released(position int) {
	c.event(EventReleased, position)
}

func (c *callSpan) Finished(err error) {
	c.span.SetEndTimestamp(pcommon.NewTimestampFromTime(c.recorder.now()))
	if err != nil {
		c.span.Status().SetCode(ptrace.StatusCodeError)
		c.span.Status().SetMessage(err.Error())
		var me *marshal.Error
		if errors.As(err, &me) && me.Kind != nil {
			c.span.Attributes().PutStr(AttrErrorKind, me.Kind.Error())
		}
	} else {
		c.span.Status().SetCode(ptrace.StatusCodeOk)
	}

	c.recorder.mu.Lock()
	defer c.recorder.mu.Unlock()
	c.span.MoveTo(c.recorder.spans.AppendEmpty())
}

func newTraceID() pcommon.TraceID {
	var id [16]byte
	_, _ = rand.Read(id[:])
	return id
}

func newSpanID() pcommon.SpanID {
	var id [8]byte
	_, _ = rand.Read(id[:])
	return id
}
