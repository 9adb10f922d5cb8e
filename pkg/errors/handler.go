package errors

import (
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"
)

// handlerSlot wraps the handler so atomic.Pointer can hold an interface.
type handlerSlot struct{ h ErrorHandler }

var current atomic.Pointer[handlerSlot]

// SetHandler installs h as the process-wide handler for errors that have no
// caller to return to. Nil restores a LogHandler on slog.Default().
func SetHandler(h ErrorHandler) {
	if h == nil {
		current.Store(nil)
		return
	}
	current.Store(&handlerSlot{h: h})
}

// Handler returns the installed handler.
func Handler() ErrorHandler {
	if s := current.Load(); s != nil {
		return s.h
	}
	return &LogHandler{}
}

// Report hands err to the installed handler, stamping Timestamp if unset.
func Report(err *FormError) {
	if err == nil {
		return
	}
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	Handler().HandleError(err)
}

// ReportPanic hands a recovered panic to the installed handler.
func ReportPanic(err *PanicError) {
	if err == nil {
		return
	}
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	Handler().HandlePanic(err)
}

// Recover reports a panic in progress and lets the goroutine continue. It
// must be deferred directly:
//
//	defer errors.Recover("form.Scope.Dispose")
//
// Each then callback receives the recovered value after reporting.
func Recover(op string, then ...func(r any)) {
	r := recover()
	if r == nil {
		return
	}
	ReportPanic(&PanicError{Op: op, Value: r, StackTrace: CaptureStack(), Timestamp: time.Now()})
	for _, fn := range then {
		fn(r)
	}
}

// CaptureStack formats the caller's stack, one "function\n\tfile:line" pair
// per frame, without CaptureStack itself or the function that called it.
func CaptureStack() string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	if n == 0 {
		return ""
	}
	var sb strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for more := true; more; {
		var f runtime.Frame
		f, more = frames.Next()
		fmt.Fprintf(&sb, "%s\n\t%s:%d\n", f.Function, f.File, f.Line)
	}
	return sb.String()
}
