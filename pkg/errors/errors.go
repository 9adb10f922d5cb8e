// Package errors provides structured error handling for the form engine.
//
// Programmer errors (a malformed field name, a value shape that conflicts with
// the tree, two fields bound to one path, a second submit while one is in
// flight) are returned as *FormError values. Each kind has a sentinel so
// callers can match with errors.Is without caring about the operation:
//
//	if errors.Is(err, formerrors.ErrDuplicateFieldBinding) { ... }
//
// Validation messages are not errors; they are data carried by the form
// snapshot.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindInvalidPath indicates a field name that cannot be parsed.
	KindInvalidPath
	// KindTypeShapeConflict indicates a path that disagrees with the container
	// shape already present in the value tree.
	KindTypeShapeConflict
	// KindDuplicateFieldBinding indicates a second mounted field for one path.
	KindDuplicateFieldBinding
	// KindSubmitAlreadyInProgress indicates a submit issued while validating or submitting.
	KindSubmitAlreadyInProgress
	// KindDuplicateFormID indicates two live controllers sharing one form id.
	KindDuplicateFormID
	// KindUnknownForm indicates a lookup for a form id with no live controller.
	KindUnknownForm
	// KindPanic indicates a recovered panic.
	KindPanic
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidPath:
		return "invalid_path"
	case KindTypeShapeConflict:
		return "type_shape_conflict"
	case KindDuplicateFieldBinding:
		return "duplicate_field_binding"
	case KindSubmitAlreadyInProgress:
		return "submit_already_in_progress"
	case KindDuplicateFormID:
		return "duplicate_form_id"
	case KindUnknownForm:
		return "unknown_form"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// Sentinels matched by FormError.Is.
var (
	ErrInvalidPath             = stderrors.New("invalid field path")
	ErrTypeShapeConflict       = stderrors.New("type shape conflict")
	ErrDuplicateFieldBinding   = stderrors.New("duplicate field binding")
	ErrSubmitAlreadyInProgress = stderrors.New("submit already in progress")
	ErrDuplicateFormID         = stderrors.New("duplicate form id")
	ErrUnknownForm             = stderrors.New("unknown form")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindInvalidPath:
		return ErrInvalidPath
	case KindTypeShapeConflict:
		return ErrTypeShapeConflict
	case KindDuplicateFieldBinding:
		return ErrDuplicateFieldBinding
	case KindSubmitAlreadyInProgress:
		return ErrSubmitAlreadyInProgress
	case KindDuplicateFormID:
		return ErrDuplicateFormID
	case KindUnknownForm:
		return ErrUnknownForm
	default:
		return nil
	}
}

// FormError represents a structured error raised by the form engine.
type FormError struct {
	// Op is the operation that failed (e.g., "fieldpath.Set").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Path is the field path involved, if any.
	Path string
	// Err is the underlying error, if any.
	Err error
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

// New builds a FormError stamped with the current time.
func New(op string, kind ErrorKind, path string, err error) *FormError {
	return &FormError{Op: op, Kind: kind, Path: path, Err: err, Timestamp: time.Now()}
}

// Newf is like New with a formatted underlying error.
func Newf(op string, kind ErrorKind, path, format string, args ...any) *FormError {
	return New(op, kind, path, fmt.Errorf(format, args...))
}

func (e *FormError) Error() string {
	msg := e.Kind.String()
	if s := e.Kind.sentinel(); s != nil {
		msg = s.Error()
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Path)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *FormError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *FormError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && s == target
}

// KindOf returns the kind of the first FormError in err's chain, or KindUnknown.
func KindOf(err error) ErrorKind {
	var fe *FormError
	if stderrors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "form.Scope.Dispose").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// ErrorHandler receives errors that cannot be returned to a caller, such as
// failures in fire-and-forget dispatch or panics during teardown.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *FormError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
