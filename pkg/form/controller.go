package form

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	formerrors "github.com/go-drift/form/pkg/errors"
	"github.com/go-drift/form/pkg/fieldpath"
	"github.com/go-drift/form/pkg/registry"
	"github.com/go-drift/form/pkg/state"
)

const tracerName = "github.com/go-drift/form/pkg/form"

// Baseline selects which value tree Reset restores.
type Baseline int

const (
	// BaselineInitial restores the InitialValues given at construction.
	BaselineInitial Baseline = iota
	// BaselineLastSubmit restores the values current when the most recent
	// OnSubmit returned without error, including values it set itself.
	BaselineLastSubmit
)

// Outcome reports how a Submit call ended.
type Outcome int

const (
	// OutcomeAborted means the submission stopped before OnSubmit ran: it was
	// rejected, superseded by Reset, or the validator failed.
	OutcomeAborted Outcome = iota
	// OutcomeInvalid means the validator reported errors; OnSubmit was not called.
	OutcomeInvalid
	// OutcomeSubmitted means OnSubmit was called.
	OutcomeSubmitted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInvalid:
		return "invalid"
	case OutcomeSubmitted:
		return "submitted"
	default:
		return "aborted"
	}
}

// Config configures a Controller.
type Config struct {
	// ID identifies the form. Empty means a random UUID.
	ID string
	// InitialValues seeds the value tree. It is deep-copied.
	InitialValues map[string]any
	// OnSubmit runs when a submission passes validation.
	OnSubmit SubmitFunc
	// OnChange runs once after every value mutation.
	OnChange ChangeFunc
	// Validator runs at the start of every submission. Its entries are
	// merged into the existing errors like SetErrors.
	Validator Validator
	// ReplaceValidationErrors makes the validator's entries replace every
	// existing error instead of merging with them.
	ReplaceValidationErrors bool
	// ResetBaseline selects what Reset restores.
	ResetBaseline Baseline
	// ShouldUnregister removes a field's value when its binding is disposed.
	ShouldUnregister bool
	// PruneEmpty drops containers emptied by ShouldUnregister removals.
	PruneEmpty bool
	// Logger receives debug records. Nil means slog.Default().
	Logger *slog.Logger
	// Observer receives lifecycle events, e.g. for metrics.
	Observer Observer
	// Directory, when set, makes the controller reachable by ID until Dispose.
	Directory *Directory
}

// Controller owns the state of one form instance.
//
// All snapshot transitions happen under an internal lock. Subscribers and
// callbacks are invoked after the lock is released, so OnChange and OnSubmit
// may call back into the controller.
type Controller struct {
	id       string
	cfg      Config
	logger   *slog.Logger
	observer Observer
	tracer   trace.Tracer
	fields   *registry.Registry

	mu        sync.Mutex
	snap      *state.Snapshot
	baseline  map[string]any
	submitGen uint64
	focus     string
	disposed  bool
}

// New creates a controller from cfg.
func New(cfg Config) (*Controller, error) {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	observer := cfg.Observer
	if observer == nil {
		observer = nopObserver{}
	}

	snap := state.New(cfg.InitialValues)
	c := &Controller{
		id:       cfg.ID,
		cfg:      cfg,
		logger:   logger.With(slog.String("form", cfg.ID)),
		observer: observer,
		tracer:   otel.Tracer(tracerName),
		fields:   registry.New(),
		snap:     snap,
		baseline: snap.Values(),
	}
	if cfg.Directory != nil {
		if err := cfg.Directory.attach(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ID returns the form id.
func (c *Controller) ID() string { return c.id }

// Snapshot returns the latest snapshot.
func (c *Controller) Snapshot() *state.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Values returns the current value tree. It must not be modified.
func (c *Controller) Values() map[string]any { return c.Snapshot().Values() }

// Value returns the value stored under the field name.
func (c *Controller) Value(name string) (any, bool) {
	p, err := fieldpath.Parse(name)
	if err != nil {
		return nil, false
	}
	return c.Snapshot().Value(p)
}

// Errors returns the current error messages keyed by canonical path.
func (c *Controller) Errors() map[string]string { return c.Snapshot().Errors() }

// Status returns the submission status.
func (c *Controller) Status() state.Status { return c.Snapshot().Status() }

// Fields returns the canonical names of the mounted fields.
func (c *Controller) Fields() []string { return c.fields.Paths() }

func (c *Controller) actions() Actions { return boundActions{c: c} }

// commit swaps in the snapshot produced by fn. It returns false when the
// controller has been disposed.
func (c *Controller) commit(fn func(s *state.Snapshot) (*state.Snapshot, error)) (*state.Snapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return c.snap, false, nil
	}
	next, err := fn(c.snap)
	if err != nil {
		return c.snap, true, err
	}
	c.snap = next
	return next, true, nil
}

// SetValues applies entries in order, pushes the new values to the mounted
// fields at and under each entry path, and fires OnChange once.
//
// All names are parsed before anything is applied: an invalid name or a shape
// conflict leaves the form untouched.
func (c *Controller) SetValues(entries []ValueEntry) error {
	changes, err := parseValues(entries)
	if err != nil {
		return err
	}
	return c.applyValues(changes, nil)
}

func (c *Controller) applyValues(changes []state.ValueChange, touched *fieldpath.Path) error {
	if len(changes) == 0 {
		return nil
	}
	snap, live, err := c.commit(func(s *state.Snapshot) (*state.Snapshot, error) {
		next, err := state.ApplyBulkValues(s, changes)
		if err != nil {
			return nil, err
		}
		if touched != nil {
			next = state.MarkTouched(next, *touched)
		}
		return next, nil
	})
	if err != nil {
		return err
	}
	if !live {
		c.logger.Debug("dropping value change on disposed form")
		return nil
	}
	c.logger.Debug("values changed", slog.Int("entries", len(changes)), slog.Uint64("version", snap.Version()))

	seen := make(map[string]struct{}, len(changes))
	for _, ch := range changes {
		key := ch.Path.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		c.pushValues(ch.Path)
	}
	c.observer.ValuesChanged(c.id, len(changes))

	if c.cfg.OnChange != nil {
		c.cfg.OnChange(c.Values(), c.actions())
	}
	return nil
}

// pushValues writes the latest values to the subscriber at p, every
// subscriber nested under p, and every subscriber bound to an ancestor of p.
// Values are read at dispatch time so that racing updates converge on the
// newest snapshot.
func (c *Controller) pushValues(p fieldpath.Path) {
	values := c.Values()
	c.fields.ForEach(p, func(sp fieldpath.Path, sub registry.Subscriber) {
		v, _ := fieldpath.Get(values, sp)
		sub.Write(v)
	})
	for _, anc := range p.Ancestors() {
		if sub, ok := c.fields.Lookup(anc); ok {
			v, _ := fieldpath.Get(values, anc)
			sub.Write(v)
		}
	}
}

// SetErrors overwrites the errors of the paths named in entries, keeping the
// errors of every other path, and pushes the messages to the mounted fields.
// A later entry for the same path wins. With ShouldFocus, the first entry in
// call order that carries a message and has a mounted field is focused; an
// entry that clears an error is never a focus target. If none is mounted
// nothing is focused.
func (c *Controller) SetErrors(entries []ErrorEntry, opts ...ErrorsOption) error {
	var o errorsOptions
	for _, opt := range opts {
		opt(&o)
	}
	changes, err := parseErrors(entries)
	if err != nil {
		return err
	}
	_, live, _ := c.commit(func(s *state.Snapshot) (*state.Snapshot, error) {
		return state.ApplyErrors(s, changes, state.ModeMerge), nil
	})
	if !live {
		return nil
	}
	c.pushErrors(pathsOf(changes))
	c.observer.ErrorsSet(c.id, len(changes))
	if o.shouldFocus {
		c.focusFirst(changes)
	}
	return nil
}

func (c *Controller) pushErrors(paths []fieldpath.Path) {
	snap := c.Snapshot()
	for _, p := range paths {
		if sub, ok := c.fields.Lookup(p); ok {
			sub.SetError(snap.Error(p))
		}
	}
}

func (c *Controller) focusFirst(changes []state.ErrorChange) bool {
	for _, ch := range changes {
		if ch.Message == "" {
			continue
		}
		if sub, ok := c.fields.Lookup(ch.Path); ok {
			sub.Focus()
			return true
		}
	}
	c.logger.Debug("no mounted field to focus", slog.Int("entries", len(changes)))
	return false
}

// Focus asks the field mounted at name to take focus. It reports whether a
// mounted field was found.
func (c *Controller) Focus(name string) bool {
	p, err := fieldpath.Parse(name)
	if err != nil {
		return false
	}
	sub, ok := c.fields.Lookup(p)
	if !ok {
		return false
	}
	sub.Focus()
	return true
}

// FocusedField returns the canonical name of the field holding focus, or ""
// when none does. At most one field of a form holds focus; it keeps it until
// another field takes it, or it blurs or unmounts.
func (c *Controller) FocusedField() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focus
}

func (c *Controller) takeFocus(p fieldpath.Path) {
	c.mu.Lock()
	c.focus = p.String()
	c.mu.Unlock()
}

func (c *Controller) releaseFocus(p fieldpath.Path) {
	c.mu.Lock()
	if c.focus == p.String() {
		c.focus = ""
	}
	c.mu.Unlock()
}

// Submit validates the current values and, if they pass, calls OnSubmit.
//
// It fails with errors.ErrSubmitAlreadyInProgress while another submission is
// validating or submitting. Validator entries are applied like SetErrors with
// ShouldFocus: they merge with the existing errors unless
// Config.ReplaceValidationErrors is set, and an entry with an empty message
// clears its path. If any entry carries a message the call reports
// OutcomeInvalid and OnSubmit is not called. An error returned by OnSubmit is
// returned as is. A Reset that lands while the validator runs discards its
// result and the call reports OutcomeAborted.
func (c *Controller) Submit(ctx context.Context) (outcome Outcome, err error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "form.Submit", trace.WithAttributes(attribute.String("form.id", c.id)))
	defer func() {
		span.SetAttributes(attribute.String("form.outcome", outcome.String()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		c.observer.Submitted(c.id, outcome, time.Since(start))
	}()

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return OutcomeAborted, nil
	}
	if st := c.snap.Status(); st != state.StatusIdle {
		c.mu.Unlock()
		return OutcomeAborted, formerrors.Newf("form.Submit", formerrors.KindSubmitAlreadyInProgress, "", "form %q is %s", c.id, st)
	}
	c.snap = state.BeginSubmit(c.snap)
	c.submitGen++
	gen := c.submitGen
	values := c.snap.Values()
	c.mu.Unlock()
	c.logger.Debug("submit started", slog.Uint64("generation", gen))
	// Returns the form to idle if the validator panics or fails; a no-op once
	// the submission has moved on.
	defer c.finish(gen, state.StatusValidating)

	var entries []ErrorEntry
	if c.cfg.Validator != nil {
		entries, err = c.cfg.Validator.Validate(ctx, values)
	}
	var changes []state.ErrorChange
	if err == nil {
		changes, err = parseErrors(entries)
	}
	if err != nil {
		return OutcomeAborted, err
	}

	mode := state.ModeMerge
	if c.cfg.ReplaceValidationErrors {
		mode = state.ModeReplace
	}
	invalid := hasMessage(changes)
	var cleared []fieldpath.Path
	superseded := false
	c.mu.Lock()
	if gen != c.submitGen || c.snap.Status() != state.StatusValidating {
		superseded = true
	} else {
		if mode == state.ModeReplace {
			cleared = errorPaths(c.snap)
		}
		c.snap = state.ApplyErrors(c.snap, changes, mode)
		if invalid {
			c.snap = state.WithStatus(c.snap, state.StatusIdle)
		} else {
			c.snap = state.WithStatus(c.snap, state.StatusSubmitting)
		}
	}
	c.mu.Unlock()
	if superseded {
		c.logger.Debug("submit superseded during validation", slog.Uint64("generation", gen))
		return OutcomeAborted, nil
	}

	c.pushErrors(append(cleared, pathsOf(changes)...))
	if len(changes) > 0 {
		c.observer.ErrorsSet(c.id, len(changes))
	}
	if invalid {
		span.SetAttributes(attribute.Int("form.errors", len(changes)))
		c.logger.Debug("submit rejected by validator", slog.Int("errors", len(changes)))
		c.focusFirst(changes)
		return OutcomeInvalid, nil
	}

	succeeded := false
	defer func() {
		c.mu.Lock()
		if gen == c.submitGen && c.snap.Status() == state.StatusSubmitting {
			c.snap = state.WithStatus(c.snap, state.StatusIdle)
			if succeeded && c.cfg.ResetBaseline == BaselineLastSubmit {
				c.snap = state.Rebase(c.snap)
				c.baseline = c.snap.Values()
			}
		}
		c.mu.Unlock()
		c.logger.Debug("submit finished", slog.Uint64("generation", gen), slog.Bool("ok", succeeded))
	}()
	if c.cfg.OnSubmit != nil {
		err = c.cfg.OnSubmit(ctx, values, c.actions())
	}
	succeeded = err == nil
	return OutcomeSubmitted, err
}

// finish returns the form to idle if the submission gen is still current and
// in the expected status.
func (c *Controller) finish(gen uint64, expect state.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.submitGen && c.snap.Status() == expect {
		c.snap = state.WithStatus(c.snap, state.StatusIdle)
	}
}

// Reset restores the baseline values, clears errors, touched and dirty flags,
// and returns the form to idle. Mounted fields stay mounted and receive the
// restored values. A running OnSubmit is not interrupted, but its completion
// no longer affects the form's status.
func (c *Controller) Reset() {
	_, live, _ := c.commit(func(s *state.Snapshot) (*state.Snapshot, error) {
		c.submitGen++
		return state.Reset(s, c.baseline), nil
	})
	if !live {
		return
	}
	values := c.Values()
	c.fields.ForEach(fieldpath.Path{}, func(p fieldpath.Path, sub registry.Subscriber) {
		v, _ := fieldpath.Get(values, p)
		sub.Write(v)
		sub.SetError("")
	})
	c.logger.Debug("form reset")
	c.observer.Reset(c.id)
}

// Dispose detaches the controller from its directory. Later mutations are
// ignored.
func (c *Controller) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	c.mu.Unlock()
	if c.cfg.Directory != nil {
		c.cfg.Directory.detach(c)
	}
	c.logger.Debug("form disposed")
}

func parseValues(entries []ValueEntry) ([]state.ValueChange, error) {
	out := make([]state.ValueChange, 0, len(entries))
	for _, e := range entries {
		p, err := fieldpath.Parse(e.Path)
		if err != nil {
			return nil, err
		}
		out = append(out, state.ValueChange{Path: p, Value: e.Value})
	}
	return out, nil
}

func parseErrors(entries []ErrorEntry) ([]state.ErrorChange, error) {
	out := make([]state.ErrorChange, 0, len(entries))
	for _, e := range entries {
		p, err := fieldpath.Parse(e.Path)
		if err != nil {
			return nil, err
		}
		out = append(out, state.ErrorChange{Path: p, Message: e.Message})
	}
	return out, nil
}

func hasMessage(changes []state.ErrorChange) bool {
	for _, ch := range changes {
		if ch.Message != "" {
			return true
		}
	}
	return false
}

func pathsOf(changes []state.ErrorChange) []fieldpath.Path {
	out := make([]fieldpath.Path, 0, len(changes))
	for _, ch := range changes {
		out = append(out, ch.Path)
	}
	return out
}

func errorPaths(s *state.Snapshot) []fieldpath.Path {
	var out []fieldpath.Path
	for k := range s.Errors() {
		if p, err := fieldpath.Parse(k); err == nil {
			out = append(out, p)
		}
	}
	return out
}
