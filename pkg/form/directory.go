package form

import (
	"context"
	"errors"
	"sort"
	"sync"

	formerrors "github.com/go-drift/form/pkg/errors"
)

// Button is the action an external trigger performs on a form.
type Button int

const (
	// ButtonSubmit submits the form.
	ButtonSubmit Button = iota
	// ButtonReset resets the form.
	ButtonReset
)

// Directory maps form ids to live controllers so that triggers living
// outside a form can reach it.
type Directory struct {
	mu    sync.RWMutex
	forms map[string]*Controller
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{forms: make(map[string]*Controller)}
}

func (d *Directory) attach(c *Controller) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.forms[c.id]; ok {
		return formerrors.New("form.Directory.attach", formerrors.KindDuplicateFormID, c.id, nil)
	}
	d.forms[c.id] = c
	return nil
}

func (d *Directory) detach(c *Controller) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.forms[c.id] == c {
		delete(d.forms, c.id)
	}
}

// Lookup returns the live controller registered under id.
func (d *Directory) Lookup(id string) (*Controller, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.forms[id]
	return c, ok
}

// IDs returns the registered ids, sorted.
func (d *Directory) IDs() []string {
	d.mu.RLock()
	out := make([]string, 0, len(d.forms))
	for id := range d.forms {
		out = append(out, id)
	}
	d.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Submit submits the form registered under id.
func (d *Directory) Submit(ctx context.Context, id string) (Outcome, error) {
	c, ok := d.Lookup(id)
	if !ok {
		return OutcomeAborted, formerrors.New("form.Directory.Submit", formerrors.KindUnknownForm, id, nil)
	}
	return c.Submit(ctx)
}

// Reset resets the form registered under id.
func (d *Directory) Reset(id string) error {
	c, ok := d.Lookup(id)
	if !ok {
		return formerrors.New("form.Directory.Reset", formerrors.KindUnknownForm, id, nil)
	}
	c.Reset()
	return nil
}

// Press performs button on the form registered under id, the way a submit or
// reset button placed outside the form would. Failures have no caller to
// return to and are sent to the global error handler instead.
func (d *Directory) Press(ctx context.Context, id string, button Button) {
	var err error
	switch button {
	case ButtonReset:
		err = d.Reset(id)
	default:
		_, err = d.Submit(ctx, id)
	}
	if err == nil {
		return
	}
	var fe *formerrors.FormError
	if !errors.As(err, &fe) {
		fe = formerrors.New("form.Directory.Press", formerrors.KindUnknown, id, err)
	}
	formerrors.Report(fe)
}
