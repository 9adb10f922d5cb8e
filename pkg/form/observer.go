package form

import "time"

// Observer receives lifecycle events from a controller. Implementations must
// be safe for concurrent use and must not call back into the controller.
type Observer interface {
	ValuesChanged(formID string, entries int)
	ErrorsSet(formID string, entries int)
	Submitted(formID string, outcome Outcome, elapsed time.Duration)
	Reset(formID string)
}

type nopObserver struct{}

func (nopObserver) ValuesChanged(string, int) {}
func (nopObserver) ErrorsSet(string, int) {}
func (nopObserver) Submitted(string, Outcome, time.Duration) {}
func (nopObserver) Reset(string) {}
