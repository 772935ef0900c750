package headless

import (
	"errors"
	"fmt"

	"github.com/delaneyj/recompose/compose"
)

var ErrNotFound = errors.New("headless: no matching entity")

// Click dispatches a click on the button labelled label through rt, the way
// a windowed renderer forwards pointer input.
func (w *World) Click(rt *compose.Runtime, label string) error {
	e, ok := w.FindButton(label)
	if !ok {
		return fmt.Errorf("%w: button %q", ErrNotFound, label)
	}
	return rt.Dispatch(e)
}
