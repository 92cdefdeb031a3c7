package theming

import (
	"log"
	"time"
)

// ApplyDebounced schedules Apply(imagePath) to run after a fixed delay,
// cancelling any pending timer from an earlier call. Only the final
// image path supplied before the delay elapses is themed, per spec
// §4.7 — the same cancel-and-rearm time.AfterFunc primitive the
// example pack's ImageStore.scheduleSaveLocked uses for debounced cache
// persistence, generalized here from "debounced save" to "debounced
// theme apply."
func (e *Engine) ApplyDebounced(imagePath string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pendingImage = imagePath
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(debounceInterval, func() {
		e.fireDebounced()
	})
}

// fireDebounced runs the pending apply. It re-reads the pending image
// under lock in case a newer call raced the timer (it shouldn't, since
// Stop+reassign happens under the same lock, but reading it here keeps
// the invariant obvious rather than relying on closure capture order).
func (e *Engine) fireDebounced() {
	e.mu.Lock()
	imagePath := e.pendingImage
	e.timer = nil
	e.mu.Unlock()

	if imagePath == "" {
		return
	}
	if err := e.Apply(imagePath); err != nil {
		log.Printf("theming: debounced apply failed for %s: %v", imagePath, err)
	}
}

// Close cancels any pending debounce timer and clears pending state. It
// does not join the timer's goroutine — per spec §4.7, the timer
// thread is daemonized and reference-dropped on cancel rather than
// waited on, so Close never blocks.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.pendingImage = ""
}
