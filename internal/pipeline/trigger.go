package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/codex-k8s/jiradraft/internal/deliver"
	"github.com/codex-k8s/jiradraft/internal/drafterr"
)

const (
	// IdleLabel is shown while the trigger can be activated.
	IdleLabel = "AI draft comment"
	// BusyLabel is shown while a run is in flight.
	BusyLabel = "Drafting..."
)

var (
	// ErrBusy is returned when the trigger is activated during a run.
	ErrBusy = errors.New("a draft is already in progress")
	// ErrNoAction is returned by Activate on a trigger built without a run action.
	ErrNoAction = errors.New("trigger has no action")
)

// Notifier shows one message to the user.
type Notifier interface {
	Notify(kind drafterr.Kind, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(kind drafterr.Kind, message string)

// Notify calls f.
func (f NotifierFunc) Notify(kind drafterr.Kind, message string) {
	f(kind, message)
}

// RunFunc is the action a trigger guards.
type RunFunc func(ctx context.Context) (Result, error)

// Trigger owns the busy state of the drafting action. At most one run is in flight.
type Trigger struct {
	logger   *slog.Logger
	notifier Notifier
	run      RunFunc
	busy     atomic.Bool
}

// NewTrigger guards run and reports failures through notifier. run may be nil when
// the trigger is only used through Do; Activate then returns ErrNoAction.
func NewTrigger(logger *slog.Logger, notifier Notifier, run RunFunc) *Trigger {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = NotifierFunc(func(drafterr.Kind, string) {})
	}
	return &Trigger{logger: logger, notifier: notifier, run: run}
}

// Busy reports whether a run is in flight.
func (t *Trigger) Busy() bool {
	return t.busy.Load()
}

// Label returns the text the trigger control shows right now.
func (t *Trigger) Label() string {
	if t.Busy() {
		return BusyLabel
	}
	return IdleLabel
}

// Activate runs the guarded action unless one is already running, in which case it
// returns ErrBusy without running. A failure produces exactly one notification, and
// so does a draft that ended up on the clipboard.
func (t *Trigger) Activate(ctx context.Context) (Result, error) {
	if t.run == nil {
		return Result{}, ErrNoAction
	}
	return t.Do(ctx, t.run)
}

// Do is Activate for a one-off action sharing this trigger's busy state.
func (t *Trigger) Do(ctx context.Context, run RunFunc) (Result, error) {
	if run == nil {
		return Result{}, ErrNoAction
	}
	if !t.busy.CompareAndSwap(false, true) {
		t.logger.Debug("trigger activated while busy")
		return Result{}, ErrBusy
	}
	defer t.busy.Store(false)

	res, err := run(ctx)
	if err != nil {
		kind := drafterr.KindOf(err)
		t.logger.Debug("draft failed", "kind", kind, "error", err)
		t.notifier.Notify(kind, err.Error())
		return Result{}, err
	}
	if res.Outcome.Degraded() {
		t.notifier.Notify(drafterr.KindDeliveryDegraded, deliver.ClipboardNotice)
	}
	return res, nil
}
