// Package deliver places a finished draft into the page's comment editor, mounting
// the editor first when needed, and falls back to the clipboard.
package deliver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/atotto/clipboard"
)

const (
	// DefaultInterval is the pause between editor lookups while waiting for a mount.
	DefaultInterval = 150 * time.Millisecond
	// DefaultTimeout bounds the wait for the editor to mount.
	DefaultTimeout = 2 * time.Second

	// ClipboardNotice tells the user the draft is waiting on the clipboard.
	ClipboardNotice = "Draft copied to clipboard (comment editor not found). Paste it manually."
)

// EditorKind tells how an editor accepts text.
type EditorKind int

const (
	// Unsupported editors cannot take text directly.
	Unsupported EditorKind = iota
	// TextInput is a plain text control holding a value.
	TextInput
	// RichText is an editable region such as a ProseMirror document.
	RichText
)

// Editor is a mounted comment editor.
type Editor interface {
	Kind() EditorKind
	// SetValue replaces the value of a text input.
	SetValue(text string)
	// NotifyChange emits the change notification host scripts listen for.
	NotifyChange()
	// InsertText inserts at the caret and reports whether the region accepted it.
	InsertText(text string) bool
	// ReplaceText replaces the whole text content of a rich region.
	ReplaceText(text string)
}

// Surface is the page side of delivery.
type Surface interface {
	// Editor returns the mounted comment editor, or nil.
	Editor() Editor
	// Activate triggers an "add comment" control and reports whether one was found.
	Activate() bool
}

// Clipboard receives drafts that could not be placed in an editor.
type Clipboard interface {
	WriteText(text string) error
}

// SystemClipboard is the desktop clipboard.
type SystemClipboard struct{}

// WriteText copies text to the system clipboard.
func (SystemClipboard) WriteText(text string) error {
	return clipboard.WriteAll(text)
}

// Outcome records where a draft ended up.
type Outcome string

const (
	OutcomeTextInput Outcome = "text_input"
	OutcomeInserted  Outcome = "inserted"
	OutcomeReplaced  Outcome = "replaced"
	OutcomeClipboard Outcome = "clipboard"
)

// Degraded reports whether the user still has to paste the draft.
func (o Outcome) Degraded() bool {
	return o == OutcomeClipboard
}

// Deliverer puts drafts into editors.
type Deliverer struct {
	Interval  time.Duration
	Timeout   time.Duration
	Clipboard Clipboard
	logger    *slog.Logger
}

// New returns a Deliverer with the default poll settings. A nil clipboard means the
// system clipboard.
func New(logger *slog.Logger, clip Clipboard) *Deliverer {
	if logger == nil {
		logger = slog.Default()
	}
	if clip == nil {
		clip = SystemClipboard{}
	}
	return &Deliverer{
		Interval:  DefaultInterval,
		Timeout:   DefaultTimeout,
		Clipboard: clip,
		logger:    logger,
	}
}

// Deliver writes text into the surface's comment editor. When no usable editor shows
// up the text goes to the clipboard and the outcome is OutcomeClipboard.
func (d *Deliverer) Deliver(ctx context.Context, surface Surface, text string) (Outcome, error) {
	editor, err := d.ensureEditor(ctx, surface)
	if err != nil {
		return "", err
	}

	kind := Unsupported
	if editor != nil {
		kind = editor.Kind()
	}

	switch kind {
	case TextInput:
		editor.SetValue(text)
		editor.NotifyChange()
		d.logger.Debug("draft delivered", "stage", "deliver", "outcome", OutcomeTextInput)
		return OutcomeTextInput, nil
	case RichText:
		if editor.InsertText(text) {
			d.logger.Debug("draft delivered", "stage", "deliver", "outcome", OutcomeInserted)
			return OutcomeInserted, nil
		}
		editor.ReplaceText(text)
		d.logger.Debug("draft delivered", "stage", "deliver", "outcome", OutcomeReplaced)
		return OutcomeReplaced, nil
	default:
		if err := d.Clipboard.WriteText(text); err != nil {
			return "", fmt.Errorf("copy draft to clipboard: %w", err)
		}
		d.logger.Info("comment editor not found, draft copied to clipboard", "stage", "deliver")
		return OutcomeClipboard, nil
	}
}

// ensureEditor returns the mounted editor or activates the surface and polls for one.
// A nil editor with a nil error means the wait ran out.
func (d *Deliverer) ensureEditor(ctx context.Context, surface Surface) (Editor, error) {
	if editor := surface.Editor(); editor != nil {
		return editor, nil
	}
	if surface.Activate() {
		d.logger.Debug("add comment control activated", "stage", "deliver")
	}

	interval := d.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	deadline := time.Now().Add(d.Timeout)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for time.Now().Before(deadline) {
		if editor := surface.Editor(); editor != nil {
			return editor, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
	return nil, nil
}
