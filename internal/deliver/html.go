package deliver

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/codex-k8s/jiradraft/internal/page"
)

// HTMLSurface delivers into a parsed page snapshot. The snapshot is mutated in place,
// so rendering the document afterwards shows the draft inside the editor.
type HTMLSurface struct {
	doc     *page.Document
	profile page.Profile
	events  []string
}

// NewHTMLSurface binds a snapshot to the editor and trigger locators of profile.
func NewHTMLSurface(doc *page.Document, profile page.Profile) *HTMLSurface {
	return &HTMLSurface{doc: doc, profile: profile}
}

// Editor returns the first editor in document order.
func (s *HTMLSurface) Editor() Editor {
	sel := s.profile.Editor.Union(s.doc.Root()).First()
	if sel.Length() == 0 {
		return nil
	}
	return &htmlEditor{sel: sel, surface: s}
}

// Activate finds the first add-comment trigger. A snapshot has no scripts to react to
// the click, so activation mounts a plain comment textarea right after the trigger.
func (s *HTMLSurface) Activate() bool {
	trigger := s.profile.AddComment.First(s.doc.Root())
	if trigger.Length() == 0 {
		return false
	}
	trigger.AfterHtml(`<textarea aria-label="Add a comment"></textarea>`)
	s.events = append(s.events, "click")
	return true
}

// Events lists the notifications dispatched on the snapshot, oldest first.
func (s *HTMLSurface) Events() []string {
	return append([]string(nil), s.events...)
}

type htmlEditor struct {
	sel     *goquery.Selection
	surface *HTMLSurface
}

func (e *htmlEditor) Kind() EditorKind {
	if goquery.NodeName(e.sel) == "textarea" {
		return TextInput
	}
	if v, ok := e.sel.Attr("contenteditable"); ok && strings.EqualFold(v, "true") {
		return RichText
	}
	return Unsupported
}

// SetValue stores the value as the textarea's content, which is how markup carries it.
func (e *htmlEditor) SetValue(text string) {
	e.sel.SetText(text)
}

func (e *htmlEditor) NotifyChange() {
	e.surface.events = append(e.surface.events, "input")
}

// InsertText always fails: a snapshot has no selection to insert at.
func (e *htmlEditor) InsertText(string) bool {
	return false
}

func (e *htmlEditor) ReplaceText(text string) {
	e.sel.SetText(text)
}
