// Package promptctx defines data structures extracted from an issue page and fed into
// prompt templates.
package promptctx

import "strings"

// ThreadSeparator is placed between thread entries when the preview is rendered.
const ThreadSeparator = "\n---\n"

// DefaultThreadLimit bounds the thread preview when no limit is configured.
const DefaultThreadLimit = 6

// Issue is a snapshot of the issue currently displayed. Missing fields are empty.
type Issue struct {
	// Key is the issue key such as ABC-123.
	Key string `json:"key"`
	// Title is the issue summary.
	Title string `json:"title"`
	// Description is the visible description text.
	Description string `json:"description"`
	// AcceptanceCriteria is the acceptance criteria block text.
	AcceptanceCriteria string `json:"acceptanceCriteria"`
}

// Readable reports whether the page yielded enough text to draft against.
func (i Issue) Readable() bool {
	return i.Title != "" || i.Description != ""
}

// Thread is a redacted, newest-first, bounded list of comment texts.
type Thread []string

// Join renders the thread with ThreadSeparator between entries.
func (t Thread) Join() string {
	return strings.Join(t, ThreadSeparator)
}

// Context is everything a draft prompt is rendered from.
type Context struct {
	// Issue is the extracted issue snapshot.
	Issue Issue `json:"issue"`
	// DisplayName is the user the draft is written as.
	DisplayName string `json:"displayName"`
	// Question is the redacted comment the draft should answer; may be empty.
	Question string `json:"question"`
	// Thread is the recent thread preview.
	Thread Thread `json:"thread"`
}
