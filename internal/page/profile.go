package page

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile holds every locator chain used against an issue page. Tracker markup is not
// stable, so any chain can be overridden from a YAML file.
type Profile struct {
	// Container locates the issue root: full page view, side panel, generic main region.
	Container Chain `yaml:"container,omitempty"`
	// Key locates the visible issue key.
	Key Chain `yaml:"key,omitempty"`
	// Title locates the issue summary heading.
	Title Chain `yaml:"title,omitempty"`
	// Description locates the rich-text description.
	Description Chain `yaml:"description,omitempty"`
	// Headings are scanned for an "acceptance criteria" label.
	Headings Chain `yaml:"headings,omitempty"`
	// Fields are field-style blocks scanned for acceptance criteria text.
	Fields Chain `yaml:"fields,omitempty"`
	// Comments are unioned to enumerate thread entries.
	Comments Chain `yaml:"comments,omitempty"`
	// Editing marks an entry that is currently being composed or edited.
	Editing Chain `yaml:"editing,omitempty"`
	// Mentions are structured mention annotations inside a comment.
	Mentions Chain `yaml:"mentions,omitempty"`
	// Editor locates a mounted comment editor.
	Editor Chain `yaml:"editor,omitempty"`
	// AddComment locates controls that mount the comment editor when activated.
	AddComment Chain `yaml:"addComment,omitempty"`
}

// DefaultProfile returns the locators for the Jira Cloud issue view.
func DefaultProfile() Profile {
	return Profile{
		Container: Chain{
			`[data-testid="issue-view"], [data-test-id="issue.views.root"]`,
			`[data-testid="issue-view-layout"], [data-testid="issue-view-root"], [role="dialog"] [data-testid="issue-view"]`,
			`main, [role="main"]`,
		},
		Key: Chain{
			`[data-testid="issue-key"], [data-test-id="issue.views.issue-base.foundation.breadcrumbs.current-issue.item"]`,
		},
		Title: Chain{
			`[data-test-id="issue.views.issue-base.foundation.summary.heading"], [data-testid="issue.views.issue-base.foundation.summary.heading"]`,
			`h1`,
		},
		Description: Chain{
			`[data-test-id="issue.views.field.rich-text"], [data-testid="issue.views.issue-details.foundation.description"], [data-test-id="issue.activity.description"]`,
		},
		Headings: Chain{`h1, h2, h3, h4, h5, h6`},
		Fields:   Chain{`[data-testid="issue-field"]`},
		Comments: Chain{
			`[data-testid="issue.activity.comment"]`,
			`[data-test-id="issue.activity.comment"]`,
			`[data-testid*="comment"][role="article"]`,
			`[data-testid*="comment"]`,
			`.activity-item[data-test-id*="comment"]`,
			`[data-testid="issue-view-activity-item.comment"]`,
		},
		Editing:  Chain{`[contenteditable="true"]`, `textarea`},
		Mentions: Chain{`[data-mention-id]`},
		Editor: Chain{
			`#ak-editor-textarea`,
			`.ProseMirror[role="textbox"]`,
			`[role="textbox"][contenteditable="true"]`,
			`[aria-label^="Comment"][contenteditable="true"]`,
			`[data-test-id="issue.activity.comment.editor"] textarea`,
			`[data-testid="issue.activity.comment.editor"] textarea`,
			`textarea[aria-label="Add a comment"]`,
			`[contenteditable="true"][data-testid*="comment"]`,
			`[contenteditable="true"]`,
		},
		AddComment: Chain{
			`button[aria-label="Add a comment"]`,
			`[data-testid*="add-comment"][role="button"]`,
			`[data-testid*="comment-button"]`,
		},
	}
}

// LoadProfile reads a YAML override file and merges it over the defaults. An empty
// path returns the defaults.
func LoadProfile(path string) (Profile, error) {
	profile := DefaultProfile()
	if path == "" {
		return profile, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read locator profile %q: %w", path, err)
	}

	var override Profile
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return Profile{}, fmt.Errorf("parse locator profile %q: %w", path, err)
	}

	profile.merge(override)
	if err := profile.Validate(); err != nil {
		return Profile{}, fmt.Errorf("locator profile %q: %w", path, err)
	}
	return profile, nil
}

// Validate checks that every locator in every chain compiles.
func (p Profile) Validate() error {
	for _, field := range p.fields() {
		if err := field.chain.Validate(); err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
	}
	return nil
}

func (p *Profile) merge(o Profile) {
	replace := func(dst *Chain, src Chain) {
		if len(src) > 0 {
			*dst = src
		}
	}
	replace(&p.Container, o.Container)
	replace(&p.Key, o.Key)
	replace(&p.Title, o.Title)
	replace(&p.Description, o.Description)
	replace(&p.Headings, o.Headings)
	replace(&p.Fields, o.Fields)
	replace(&p.Comments, o.Comments)
	replace(&p.Editing, o.Editing)
	replace(&p.Mentions, o.Mentions)
	replace(&p.Editor, o.Editor)
	replace(&p.AddComment, o.AddComment)
}

type namedChain struct {
	name  string
	chain Chain
}

func (p Profile) fields() []namedChain {
	return []namedChain{
		{"container", p.Container},
		{"key", p.Key},
		{"title", p.Title},
		{"description", p.Description},
		{"headings", p.Headings},
		{"fields", p.Fields},
		{"comments", p.Comments},
		{"editing", p.Editing},
		{"mentions", p.Mentions},
		{"editor", p.Editor},
		{"addComment", p.AddComment},
	}
}
