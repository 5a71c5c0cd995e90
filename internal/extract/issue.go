// Package extract reads issue context from a rendered issue page: the issue fields,
// the recent thread and the latest question addressed to a given person.
package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/codex-k8s/jiradraft/internal/page"
	"github.com/codex-k8s/jiradraft/internal/promptctx"
)

var (
	pathKey            = regexp.MustCompile(`(?i)/([A-Z]+-\d+)\b`)
	queryKey           = regexp.MustCompile(`(?i)^[A-Z]+-\d+$`)
	acceptanceCriteria = regexp.MustCompile(`(?i)acceptance\s*criteria`)
)

// Container returns the issue root: the first container locator that matches, or the
// body when none does.
func Container(doc *page.Document, profile page.Profile) *goquery.Selection {
	if root := profile.Container.First(doc.Root()); root.Length() > 0 {
		return root
	}
	return doc.Body()
}

// ExtractIssue builds a snapshot of the displayed issue. Fields that cannot be found are
// left empty.
func ExtractIssue(doc *page.Document, profile page.Profile) promptctx.Issue {
	root := Container(doc, profile)

	key := profile.Key.FirstText(root)
	if key == "" {
		key = keyFromURL(doc)
	}

	return promptctx.Issue{
		Key:                key,
		Title:              profile.Title.FirstText(root),
		Description:        profile.Description.FirstText(root),
		AcceptanceCriteria: acceptanceCriteriaText(root, profile),
	}
}

// keyFromURL parses the key from the page path, then from the board selectedIssue query.
func keyFromURL(doc *page.Document) string {
	u := doc.URL()
	if m := pathKey.FindStringSubmatch(u.Path); m != nil {
		return m[1]
	}
	if selected := strings.TrimSpace(u.Query().Get("selectedIssue")); queryKey.MatchString(selected) {
		return selected
	}
	return ""
}

func acceptanceCriteriaText(root *goquery.Selection, profile page.Profile) string {
	if text := criteriaFromHeading(root, profile.Headings); text != "" {
		return text
	}

	var text string
	profile.Fields.Union(root).EachWithBreak(func(_ int, field *goquery.Selection) bool {
		candidate := page.Text(field)
		if acceptanceCriteria.MatchString(candidate) {
			text = candidate
			return false
		}
		return true
	})
	return text
}

// criteriaFromHeading reads the block after the first heading labelled acceptance
// criteria. Jira wraps headings, so the parent's next sibling is tried first.
func criteriaFromHeading(root *goquery.Selection, headings page.Chain) string {
	var text string
	headings.Union(root).EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if !acceptanceCriteria.MatchString(page.Text(h)) {
			return true
		}
		if sib := h.Parent().Next(); sib.Length() > 0 {
			text = page.Text(sib)
		}
		if text == "" {
			text = page.Text(h.Next())
		}
		return false
	})
	return text
}
