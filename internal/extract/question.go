package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/codex-k8s/jiradraft/internal/page"
	"github.com/codex-k8s/jiradraft/internal/redact"
)

// addressee decides whether a comment is directed at one person. The three checks are
// independent and any one of them is enough.
type addressee struct {
	fullName  *regexp.Regexp
	firstName *regexp.Regexp
	mention   func(string) bool
	mentions  page.Chain
}

func newAddressee(displayName string, mentions page.Chain) *addressee {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return nil
	}
	return &addressee{
		fullName:  namePattern(name),
		firstName: namePattern(strings.Fields(name)[0]),
		mention:   mentionMatcher(name),
		mentions:  mentions,
	}
}

// namePattern matches name case-insensitively when it starts the text or follows
// whitespace or "@".
func namePattern(name string) *regexp.Regexp {
	expr := `(?i)(?:^|\s|@)` + regexp.QuoteMeta(name)
	if isWordByte(name[len(name)-1]) {
		expr += `\b`
	}
	return regexp.MustCompile(expr)
}

// isWordByte mirrors the ASCII word class used by \b.
func isWordByte(c byte) bool {
	return c == '_' || '0' <= c && c <= '9' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

// mentionMatcher treats the display name as a pattern, as mention chips are matched
// loosely. Names that are not valid patterns fall back to a substring test.
func mentionMatcher(name string) func(string) bool {
	if re, err := regexp.Compile(`(?i)` + name); err == nil {
		return re.MatchString
	}
	lower := strings.ToLower(name)
	return func(s string) bool {
		return strings.Contains(strings.ToLower(s), lower)
	}
}

func (a *addressee) matches(node *html.Node, text string) bool {
	if a.fullName.MatchString(text) || a.firstName.MatchString(text) {
		return true
	}
	found := false
	a.mentions.Union(goquery.NewDocumentFromNode(node).Selection).EachWithBreak(func(_ int, m *goquery.Selection) bool {
		found = a.mention(m.Text())
		return !found
	})
	return found
}

// FindQuestionForMe returns the newest comment that asks a question and is addressed to
// displayName. When no comment is addressed to them it returns the newest question from
// anyone, and "" when the thread holds no question at all. The result is redacted.
func FindQuestionForMe(doc *page.Document, profile page.Profile, displayName string) string {
	return questionFrom(CommentNodes(doc, profile), newAddressee(displayName, profile.Mentions))
}

func questionFrom(nodes []*html.Node, who *addressee) string {
	texts := make([]string, len(nodes))
	for i, n := range nodes {
		texts[i] = page.NodeText(n)
	}

	if who != nil {
		for i := len(nodes) - 1; i >= 0; i-- {
			text := texts[i]
			if text == "" || !strings.Contains(text, "?") {
				continue
			}
			if who.matches(nodes[i], text) {
				return redact.Redact(text)
			}
		}
	}

	for i := len(texts) - 1; i >= 0; i-- {
		if strings.Contains(texts[i], "?") {
			return redact.Redact(texts[i])
		}
	}
	return ""
}
