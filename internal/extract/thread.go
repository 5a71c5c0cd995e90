package extract

import (
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/codex-k8s/jiradraft/internal/page"
	"github.com/codex-k8s/jiradraft/internal/promptctx"
	"github.com/codex-k8s/jiradraft/internal/redact"
)

// CommentNodes returns every comment-shaped node in document order, except nodes that
// are or hold an open editor so in-progress drafts never reach the prompt.
func CommentNodes(doc *page.Document, profile page.Profile) []*html.Node {
	var nodes []*html.Node
	profile.Comments.Union(doc.Root()).Each(func(_ int, s *goquery.Selection) {
		if profile.Editing.Matches(s) || profile.Editing.Union(s).Length() > 0 {
			return
		}
		nodes = append(nodes, s.Nodes[0])
	})
	return nodes
}

// CollectComments returns the text of the last limit comments, newest first, redacted.
// Entries without visible text are dropped after the limit is applied.
func CollectComments(doc *page.Document, profile page.Profile, limit int) promptctx.Thread {
	return threadFrom(CommentNodes(doc, profile), limit)
}

func threadFrom(nodes []*html.Node, limit int) promptctx.Thread {
	if limit <= 0 {
		limit = promptctx.DefaultThreadLimit
	}
	if len(nodes) > limit {
		nodes = nodes[len(nodes)-limit:]
	}

	thread := make(promptctx.Thread, 0, len(nodes))
	for i := len(nodes) - 1; i >= 0; i-- {
		text := page.NodeText(nodes[i])
		if text == "" {
			continue
		}
		thread = append(thread, redact.Redact(text))
	}
	return thread
}
