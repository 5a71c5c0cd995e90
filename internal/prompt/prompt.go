// Package prompt renders the draft-reply request sent to the generation service.
package prompt

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/codex-k8s/jiradraft/internal/promptctx"
)

const (
	builtinTemplateDir = "templates"
	builtinTemplateExt = ".tmpl"
	defaultPromptLang  = "en"

	// KindDraftReply is the builtin prompt for a reply comment.
	KindDraftReply = "draft_reply"

	// NoQuestionPlaceholder stands in for the question when none was found.
	NoQuestionPlaceholder = "(No explicit question detected; provide a brief helpful update)"
)

// Guidelines is the fixed style block closing every draft prompt.
const Guidelines = `Guidelines
- Sound like a human teammate; do not include AI/meta language.
- Be concise, specific, and action-oriented; keep to 2–6 short sentences or 3–6 bullets.
- If information is missing, ask one precise clarifying question and propose a next step.
- If a commitment is needed, state it plainly (e.g., what I will check or by when).
- Output only the comment body with no preface or labels.`

// SystemInstruction is sent as the system message with every draft request.
const SystemInstruction = "You write Jira comments exactly like a thoughtful human teammate who has personally reviewed the ticket. " +
	"Use first person (\"I\"). Be natural, concise, and specific. Offer concrete, actionable suggestions and next steps. " +
	"Prefer short bullets where helpful. Do not include any AI disclaimers, meta commentary, or restating the instructions. " +
	"No prefaces like 'Here is'; return only the comment text."

//go:embed templates/*.tmpl
var builtinTemplates embed.FS

// templateData is what templates see. Question already carries the placeholder.
type templateData struct {
	Issue       promptctx.Issue
	DisplayName string
	Question    string
	Thread      string
	Guidelines  string
}

// Composer renders draft prompts from a parsed template.
type Composer struct {
	tmpl *template.Template
}

// NewComposer returns a Composer using the builtin draft-reply template.
func NewComposer() (*Composer, error) {
	name := builtinTemplatePath(KindDraftReply, defaultPromptLang)
	raw, err := builtinTemplates.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("load builtin prompt %q: %w", name, err)
	}
	return newComposer(filepath.Base(name), raw)
}

// NewComposerFromFile returns a Composer using a user-supplied template file. The
// template sees the same fields as the builtin one.
func NewComposerFromFile(path string) (*Composer, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("prompt template path is empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt template %q: %w", path, err)
	}
	return newComposer(filepath.Base(path), raw)
}

func newComposer(name string, raw []byte) (*Composer, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse prompt template %q: %w", name, err)
	}
	return &Composer{tmpl: tmpl}, nil
}

// Compose renders the prompt for ctx. The output depends only on ctx.
func (c *Composer) Compose(ctx promptctx.Context) (string, error) {
	question := ctx.Question
	if question == "" {
		question = NoQuestionPlaceholder
	}

	data := templateData{
		Issue:       ctx.Issue,
		DisplayName: ctx.DisplayName,
		Question:    question,
		Thread:      ctx.Thread.Join(),
		Guidelines:  Guidelines,
	}

	var sb strings.Builder
	if err := c.tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("execute prompt template: %w", err)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// Compose renders ctx with the builtin template.
func Compose(ctx promptctx.Context) (string, error) {
	c, err := NewComposer()
	if err != nil {
		return "", err
	}
	return c.Compose(ctx)
}

// builtinTemplatePath constructs the embedded template path for a given kind and language.
func builtinTemplatePath(kind, lang string) string {
	base := strings.ToLower(strings.TrimSpace(kind))
	locale := strings.ToLower(strings.TrimSpace(lang))
	return filepath.ToSlash(filepath.Join(builtinTemplateDir, base+"_"+locale+builtinTemplateExt))
}
