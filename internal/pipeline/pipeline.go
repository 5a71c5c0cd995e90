// Package pipeline runs one drafting action end to end: read the page, compose the
// prompt, request the draft and deliver it.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/codex-k8s/jiradraft/internal/config"
	"github.com/codex-k8s/jiradraft/internal/deliver"
	"github.com/codex-k8s/jiradraft/internal/draftapi"
	"github.com/codex-k8s/jiradraft/internal/drafterr"
	"github.com/codex-k8s/jiradraft/internal/extract"
	"github.com/codex-k8s/jiradraft/internal/page"
	"github.com/codex-k8s/jiradraft/internal/prompt"
	"github.com/codex-k8s/jiradraft/internal/promptctx"
)

// unreadableIssue is reported when neither title nor description could be read.
const unreadableIssue = "Could not read the issue. Open the issue panel fully and try again."

// SettingsSource yields the settings of one run.
type SettingsSource interface {
	Load() (config.Settings, error)
}

// Drafter turns a prompt into comment text.
type Drafter interface {
	RequestDraft(ctx context.Context, userPrompt string) (string, error)
}

// DrafterFactory builds a Drafter for the settings of a run.
type DrafterFactory func(logger *slog.Logger, settings config.Settings) Drafter

// Deliverer places text into a surface.
type Deliverer interface {
	Deliver(ctx context.Context, surface deliver.Surface, text string) (deliver.Outcome, error)
}

// Prepared is the outcome of the read stages and composition.
type Prepared struct {
	Settings config.Settings
	Profile  page.Profile
	Context  promptctx.Context
	Prompt   string
}

// Result is the outcome of a full run.
type Result struct {
	Prepared
	// Comment is the generated draft.
	Comment string
	// Outcome is where the draft was delivered; empty when no surface was given.
	Outcome deliver.Outcome
}

// Pipeline wires the stages together.
type Pipeline struct {
	logger     *slog.Logger
	settings   SettingsSource
	newDrafter DrafterFactory
	composer   *prompt.Composer
	deliverer  Deliverer
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithDrafterFactory replaces how drafters are built from settings.
func WithDrafterFactory(f DrafterFactory) Option {
	return func(p *Pipeline) { p.newDrafter = f }
}

// WithComposer replaces the builtin prompt composer.
func WithComposer(c *prompt.Composer) Option {
	return func(p *Pipeline) { p.composer = c }
}

// WithDeliverer replaces the default deliverer.
func WithDeliverer(d Deliverer) Option {
	return func(p *Pipeline) { p.deliverer = d }
}

// New returns a pipeline reading its settings from source.
func New(logger *slog.Logger, source SettingsSource, opts ...Option) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		logger:     logger,
		settings:   source,
		newDrafter: NewDraftClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.composer == nil {
		c, err := prompt.NewComposer()
		if err != nil {
			return nil, err
		}
		p.composer = c
	}
	if p.deliverer == nil {
		p.deliverer = deliver.New(logger, nil)
	}
	return p, nil
}

// NewDraftClient is the default DrafterFactory.
func NewDraftClient(logger *slog.Logger, settings config.Settings) Drafter {
	return draftapi.NewClient(logger, draftapi.Config{
		APIKey:  settings.APIKey,
		Model:   settings.Model,
		BaseURL: settings.BaseURL,
	})
}

// Prepare runs the read stages and composes the prompt. No network call is made.
func (p *Pipeline) Prepare(ctx context.Context, doc *page.Document) (Prepared, error) {
	if err := ctx.Err(); err != nil {
		return Prepared{}, err
	}

	settings, err := p.settings.Load()
	if err != nil {
		return Prepared{}, fmt.Errorf("load settings: %w", err)
	}
	profile, err := page.LoadProfile(settings.LocatorsFile)
	if err != nil {
		return Prepared{}, drafterr.Wrap(drafterr.KindConfiguration, err, err.Error())
	}

	issue := extract.ExtractIssue(doc, profile)
	p.logger.Debug("issue extracted", "stage", "extract", "issue", issue.Key, "has_title", issue.Title != "", "has_description", issue.Description != "")

	question := extract.FindQuestionForMe(doc, profile, settings.DisplayName)
	p.logger.Debug("question matched", "stage", "question", "issue", issue.Key, "found", question != "")

	thread := extract.CollectComments(doc, profile, settings.ThreadLimit)
	p.logger.Debug("thread collected", "stage", "thread", "issue", issue.Key, "entries", len(thread))

	if !issue.Readable() {
		return Prepared{}, drafterr.New(drafterr.KindExtraction, unreadableIssue)
	}

	pctx := promptctx.Context{
		Issue:       issue,
		DisplayName: settings.DisplayName,
		Question:    question,
		Thread:      thread,
	}
	text, err := p.composer.Compose(pctx)
	if err != nil {
		return Prepared{}, err
	}

	return Prepared{Settings: settings, Profile: profile, Context: pctx, Prompt: text}, nil
}

// Run prepares the prompt, requests a draft and, when surface is not nil, delivers it.
// Nothing is delivered if any earlier stage fails.
func (p *Pipeline) Run(ctx context.Context, doc *page.Document, surface deliver.Surface) (Result, error) {
	prepared, err := p.Prepare(ctx, doc)
	if err != nil {
		return Result{}, err
	}
	res := Result{Prepared: prepared}

	start := time.Now()
	drafter := p.newDrafter(p.logger, prepared.Settings)
	comment, err := drafter.RequestDraft(ctx, prepared.Prompt)
	if err != nil {
		return Result{}, err
	}
	res.Comment = comment
	p.logger.Debug("draft received", "stage", "draft", "issue", prepared.Context.Issue.Key, "duration_ms", time.Since(start).Milliseconds())

	if surface == nil {
		return res, nil
	}
	outcome, err := p.deliverer.Deliver(ctx, surface, comment)
	if err != nil {
		return Result{}, fmt.Errorf("deliver draft: %w", err)
	}
	res.Outcome = outcome
	return res, nil
}
