package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codex-k8s/jiradraft/internal/config"
	"github.com/codex-k8s/jiradraft/internal/deliver"
	"github.com/codex-k8s/jiradraft/internal/drafterr"
	"github.com/codex-k8s/jiradraft/internal/page"
	"github.com/codex-k8s/jiradraft/internal/prompt"
)

const issueURL = "https://example.atlassian.net/browse/ABC-123"

const readablePage = `<html><body>
<div data-testid="issue-view">
  <span data-testid="issue-key">ABC-123</span>
  <h1 data-testid="issue.views.issue-base.foundation.summary.heading">Fix login bug</h1>
  <div data-testid="issue.views.issue-details.foundation.description"><p>Users see a 500 after SSO.</p></div>
  <div data-testid="issue.activity.comment"><p>I reproduced it on prod, card 1234567890123456.</p></div>
  <div data-testid="issue.activity.comment"><p>Alex, can you confirm the fix works on staging?</p></div>
  <div data-testid="issue.activity.comment"><p>Thanks all.</p></div>
  <textarea aria-label="Add a comment"></textarea>
</div>
</body></html>`

type staticSettings struct {
	settings config.Settings
	err      error
}

func (s staticSettings) Load() (config.Settings, error) {
	return s.settings, s.err
}

type fakeDrafter struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
}

func (d *fakeDrafter) RequestDraft(_ context.Context, userPrompt string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prompts = append(d.prompts, userPrompt)
	return d.reply, d.err
}

func defaultSettings() config.Settings {
	return config.Settings{APIKey: "sk-test", Model: "gpt-5", DisplayName: "Alex Ivanov", ThreadLimit: 6}
}

func newTestPipeline(t *testing.T, settings SettingsSource, drafter *fakeDrafter) *Pipeline {
	t.Helper()
	d := deliver.New(nil, nil)
	d.Interval = time.Millisecond
	d.Timeout = 20 * time.Millisecond
	p, err := New(slog.Default(), settings,
		WithDrafterFactory(func(*slog.Logger, config.Settings) Drafter { return drafter }),
		WithDeliverer(d),
	)
	require.NoError(t, err)
	return p
}

func parse(t *testing.T, html string) *page.Document {
	t.Helper()
	doc, err := page.FromString(html, issueURL)
	require.NoError(t, err)
	return doc
}

func TestRunDeliversDraftIntoEditor(t *testing.T) {
	drafter := &fakeDrafter{reply: "I checked staging, the fix holds."}
	p := newTestPipeline(t, staticSettings{settings: defaultSettings()}, drafter)
	doc := parse(t, readablePage)
	surface := deliver.NewHTMLSurface(doc, page.DefaultProfile())

	res, err := p.Run(context.Background(), doc, surface)
	require.NoError(t, err)

	assert.Equal(t, "I checked staging, the fix holds.", res.Comment)
	assert.Equal(t, deliver.OutcomeTextInput, res.Outcome)
	assert.Equal(t, "I checked staging, the fix holds.", doc.Root().Find("textarea").Text())

	require.Len(t, drafter.prompts, 1)
	sent := drafter.prompts[0]
	assert.Equal(t, res.Prompt, sent)
	assert.Contains(t, sent, "ABC-123")
	assert.Contains(t, sent, "Fix login bug")
	assert.Contains(t, sent, "Alex, can you confirm the fix works on staging?")
	assert.Contains(t, sent, prompt.Guidelines)
	assert.Contains(t, sent, "1234…3456")
	assert.NotContains(t, sent, "1234567890123456")

	assert.Equal(t, "Alex, can you confirm the fix works on staging?", res.Context.Question)
	assert.Len(t, res.Context.Thread, 3)
	assert.Equal(t, "Thanks all.", res.Context.Thread[0])
}

func TestRunUnreadablePageStopsBeforeNetwork(t *testing.T) {
	drafter := &fakeDrafter{reply: "never"}
	p := newTestPipeline(t, staticSettings{settings: defaultSettings()}, drafter)
	doc := parse(t, `<html><body><div data-testid="issue.activity.comment">Any news?</div><textarea></textarea></body></html>`)

	_, err := p.Run(context.Background(), doc, deliver.NewHTMLSurface(doc, page.DefaultProfile()))

	require.Error(t, err)
	assert.Equal(t, drafterr.KindExtraction, drafterr.KindOf(err))
	assert.Equal(t, "Could not read the issue. Open the issue panel fully and try again.", err.Error())
	assert.Empty(t, drafter.prompts)
}

func TestRunDraftFailureDeliversNothing(t *testing.T) {
	drafter := &fakeDrafter{err: drafterr.New(drafterr.KindAuth, "Unauthorized: check your API key.")}
	p := newTestPipeline(t, staticSettings{settings: defaultSettings()}, drafter)
	doc := parse(t, readablePage)

	_, err := p.Run(context.Background(), doc, deliver.NewHTMLSurface(doc, page.DefaultProfile()))

	require.Error(t, err)
	assert.Equal(t, drafterr.KindAuth, drafterr.KindOf(err))
	assert.Equal(t, "", doc.Root().Find("textarea").Text())
}

func TestRunSettingsFailure(t *testing.T) {
	drafter := &fakeDrafter{}
	p := newTestPipeline(t, staticSettings{err: errors.New("disk on fire")}, drafter)

	_, err := p.Run(context.Background(), parse(t, readablePage), nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
	assert.Empty(t, drafter.prompts)
}

func TestRunWithoutSurfaceSkipsDelivery(t *testing.T) {
	drafter := &fakeDrafter{reply: "ok"}
	p := newTestPipeline(t, staticSettings{settings: defaultSettings()}, drafter)
	doc := parse(t, readablePage)

	res, err := p.Run(context.Background(), doc, nil)

	require.NoError(t, err)
	assert.Equal(t, "ok", res.Comment)
	assert.Empty(t, res.Outcome)
	assert.Equal(t, "", doc.Root().Find("textarea").Text())
}

func TestPrepareMakesNoDraftRequest(t *testing.T) {
	drafter := &fakeDrafter{}
	p := newTestPipeline(t, staticSettings{settings: defaultSettings()}, drafter)

	prepared, err := p.Prepare(context.Background(), parse(t, readablePage))

	require.NoError(t, err)
	assert.Equal(t, "ABC-123", prepared.Context.Issue.Key)
	assert.Contains(t, prepared.Prompt, "Fix login bug")
	assert.Empty(t, drafter.prompts)
}

func TestPrepareHonorsThreadLimitAndDisplayName(t *testing.T) {
	settings := defaultSettings()
	settings.ThreadLimit = 1
	settings.DisplayName = "Maria Lopez"
	p := newTestPipeline(t, staticSettings{settings: settings}, &fakeDrafter{})

	prepared, err := p.Prepare(context.Background(), parse(t, readablePage))

	require.NoError(t, err)
	assert.Equal(t, []string{"Thanks all."}, []string(prepared.Context.Thread))
	assert.Equal(t, "Maria Lopez", prepared.Context.DisplayName)
	// Nobody asked Maria, so the newest question from anyone is used.
	assert.Equal(t, "Alex, can you confirm the fix works on staging?", prepared.Context.Question)
}

func TestPrepareUsesLocatorProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locators.yaml")
	require.NoError(t, os.WriteFile(path, []byte("title:\n  - \"#summary\"\n"), 0o600))
	settings := defaultSettings()
	settings.LocatorsFile = path
	p := newTestPipeline(t, staticSettings{settings: settings}, &fakeDrafter{})

	prepared, err := p.Prepare(context.Background(), parse(t, `<main><div id="summary">Custom summary</div></main>`))

	require.NoError(t, err)
	assert.Equal(t, "Custom summary", prepared.Context.Issue.Title)
	assert.Equal(t, page.Chain{"#summary"}, prepared.Profile.Title)
}

func TestPrepareRejectsBrokenLocatorProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locators.yaml")
	require.NoError(t, os.WriteFile(path, []byte("title:\n  - \"div[\"\n"), 0o600))
	settings := defaultSettings()
	settings.LocatorsFile = path
	p := newTestPipeline(t, staticSettings{settings: settings}, &fakeDrafter{})

	_, err := p.Prepare(context.Background(), parse(t, readablePage))

	require.Error(t, err)
	assert.Equal(t, drafterr.KindConfiguration, drafterr.KindOf(err))
}

func TestPrepareCancelledContext(t *testing.T) {
	p := newTestPipeline(t, staticSettings{settings: defaultSettings()}, &fakeDrafter{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Prepare(ctx, parse(t, readablePage))

	assert.ErrorIs(t, err, context.Canceled)
}
