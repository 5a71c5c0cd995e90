package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codex-k8s/jiradraft/internal/deliver"
	"github.com/codex-k8s/jiradraft/internal/drafterr"
	"github.com/codex-k8s/jiradraft/internal/extract"
	"github.com/codex-k8s/jiradraft/internal/page"
	"github.com/codex-k8s/jiradraft/internal/pipeline"
	"github.com/codex-k8s/jiradraft/internal/promptctx"
)

type fakeRunner struct {
	comment string
	err     error
	block   chan struct{}
	entered chan struct{}
	runs    atomic.Int32
	lastURL atomic.Value
}

func (f *fakeRunner) Prepare(_ context.Context, doc *page.Document) (pipeline.Prepared, error) {
	if f.err != nil {
		return pipeline.Prepared{}, f.err
	}
	issue := extract.ExtractIssue(doc, page.DefaultProfile())
	return pipeline.Prepared{Context: promptctx.Context{Issue: issue}, Prompt: "prompt for " + issue.Key}, nil
}

func (f *fakeRunner) Run(ctx context.Context, doc *page.Document, surface deliver.Surface) (pipeline.Result, error) {
	f.runs.Add(1)
	f.lastURL.Store(doc.URL().String())
	if surface != nil {
		panic("server must not deliver")
	}
	if f.entered != nil {
		close(f.entered)
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return pipeline.Result{}, f.err
	}
	return pipeline.Result{Comment: f.comment}, nil
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

const pageBody = `{"html":"<main><span data-testid=\"issue-key\">ABC-9</span><h1>Title</h1></main>","url":"https://example.atlassian.net/browse/ABC-9"}`

func TestDraftSuccess(t *testing.T) {
	runner := &fakeRunner{comment: "Sounds good, I will check today."}
	h := NewHandler(nil, runner).Router()

	rec := post(t, h, "/v1/drafts", pageBody)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, map[string]any{"ok": true, "comment": "Sounds good, I will check today."}, decode(t, rec))
	assert.Equal(t, "https://example.atlassian.net/browse/ABC-9", runner.lastURL.Load())
}

func TestDraftFailureKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{drafterr.New(drafterr.KindExtraction, "Could not read the issue."), http.StatusUnprocessableEntity, "extraction"},
		{drafterr.New(drafterr.KindRateLimit, "Rate limit or quota exceeded."), http.StatusTooManyRequests, "rate_limit"},
		{drafterr.New(drafterr.KindAuth, "Unauthorized: check your API key."), http.StatusBadGateway, "auth"},
		{drafterr.New(drafterr.KindConfiguration, "Missing API key."), http.StatusInternalServerError, "configuration"},
	}
	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			h := NewHandler(nil, &fakeRunner{err: tc.err}).Router()

			rec := post(t, h, "/v1/drafts", pageBody)

			assert.Equal(t, tc.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["ok"])
			assert.Equal(t, tc.kind, body["kind"])
			assert.Equal(t, tc.err.Error(), body["error"])
		})
	}
}

func TestDraftRejectsBadRequests(t *testing.T) {
	runner := &fakeRunner{}
	h := NewHandler(nil, runner).Router()

	for _, body := range []string{`not json`, `{"html":"  ","url":"x"}`} {
		rec := post(t, h, "/v1/drafts", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "request", decode(t, rec)["kind"])
	}
	assert.Zero(t, runner.runs.Load())
}

func TestDraftIsSingleFlight(t *testing.T) {
	runner := &fakeRunner{comment: "done", block: make(chan struct{}), entered: make(chan struct{})}
	h := NewHandler(nil, runner).Router()

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() { first <- post(t, h, "/v1/drafts", pageBody) }()
	<-runner.entered

	busy := post(t, h, "/v1/drafts", pageBody)
	assert.Equal(t, http.StatusConflict, busy.Code)
	assert.Equal(t, "busy", decode(t, busy)["kind"])

	close(runner.block)
	assert.Equal(t, http.StatusOK, (<-first).Code)
	assert.Equal(t, int32(1), runner.runs.Load())
}

func TestPromptEndpoint(t *testing.T) {
	h := NewHandler(nil, &fakeRunner{}).Router()

	rec := post(t, h, "/v1/prompts", pageBody)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "prompt for ABC-9", body["prompt"])
	issue := body["context"].(map[string]any)["issue"].(map[string]any)
	assert.Equal(t, "ABC-9", issue["key"])
	assert.Equal(t, "Title", issue["title"])
}

func TestRoutesAndMethods(t *testing.T) {
	h := NewHandler(nil, &fakeRunner{}).Router()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/drafts", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServeListenerShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ServeListener(ctx, slog.Default(), ln, NewHandler(nil, &fakeRunner{}).Router()) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
