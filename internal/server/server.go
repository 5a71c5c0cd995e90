// Package server exposes the drafting pipeline over HTTP for a page-side client that
// posts the rendered issue page and inserts the returned draft itself.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/codex-k8s/jiradraft/internal/deliver"
	"github.com/codex-k8s/jiradraft/internal/drafterr"
	"github.com/codex-k8s/jiradraft/internal/logging"
	"github.com/codex-k8s/jiradraft/internal/page"
	"github.com/codex-k8s/jiradraft/internal/pipeline"
	"github.com/codex-k8s/jiradraft/internal/promptctx"
)

const (
	maxPageBytes      = 8 << 20
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second

	// kindBusy and kindRequest are reported next to the drafterr kinds.
	kindBusy    = "busy"
	kindRequest = "request"
)

// Runner is the part of the pipeline the handler drives.
type Runner interface {
	Prepare(ctx context.Context, doc *page.Document) (pipeline.Prepared, error)
	Run(ctx context.Context, doc *page.Document, surface deliver.Surface) (pipeline.Result, error)
}

type pageRequest struct {
	HTML string `json:"html"`
	URL  string `json:"url"`
}

type draftResponse struct {
	OK      bool   `json:"ok"`
	Comment string `json:"comment,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Error   string `json:"error,omitempty"`
}

type promptResponse struct {
	OK      bool               `json:"ok"`
	Prompt  string             `json:"prompt,omitempty"`
	Context *promptctx.Context `json:"context,omitempty"`
	Kind    string             `json:"kind,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// Handler serves draft requests. Drafts are single-flight across all clients.
type Handler struct {
	logger  *slog.Logger
	runner  Runner
	trigger *pipeline.Trigger
}

// NewHandler returns a handler driving runner.
func NewHandler(logger *slog.Logger, runner Runner) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	notify := pipeline.NotifierFunc(func(kind drafterr.Kind, message string) {
		logger.Warn("draft failed", "kind", kind, "error", message)
	})
	return &Handler{
		logger:  logger,
		runner:  runner,
		trigger: pipeline.NewTrigger(logger, notify, nil),
	}
}

// RegisterRoutes registers the API routes on r.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/v1/drafts", h.handleDraft).Methods(http.MethodPost)
	r.HandleFunc("/v1/prompts", h.handlePrompt).Methods(http.MethodPost)
	r.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)
}

// Router returns a router with every route registered.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) handleDraft(w http.ResponseWriter, r *http.Request) {
	doc, err := h.readPage(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, draftResponse{Kind: kindRequest, Error: err.Error()})
		return
	}

	res, err := h.trigger.Do(r.Context(), func(ctx context.Context) (pipeline.Result, error) {
		return h.runner.Run(ctx, doc, nil)
	})
	if err != nil {
		status, kind := classify(err)
		writeJSON(w, status, draftResponse{Kind: kind, Error: err.Error()})
		return
	}
	h.logger.Info("draft served", "issue", res.Context.Issue.Key)
	writeJSON(w, http.StatusOK, draftResponse{OK: true, Comment: res.Comment})
}

func (h *Handler) handlePrompt(w http.ResponseWriter, r *http.Request) {
	doc, err := h.readPage(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, promptResponse{Kind: kindRequest, Error: err.Error()})
		return
	}

	prepared, err := h.runner.Prepare(r.Context(), doc)
	if err != nil {
		status, kind := classify(err)
		writeJSON(w, status, promptResponse{Kind: kind, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, promptResponse{OK: true, Prompt: prepared.Prompt, Context: &prepared.Context})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) readPage(w http.ResponseWriter, r *http.Request) (*page.Document, error) {
	var req pageRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPageBytes))
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	if strings.TrimSpace(req.HTML) == "" {
		return nil, errors.New("html is required")
	}
	return page.FromString(req.HTML, req.URL)
}

// classify maps a pipeline error to an HTTP status and a response kind.
func classify(err error) (int, string) {
	if errors.Is(err, pipeline.ErrBusy) {
		return http.StatusConflict, kindBusy
	}
	kind := drafterr.KindOf(err)
	switch kind {
	case drafterr.KindExtraction:
		return http.StatusUnprocessableEntity, string(kind)
	case drafterr.KindRateLimit:
		return http.StatusTooManyRequests, string(kind)
	case drafterr.KindAuth, drafterr.KindNotFound, drafterr.KindService:
		return http.StatusBadGateway, string(kind)
	default:
		return http.StatusInternalServerError, string(kind)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, logger *slog.Logger, addr string, handler http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return ServeListener(ctx, logger, ln, handler)
}

// ServeListener is Serve over an existing listener.
func ServeListener(ctx context.Context, logger *slog.Logger, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          logging.StdLogger(logger, slog.LevelWarn, "http server"),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
