package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codex-k8s/jiradraft/internal/config"
	"github.com/codex-k8s/jiradraft/internal/page"
	"github.com/codex-k8s/jiradraft/internal/pipeline"
	"github.com/codex-k8s/jiradraft/internal/prompt"
)

// pageFlags are the inputs of commands that read an issue page snapshot.
type pageFlags struct {
	pagePath       string
	pageURL        string
	promptTemplate string
}

func addPageFlags(cmd *cobra.Command, flags *pageFlags) {
	cmd.Flags().StringVar(&flags.pagePath, "page", "", `Path to the saved issue page HTML ("-" reads stdin)`)
	cmd.Flags().StringVar(&flags.pageURL, "url", "", "URL the page was rendered at; used for the issue key fallback")
	addPromptTemplateFlag(cmd, &flags.promptTemplate)
	_ = cmd.MarkFlagRequired("page")
}

func addPromptTemplateFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "prompt-template", "", "Custom prompt template file (text/template)")
}

// resolvePromptTemplate applies JIRADRAFT_PROMPT_TEMPLATE when the flag is not set.
func resolvePromptTemplate(cmd *cobra.Command, flagValue string) (string, error) {
	if cmd.Flags().Changed("prompt-template") || !envPresent("JIRADRAFT_PROMPT_TEMPLATE") {
		return strings.TrimSpace(flagValue), nil
	}
	envVars := pageEnv{}
	if err := parseEnv(&envVars); err != nil {
		return "", err
	}
	return strings.TrimSpace(envVars.PromptTemplate), nil
}

// openStore returns the settings store for --config or the default location.
func openStore(opts *Options) (*config.Store, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return config.NewStore(path), nil
}

// loadPage parses the page snapshot at path, or stdin for "-".
func loadPage(cmd *cobra.Command, path, rawURL string) (*page.Document, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open page %q: %w", path, err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	return page.Parse(r, rawURL)
}

// buildPipeline wires a pipeline reading settings from store.
func buildPipeline(logger *slog.Logger, store *config.Store, promptTemplate string, extra ...pipeline.Option) (*pipeline.Pipeline, error) {
	opts := extra
	if promptTemplate != "" {
		composer, err := prompt.NewComposerFromFile(promptTemplate)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithComposer(composer))
	}
	return pipeline.New(logger, store, opts...)
}
